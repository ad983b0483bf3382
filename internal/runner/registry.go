package runner

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
)

// Run is the registry's view of one in-flight run: its id, live state and a
// cancellation handle. Entries exist only while the run executes.
type Run struct {
	ID string

	mu    sync.Mutex
	state entity.RunState

	cancelled atomic.Bool
	cancel    context.CancelFunc
}

func (r *Run) State() entity.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Run) setState(s entity.RunState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Cancelled reports whether a stop was requested. The flag is what separates
// a stopped run from a failed one when execution unwinds.
func (r *Run) Cancelled() bool {
	return r.cancelled.Load()
}

// Registry tracks in-flight runs by id. Completed runs are removed rather
// than archived; the emitted summary is the only record kept.
type Registry struct {
	mu   sync.Mutex
	runs map[string]*Run
}

func NewRegistry() *Registry {
	return &Registry{runs: make(map[string]*Run)}
}

func (g *Registry) register(id string, cancel context.CancelFunc) *Run {
	run := &Run{ID: id, state: entity.RunIdle, cancel: cancel}
	g.mu.Lock()
	g.runs[id] = run
	g.mu.Unlock()
	return run
}

func (g *Registry) remove(id string) {
	g.mu.Lock()
	delete(g.runs, id)
	g.mu.Unlock()
}

// Get returns the live run, or nil when it already finished or never existed.
func (g *Registry) Get(id string) *Run {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.runs[id]
}

// Cancel requests a stop. It returns false when the run is not live, which
// callers surface as "nothing to cancel".
func (g *Registry) Cancel(id string) bool {
	g.mu.Lock()
	run := g.runs[id]
	g.mu.Unlock()
	if run == nil {
		return false
	}
	run.cancelled.Store(true)
	run.cancel()
	return true
}
