package entity

import "encoding/json"

// TabResult is the outcome of one action on one tab. A step dispatched to N
// tabs always yields N TabResults.
type TabResult struct {
	TabID  int             `json:"tab_id"`
	Title  string          `json:"title,omitempty"`
	URL    string          `json:"url,omitempty"`
	Status string          `json:"status"`
	Detail string          `json:"detail,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	// Screenshot is attached after visual actions when the surface can
	// render one.
	Screenshot *Screenshot `json:"screenshot,omitempty"`
}

func (r TabResult) OK() bool {
	return r.Status == StatusSuccess
}

// StepReport aggregates the per-tab results of one step. The step succeeds
// iff at least one tab succeeded.
type StepReport struct {
	Step    Step        `json:"step"`
	Results []TabResult `json:"results"`
}

func (r StepReport) OK() bool {
	for _, res := range r.Results {
		if res.OK() {
			return true
		}
	}
	return false
}

// FirstError returns the first per-tab error detail, or "" when every tab
// succeeded.
func (r StepReport) FirstError() string {
	for _, res := range r.Results {
		if !res.OK() {
			return res.Detail
		}
	}
	return ""
}

// RunState is the terminal (or in-flight) state of a run.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunPlanning  RunState = "planning"
	RunExecuting RunState = "executing"
	RunDone      RunState = "done"
	RunStopped   RunState = "stopped"
	RunFailed    RunState = "failed"
)

// RunSummary is emitted once per run and is the only record kept of it.
type RunSummary struct {
	RunID     string   `json:"run_id"`
	State     RunState `json:"state"`
	Completed int      `json:"completed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Message   string   `json:"message,omitempty"`
}
