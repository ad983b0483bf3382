// Package httpapi exposes the run lifecycle over HTTP: start a run, watch
// its state, cancel it. Runs execute in the background; the start call
// returns the run id immediately.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/google/uuid"

	"github.com/iamawmrit/rithcon-aiagent-extension/internal/application/port/output"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/domain/entity"
	"github.com/iamawmrit/rithcon-aiagent-extension/internal/runner"
)

const maxPromptBytes = 8 << 10

// keep this many finished run summaries around for polling clients.
const summaryBacklog = 64

type Server struct {
	runner   *runner.Runner
	registry *runner.Registry
	logger   output.LoggerPort

	mu        sync.Mutex
	summaries map[string]entity.RunSummary
	order     []string
}

func NewServer(r *runner.Runner, registry *runner.Registry, logger output.LoggerPort) *Server {
	return &Server{
		runner:    r,
		registry:  registry,
		logger:    logger,
		summaries: make(map[string]entity.RunSummary),
	}
}

// Handler builds the routed handler with request logging attached.
func (s *Server) Handler(serviceName string) http.Handler {
	httpLogger := httplog.NewLogger(serviceName, httplog.Options{
		JSON:    true,
		Concise: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(httpLogger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/runs", s.startRun)
	r.Get("/runs/{id}", s.getRun)
	r.Post("/runs/{id}/cancel", s.cancelRun)

	return r
}

type startRequest struct {
	Prompt string `json:"prompt"`
}

type runResponse struct {
	RunID string          `json:"run_id"`
	State entity.RunState `json:"state"`
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPromptBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	runID := uuid.NewString()
	go func() {
		// Detached from the request context: the run outlives the HTTP call.
		summary, err := s.runner.Run(context.Background(), runID, req.Prompt)
		if err != nil {
			s.logger.Error("Run failed", "run_id", runID, "error", err)
		}
		s.remember(summary)
	}()

	writeJSON(w, http.StatusAccepted, runResponse{RunID: runID, State: entity.RunPlanning})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if run := s.registry.Get(id); run != nil {
		writeJSON(w, http.StatusOK, runResponse{RunID: id, State: run.State()})
		return
	}

	s.mu.Lock()
	summary, ok := s.summaries[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.registry.Cancel(id) {
		writeError(w, http.StatusNotFound, "no live run with that id")
		return
	}
	writeJSON(w, http.StatusOK, runResponse{RunID: id, State: entity.RunStopped})
}

func (s *Server) remember(summary entity.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.RunID] = summary
	s.order = append(s.order, summary.RunID)
	for len(s.order) > summaryBacklog {
		delete(s.summaries, s.order[0])
		s.order = s.order[1:]
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
