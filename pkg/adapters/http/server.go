package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/continuity/internal/presentation/graph"
	"github.com/aretw0/continuity/internal/runtime"
	"github.com/aretw0/continuity/pkg/domain"
	flow "github.com/aretw0/continuity/pkg/graph"
	"github.com/aretw0/continuity/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine runs experiments.
type Engine interface {
	Execute(ctx context.Context, exp *flow.Experiment) (*runtime.Report, error)
}

// Factory builds a fresh experiment for every run, so that concurrent runs never
// share a Context.
type Factory func() (*flow.Experiment, error)

// DefaultMaxRuns is the number of finished runs kept when Server.MaxRuns is unset.
const DefaultMaxRuns = 100

// Server exposes one experiment over HTTP.
type Server struct {
	Engine   Engine
	Factory  Factory
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	// MaxRuns bounds the run history; the oldest run is evicted first.
	MaxRuns int

	mu     sync.RWMutex
	runs   map[string]*RunResponse
	order  []string
	visits map[string][]string
}

// ElementInfo describes one element of the graph.
type ElementInfo struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Action string `json:"action,omitempty"`
}

// ExperimentResponse is the body of GET /experiment.
type ExperimentResponse struct {
	Name     string        `json:"name"`
	Count    int           `json:"count"`
	Elements []ElementInfo `json:"elements"`
	Render   string        `json:"render"`
}

// RunResponse is the outcome of a run.
type RunResponse struct {
	RunID         string         `json:"run_id"`
	Experiment    string         `json:"experiment"`
	Status        string         `json:"status"`
	Actions       int64          `json:"actions"`
	Recovered     int64          `json:"recovered"`
	DurationMS    int64          `json:"duration_ms"`
	Error         string         `json:"error,omitempty"`
	FailedElement string         `json:"failed_element,omitempty"`
	FailedAction  string         `json:"failed_action,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
	Visited       []string       `json:"visited,omitempty"`

	exp *flow.Experiment
}

// Hooks returns lifecycle hooks that record the elements each run visits, so that
// GET /runs/{id}/graph can highlight the path taken. Register them on the engine.
func (s *Server) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnElementEnter: func(_ context.Context, e *domain.ElementEvent) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.visits == nil {
				s.visits = make(map[string][]string)
			}
			s.visits[e.RunID] = append(s.visits[e.RunID], e.ElementID)
		},
	}
}

// NewHandler creates a new HTTP handler for the server.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Gatherer == nil {
		s.Gatherer = prometheus.DefaultGatherer
	}
	if s.MaxRuns <= 0 {
		s.MaxRuns = DefaultMaxRuns
	}
	s.runs = make(map[string]*RunResponse)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/experiment", s.GetExperiment)
	r.Get("/experiment/graph", s.GetGraph)
	r.Post("/runs", s.CreateRun)
	r.Get("/runs/{id}", s.GetRun)
	r.Get("/runs/{id}/graph", s.GetRunGraph)
	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetExperiment handles GET /experiment.
func (s *Server) GetExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := s.Factory()
	if err != nil {
		s.fail(w, "build experiment", err)
		return
	}

	resp := ExperimentResponse{
		Name:   exp.Name(),
		Count:  exp.Count(),
		Render: exp.Render(""),
	}
	for el := range exp.All() {
		resp.Elements = append(resp.Elements, ElementInfo{
			ID:     el.ID(),
			Kind:   string(el.Kind()),
			Action: flow.ActionName(el.Action()),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetGraph handles GET /experiment/graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	exp, err := s.Factory()
	if err != nil {
		s.fail(w, "build experiment", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(exp, nil))
}

// CreateRun handles POST /runs. The run is synchronous; a failed run is reported in
// the body, not as an HTTP error.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request) {
	exp, err := s.Factory()
	if err != nil {
		s.fail(w, "build experiment", err)
		return
	}

	report, err := s.Engine.Execute(r.Context(), exp)
	resp := &RunResponse{
		Experiment: exp.Name(),
		Status:     observability.Status(err),
		Context:    exp.Context().Snapshot(),
		exp:        exp,
	}
	if report != nil {
		resp.RunID = report.RunID
		resp.Actions = report.Actions
		resp.Recovered = report.Recovered
		resp.DurationMS = report.Duration.Milliseconds()
	}
	if err != nil {
		resp.Error = err.Error()
		var runErr *domain.RunError
		if errors.As(err, &runErr) {
			resp.FailedElement = runErr.ElementID
			resp.FailedAction = runErr.Action
		}
		s.Logger.Warn("run failed", "experiment", exp.Name(), "run_id", resp.RunID, "err", err)
	}

	s.store(resp)
	s.writeJSON(w, http.StatusOK, resp)
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// GetRunGraph handles GET /runs/{id}/graph, highlighting the visited elements and the
// failed one.
func (s *Server) GetRunGraph(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookup(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(run.exp, &graph.GraphOverlay{
		VisitedElements: run.Visited,
		FailedElement:   run.FailedElement,
	}))
}

// store records a finished run with its visits and evicts the oldest runs beyond MaxRuns.
func (s *Server) store(run *RunResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.Visited = s.visits[run.RunID]
	delete(s.visits, run.RunID)
	if _, ok := s.runs[run.RunID]; !ok {
		s.order = append(s.order, run.RunID)
	}
	s.runs[run.RunID] = run
	for len(s.order) > s.MaxRuns {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Server) lookup(id string) (*RunResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	s.Logger.Error(op+" failed", "err", err)
	http.Error(w, fmt.Sprintf("%s: %v", op, err), http.StatusInternalServerError)
}

// ListenAndServe serves handler on addr until ctx is canceled.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
