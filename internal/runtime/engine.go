package runtime

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/graph"
	"github.com/google/uuid"
)

// Engine executes sealed experiments.
// It is stateless between runs and safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger of the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls are merged.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// NewEngine creates a new engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report summarizes one run.
type Report struct {
	RunID      string
	Experiment string
	// Actions is the number of action executions, failed ones included.
	Actions int64
	// Recovered is the number of aborts handled by the graph.
	Recovered int64
	Started   time.Time
	Duration  time.Duration
}

// run is the bookkeeping of one execution.
type run struct {
	engine    *Engine
	id        string
	exp       *graph.Experiment
	state     *graph.State
	logger    *slog.Logger
	actions   atomic.Int64
	recovered atomic.Int64
}

// Execute walks exp from its first element until END is reached on every thread of
// control. Unhandled failures are returned as *domain.RunError.
func (e *Engine) Execute(ctx context.Context, exp *graph.Experiment) (*Report, error) {
	id := uuid.NewString()
	logger := e.logger.With("experiment", exp.Name(), "run_id", id)
	r := &run{
		engine: e,
		id:     id,
		exp:    exp,
		state:  graph.NewState(logger),
		logger: logger,
	}

	started := time.Now()
	logger.Info("experiment started", "planned_actions", exp.Count())

	err := r.walk(ctx, exp.First(), graph.End, nil)

	report := &Report{
		RunID:      id,
		Experiment: exp.Name(),
		Actions:    r.actions.Load(),
		Recovered:  r.recovered.Load(),
		Started:    started,
		Duration:   time.Since(started),
	}
	if err != nil {
		logger.Error("experiment failed", "err", err, "duration", report.Duration)
		return report, err
	}
	logger.Info("experiment finished",
		"actions", report.Actions,
		"recovered", report.Recovered,
		"duration", report.Duration,
	)
	return report, nil
}

func (r *run) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp:  time.Now(),
		Type:       t,
		RunID:      r.id,
		Experiment: r.exp.Name(),
	}
}
