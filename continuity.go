package continuity

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/continuity/internal/runtime"
	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/dsl"
	"github.com/aretw0/continuity/pkg/graph"
	"github.com/aretw0/continuity/pkg/observability"
)

// Core types, re-exported so that simple programs only import this package.
type (
	Experiment  = graph.Experiment
	Element     = graph.Element
	Action      = graph.Action
	ActionFunc  = graph.ActionFunc
	AbortPolicy = graph.AbortPolicy
	Context     = domain.Context
	Builder     = dsl.Builder
	Report      = runtime.Report
	RunError    = domain.RunError
	AbortError  = domain.AbortError

	LifecycleHooks = domain.LifecycleHooks
	ElementEvent   = domain.ElementEvent
	ActionEvent    = domain.ActionEvent
	AbortEvent     = domain.AbortEvent
)

var (
	// Propagate leaves aborts to the enclosing constructs.
	Propagate = graph.Propagate
	// SkipOnAbort resumes at the successor of the aborted action.
	SkipOnAbort = graph.SkipOnAbort
	// RetryOnAbort re-executes the aborted action up to n more times.
	RetryOnAbort = graph.RetryOnAbort

	// Abort wraps cause into an abort-class failure the graph may recover from.
	Abort  = domain.Abort
	Abortf = domain.Abortf

	ErrAborted              = domain.ErrAborted
	ErrConstruction         = domain.ErrConstruction
	ErrUnsupportedOperation = domain.ErrUnsupportedOperation
)

// New starts building an experiment. See package dsl.
func New(name string) *Builder {
	return dsl.New(name)
}

// Engine is the high-level entry point for running experiments.
// It wraps the internal runtime and is safe for concurrent use.
type Engine struct {
	runtime *runtime.Engine
	hooks   domain.LifecycleHooks
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks. Repeated calls are merged.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records every run into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine initializes a new Engine.
func NewEngine(opts ...Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	// Ensure logger is initialized so the runtime never logs to a nil handler.
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	hooks := eng.hooks
	if eng.metrics != nil {
		hooks = hooks.Merge(eng.metrics.Hooks())
	}
	eng.runtime = runtime.NewEngine(
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(hooks),
	)
	return eng
}

// Execute runs exp to completion. Failures nobody in the graph recovered from are
// returned as *RunError; the report is returned in both cases.
func (e *Engine) Execute(ctx context.Context, exp *Experiment) (*Report, error) {
	report, err := e.runtime.Execute(ctx, exp)
	if e.metrics != nil {
		e.metrics.ObserveRun(exp.Name(), report.Duration, err)
	}
	return report, err
}
