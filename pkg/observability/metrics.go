// Package observability exposes experiment runs as Prometheus metrics.
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/continuity/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "continuity"

// Run outcomes used as the "status" label of runs_total.
const (
	StatusSucceeded = "succeeded"
	StatusAborted   = "aborted"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Metrics collects counters and histograms about experiment runs.
type Metrics struct {
	visits     *prometheus.CounterVec
	actions    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	aborts     *prometheus.CounterVec
	recoveries *prometheus.CounterVec
	threads    prometheus.Gauge
	runs       *prometheus.CounterVec
	runTime    *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		visits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "element_visits_total",
			Help:      "Total number of element visits.",
		}, []string{"experiment", "kind"}),
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of executed actions by outcome.",
		}, []string{"experiment", "action", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Duration of action executions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"experiment", "action"}),
		aborts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aborts_total",
			Help:      "Total number of abort-class failures raised by actions.",
		}, []string{"experiment"}),
		recoveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recoveries_total",
			Help:      "Total number of aborts handled by the graph.",
		}, []string{"experiment", "handled_by"}),
		threads: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_forks",
			Help:      "Number of concurrent elements currently waiting for their threads.",
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of experiment runs by status.",
		}, []string{"experiment", "status"}),
		runTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of experiment runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"experiment"}),
	}
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnElementEnter: func(_ context.Context, e *domain.ElementEvent) {
			m.visits.WithLabelValues(e.Experiment, e.Kind).Inc()
		},
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			m.actions.WithLabelValues(e.Experiment, e.Action, outcome(e.Err)).Inc()
			m.duration.WithLabelValues(e.Experiment, e.Action).Observe(e.Duration.Seconds())
		},
		OnAbort: func(_ context.Context, e *domain.AbortEvent) {
			m.aborts.WithLabelValues(e.Experiment).Inc()
		},
		OnRecover: func(_ context.Context, e *domain.AbortEvent) {
			m.recoveries.WithLabelValues(e.Experiment, e.HandledBy).Inc()
		},
		OnThreadFork: func(context.Context, *domain.ElementEvent) {
			m.threads.Inc()
		},
		OnThreadJoin: func(context.Context, *domain.ElementEvent) {
			m.threads.Dec()
		},
	}
}

// ObserveRun records the outcome of a whole run.
func (m *Metrics) ObserveRun(experiment string, d time.Duration, err error) {
	m.runs.WithLabelValues(experiment, Status(err)).Inc()
	m.runTime.WithLabelValues(experiment).Observe(d.Seconds())
}

// Status classifies the error returned by a run.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusSucceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	case errors.Is(err, domain.ErrAborted):
		return StatusAborted
	}
	return StatusFailed
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrAborted):
		return "aborted"
	}
	return "error"
}
