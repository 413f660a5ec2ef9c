package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/continuity/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Hooks(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	hooks := m.Hooks()
	ctx := context.Background()
	base := domain.EventBase{Experiment: "demo"}

	hooks.OnElementEnter(ctx, &domain.ElementEvent{EventBase: base, Kind: "action"})
	hooks.OnElementEnter(ctx, &domain.ElementEvent{EventBase: base, Kind: "action"})
	hooks.OnActionReturn(ctx, &domain.ActionEvent{EventBase: base, Action: "restart", Duration: time.Millisecond})
	hooks.OnActionReturn(ctx, &domain.ActionEvent{EventBase: base, Action: "restart", Err: domain.Abort(errors.New("down"))})
	hooks.OnAbort(ctx, &domain.AbortEvent{EventBase: base})
	hooks.OnRecover(ctx, &domain.AbortEvent{EventBase: base, HandledBy: "loop-1"})
	hooks.OnThreadFork(ctx, &domain.ElementEvent{EventBase: base})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.visits.WithLabelValues("demo", "action")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("demo", "restart", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("demo", "restart", "aborted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aborts.WithLabelValues("demo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recoveries.WithLabelValues("demo", "loop-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.threads))

	hooks.OnThreadJoin(ctx, &domain.ElementEvent{EventBase: base})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.threads))
}

func TestMetrics_ObserveRun(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveRun("demo", time.Second, nil)
	m.ObserveRun("demo", time.Second, &domain.RunError{Cause: domain.Abort(nil)})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("demo", StatusSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("demo", StatusAborted)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.runTime))
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, StatusSucceeded},
		{fmt.Errorf("run: %w", context.Canceled), StatusCanceled},
		{context.DeadlineExceeded, StatusCanceled},
		{domain.Abort(errors.New("x")), StatusAborted},
		{errors.New("boom"), StatusFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), "err: %v", tt.err)
	}
}

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveRun("demo", time.Millisecond, nil)

	families, err := reg.Gather()
	assert.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "continuity_runs_total")
	assert.Contains(t, names, "continuity_active_forks")
}
