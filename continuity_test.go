package continuity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/continuity"
	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *continuity.Context) error { return nil }

func TestEngine_HooksAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	var entered int
	eng := continuity.NewEngine(
		continuity.WithMetrics(metrics),
		continuity.WithLifecycleHooks(domain.LifecycleHooks{
			OnElementEnter: func(context.Context, *domain.ElementEvent) { entered++ },
		}),
	)

	exp := continuity.New("facade").
		Append(continuity.ActionFunc(noop)).
		Loop(2).
		Append(continuity.ActionFunc(noop)).
		Close().
		MustBuild()

	report, err := eng.Execute(context.Background(), exp)
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Actions)
	// action, loop head three times, body twice
	assert.Equal(t, 6, entered)

	count, err := testutil.GatherAndCount(reg, "continuity_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEngine_ReturnsRunError(t *testing.T) {
	exp := continuity.New("failing").
		Append(continuity.ActionFunc(func(context.Context, *continuity.Context) error {
			return continuity.Abortf("gave up")
		})).
		MustBuild()

	report, err := continuity.NewEngine().Execute(context.Background(), exp)
	require.NotNil(t, report)

	var runErr *continuity.RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, "action-1", runErr.ElementID)
	assert.ErrorIs(t, err, continuity.ErrAborted)
}
