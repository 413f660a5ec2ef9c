package runtime_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aretw0/continuity/internal/runtime"
	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/dsl"
	"github.com/aretw0/continuity/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// step is a named action backed by a function.
type step struct {
	name string
	fn   func(ctx context.Context, c *domain.Context) error
}

func (s *step) Name() string { return s.name }

func (s *step) Execute(ctx context.Context, c *domain.Context) error {
	if s.fn == nil {
		return nil
	}
	return s.fn(ctx, c)
}

func (s *step) BypassExperiment(*graph.Experiment) {}

// trace records executed actions in order.
type trace struct {
	mu    sync.Mutex
	steps []string
}

func (tr *trace) add(s string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.steps = append(tr.steps, s)
}

func (tr *trace) list() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.steps...)
}

// record returns an action that appends name to the trace.
func (tr *trace) record(name string) *step {
	return tr.recordFn(name, nil)
}

// recordFn returns an action that appends name to the trace and then runs fn.
func (tr *trace) recordFn(name string, fn func(ctx context.Context, c *domain.Context) error) *step {
	return &step{name: name, fn: func(ctx context.Context, c *domain.Context) error {
		tr.add(name)
		if fn != nil {
			return fn(ctx, c)
		}
		return nil
	}}
}

func iteration(c *domain.Context, loop string) int {
	n, _ := c.Get(graph.LoopIterationKey(loop)).(int)
	return n
}

func TestEngine_Sequential(t *testing.T) {
	tr := &trace{}
	exp := dsl.New("seq").Append(tr.record("a")).Append(tr.record("b")).MustBuild()

	report, err := runtime.NewEngine().Execute(context.Background(), exp)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, tr.list())
	assert.Equal(t, int64(2), report.Actions)
	assert.Equal(t, "seq", report.Experiment)
	assert.NotEmpty(t, report.RunID)
}

func TestEngine_EmptyExperiment(t *testing.T) {
	exp := dsl.New("empty").MustBuild()

	report, err := runtime.NewEngine().Execute(context.Background(), exp)
	require.NoError(t, err)
	assert.Zero(t, report.Actions)
}

func TestEngine_LoopPublishesIteration(t *testing.T) {
	var seen []int
	exp := dsl.New("loop").
		LoopNamed("warmup", 3).
		Append(&step{name: "observe", fn: func(_ context.Context, c *domain.Context) error {
			seen = append(seen, iteration(c, "warmup"))
			return nil
		}}).
		Close().
		MustBuild()

	_, err := runtime.NewEngine().Execute(context.Background(), exp)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestEngine_NestedLoopsRestart(t *testing.T) {
	tr := &trace{}
	exp := dsl.New("nested").
		Loop(2).
		Loop(3).
		Append(tr.record("inner")).
		Close().
		Append(tr.record("outer")).
		Close().
		MustBuild()

	report, err := runtime.NewEngine().Execute(context.Background(), exp)
	require.NoError(t, err)
	assert.Len(t, tr.list(), 8)
	assert.Equal(t, int64(exp.Count()), report.Actions)
}

func TestEngine_ZeroLoopSkipsBody(t *testing.T) {
	tr := &trace{}
	exp := dsl.New("zero").Loop(0).Append(tr.record("body")).Close().Append(tr.record("after")).MustBuild()

	_, err := runtime.NewEngine().Execute(context.Background(), exp)
	require.NoError(t, err)
	assert.Equal(t, []string{"after"}, tr.list())
}

func TestEngine_BranchTakesFirstSatisfiedArm(t *testing.T) {
	tr := &trace{}
	never := func(*domain.Context) bool { return false }
	always := func(*domain.Context) bool { return true }

	exp := dsl.New("branch").
		IfThen("first", never).
		Append(tr.record("first")).
		ElseIf("second", always).
		Append(tr.record("second")).
		Else().
		Append(tr.record("else")).
		Close().
		Append(tr.record("merged")).
		MustBuild()

	_, err := runtime.NewEngine().Execute(context.Background(), exp)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "merged"}, tr.list())

	branch, ok := exp.Find("branch-1")
	require.True(t, ok)
	assert.Equal(t, "second", exp.Context().Get(graph.BranchKey(branch.(*graph.Branch).Name())))
}

func TestEngine_BranchSeesContext(t *testing.T) {
	tr := &trace{}
	exp := dsl.New("ctx").
		Append(&step{name: "set", fn: func(_ context.Context, c *domain.Context) error {
			c.Set("mode", "canary")
			return nil
		}}).
		IfThen("canary", func(c *domain.Context) bool { return c.Get("mode") == "canary" }).
		Append(tr.record("canary")).
		Close().
		MustBuild()

	_, err := runtime.NewEngine().Execute(context.Background(), exp)
	require.NoError(t, err)
	assert.Equal(t, []string{"canary"}, tr.list())
}

func TestEngine_ConcurrentThreadsJoinOnce(t *testing.T) {
	var count atomic.Int32
	tr := &trace{}
	inc := func(context.Context, *domain.Context) error {
		count.Add(1)
		return nil
	}

	var forks, joins int
	hooks := domain.LifecycleHooks{
		OnThreadFork: func(_ context.Context, e *domain.ElementEvent) {
			forks++
			assert.Equal(t, 2, e.Threads)
		},
		OnThreadJoin: func(context.Context, *domain.ElementEvent) { joins++ },
	}

	exp := dsl.New("fork").
		NewThread().
		Append(&step{name: "a", fn: inc}).
		NewThread().
		Append(&step{name: "b", fn: inc}).
		Append(&step{name: "c", fn: inc}).
		Close().
		Append(tr.recordFn("after", func(context.Context, *domain.Context) error {
			assert.Equal(t, int32(3), count.Load(), "join waits for every thread")
			return nil
		})).
		MustBuild()

	report, err := runtime.NewEngine(runtime.WithLifecycleHooks(hooks)).Execute(context.Background(), exp)
	require.NoError(t, err)

	assert.Equal(t, []string{"after"}, tr.list())
	assert.Equal(t, int64(4), report.Actions)
	assert.Equal(t, 1, forks)
	assert.Equal(t, 1, joins)
}

func TestEngine_AbortReachingEndFailsRun(t *testing.T) {
	tr := &trace{}
	cause := errors.New("service unreachable")

	exp := dsl.New("abort").
		Append(tr.record("a")).
		Append(tr.recordFn("restart", func(context.Context, *domain.Context) error {
			return domain.Abort(cause)
		})).
		Append(tr.record("never")).
		MustBuild()

	_, err := runtime.NewEngine().Execute(context.Background(), exp)
	require.Error(t, err)

	var runErr *domain.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "abort", runErr.Experiment)
	assert.Equal(t, "action-2", runErr.ElementID)
	assert.Equal(t, "restart", runErr.Action)
	assert.ErrorIs(t, err, domain.ErrAborted)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"a", "restart"}, tr.list())
}

func TestEngine_LoopRecoversAbort(t *testing.T) {
	tr := &trace{}
	exp := dsl.New("recover").
		LoopNamed("attempt", 3).
		Append(tr.recordFn("probe", func(_ context.Context, c *domain.Context) error {
			if iteration(c, "attempt") == 2 {
				return domain.Abortf("probe %d failed", 2)
			}
			return nil
		})).
		Append(tr.record("check")).
		Close().
		Append(tr.record("after")).
		MustBuild()

	var recovered []*domain.AbortEvent
	hooks := domain.LifecycleHooks{
		OnRecover: func(_ context.Context, e *domain.AbortEvent) { recovered = append(recovered, e) },
	}

	report, err := runtime.NewEngine(runtime.WithLifecycleHooks(hooks)).Execute(context.Background(), exp)
	require.NoError(t, err)

	assert.Equal(t, []string{"probe", "check", "probe", "probe", "check", "after"}, tr.list())
	assert.Equal(t, int64(1), report.Recovered)
	require.Len(t, recovered, 1)
	assert.Equal(t, "action-2", recovered[0].ElementID)
	assert.Equal(t, "loop-1", recovered[0].HandledBy)
	assert.Equal(t, "loop-1", recovered[0].ResumeAt)
}

func TestEngine_AbortAfterLoopIsNotCapturedByIt(t *testing.T) {
	tr := &trace{}
	exp := dsl.New("scoped").
		Loop(2).
		Append(tr.record("body")).
		Close().
		Append(tr.recordFn("after", func(context.Context, *domain.Context) error {
			return domain.Abort(errors.New("late"))
		})).
		MustBuild()

	_, err := runtime.NewEngine().Execute(context.Background(), exp)
	assert.ErrorIs(t, err, domain.ErrAborted)
	assert.Equal(t, []string{"body", "body", "after"}, tr.list())
}

func TestEngine_NonAbortErrorIsFatalInsideLoop(t *testing.T) {
	tr := &trace{}
	boom := errors.New("boom")
	exp := dsl.New("fatal").
		Loop(3).
		Append(tr.recordFn("fail", func(context.Context, *domain.Context) error { return boom })).
		Close().
		MustBuild()

	report, err := runtime.NewEngine().Execute(context.Background(), exp)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrAborted)
	assert.Equal(t, []string{"fail"}, tr.list())
	assert.Zero(t, report.Recovered)
}

func TestEngine_SkipOnAbort(t *testing.T) {
	tr := &trace{}
	exp := dsl.New("skip").
		AppendWithPolicy(tr.recordFn("optional", func(context.Context, *domain.Context) error {
			return domain.Abort(errors.New("not available"))
		}), graph.SkipOnAbort).
		Append(tr.record("next")).
		MustBuild()

	report, err := runtime.NewEngine().Execute(context.Background(), exp)
	require.NoError(t, err)
	assert.Equal(t, []string{"optional", "next"}, tr.list())
	assert.Equal(t, int64(1), report.Recovered)
}

func TestEngine_RetryOnAbort(t *testing.T) {
	t.Run("succeeds within budget", func(t *testing.T) {
		calls := 0
		exp := dsl.New("retry").
			AppendWithPolicy(&step{name: "flaky", fn: func(context.Context, *domain.Context) error {
				calls++
				if calls < 3 {
					return domain.Abort(errors.New("flaky"))
				}
				return nil
			}}, graph.RetryOnAbort(2)).
			MustBuild()

		report, err := runtime.NewEngine().Execute(context.Background(), exp)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, int64(2), report.Recovered)
	})

	t.Run("exhausted", func(t *testing.T) {
		calls := 0
		exp := dsl.New("retry").
			AppendWithPolicy(&step{name: "broken", fn: func(context.Context, *domain.Context) error {
				calls++
				return domain.Abort(errors.New("broken"))
			}}, graph.RetryOnAbort(2)).
			MustBuild()

		_, err := runtime.NewEngine().Execute(context.Background(), exp)
		assert.ErrorIs(t, err, domain.ErrAborted)
		assert.Equal(t, 3, calls)
	})
}

func TestEngine_ThreadAbortEscalatesPastFork(t *testing.T) {
	tr := &trace{}
	exp := dsl.New("threads").
		LoopNamed("round", 2).
		NewThread().
		Append(&step{name: "unstable", fn: func(_ context.Context, c *domain.Context) error {
			if iteration(c, "round") == 1 {
				return domain.Abort(errors.New("unstable"))
			}
			return nil
		}}).
		NewThread().
		Append(&step{name: "stable"}).
		Close().
		Append(tr.record("round-end")).
		Close().
		Append(tr.record("after")).
		MustBuild()

	report, err := runtime.NewEngine().Execute(context.Background(), exp)
	require.NoError(t, err)
	assert.Equal(t, []string{"round-end", "after"}, tr.list())
	assert.Equal(t, int64(1), report.Recovered)
}

func TestEngine_ThreadAbortReportedOnce(t *testing.T) {
	build := func(loop bool) *graph.Experiment {
		b := dsl.New("threads")
		if loop {
			b.Loop(1)
		}
		b.NewThread().
			Append(&step{name: "unstable", fn: func(context.Context, *domain.Context) error {
				return domain.Abort(errors.New("unstable"))
			}}).
			NewThread().
			Append(&step{name: "stable"}).
			Close()
		if loop {
			b.Close()
		}
		return b.MustBuild()
	}

	tests := []struct {
		name      string
		loop      bool
		wantErr   bool
		recovered int32
	}{
		{name: "recovered by enclosing loop", loop: true, recovered: 1},
		{name: "unhandled", loop: false, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var aborts, recovers atomic.Int32
			hooks := domain.LifecycleHooks{
				OnAbort:   func(context.Context, *domain.AbortEvent) { aborts.Add(1) },
				OnRecover: func(context.Context, *domain.AbortEvent) { recovers.Add(1) },
			}

			_, err := runtime.NewEngine(runtime.WithLifecycleHooks(hooks)).Execute(context.Background(), build(tt.loop))
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrAborted)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, int32(1), aborts.Load())
			assert.Equal(t, tt.recovered, recovers.Load())
		})
	}
}

func TestEngine_ThreadFailureKeepsOrigin(t *testing.T) {
	boom := errors.New("boom")
	exp := dsl.New("threads").
		NewThread().
		Append(&step{name: "ok"}).
		NewThread().
		Append(&step{name: "broken", fn: func(context.Context, *domain.Context) error { return boom }}).
		Close().
		MustBuild()

	_, err := runtime.NewEngine().Execute(context.Background(), exp)

	var runErr *domain.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "broken", runErr.Action)
	assert.ErrorIs(t, err, boom)
}

func TestEngine_PanicBecomesRunError(t *testing.T) {
	exp := dsl.New("panic").
		Append(&step{name: "explode", fn: func(context.Context, *domain.Context) error { panic("kaboom") }}).
		MustBuild()

	_, err := runtime.NewEngine().Execute(context.Background(), exp)

	var runErr *domain.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "explode", runErr.Action)
	assert.ErrorContains(t, err, "kaboom")
}

func TestEngine_PanickingConditionInThreadBecomesRunError(t *testing.T) {
	exp := dsl.New("panic").
		NewThread().
		IfThen("mode is fast", func(c *domain.Context) bool { return c.Get("mode").(string) == "fast" }).
		Append(&step{name: "fast"}).
		Close().
		NewThread().
		Append(&step{name: "other"}).
		Close().
		MustBuild()

	_, err := runtime.NewEngine().Execute(context.Background(), exp)

	var runErr *domain.RunError
	require.ErrorAs(t, err, &runErr)
	assert.ErrorContains(t, err, "element branch-2 panicked")
}

func TestEngine_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &trace{}
	exp := dsl.New("cancel").
		Append(tr.recordFn("first", func(context.Context, *domain.Context) error {
			cancel()
			return nil
		})).
		Append(tr.record("second")).
		MustBuild()

	_, err := runtime.NewEngine().Execute(ctx, exp)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first"}, tr.list())
}

func TestEngine_RerunIsIndependent(t *testing.T) {
	tr := &trace{}
	exp := dsl.New("rerun").
		Loop(2).
		Append(tr.record("x")).
		Close().
		MustBuild()

	engine := runtime.NewEngine()
	_, err := engine.Execute(context.Background(), exp)
	require.NoError(t, err)
	_, err = engine.Execute(context.Background(), exp)
	require.NoError(t, err)

	assert.Len(t, tr.list(), 4)
}

func TestEngine_Hooks(t *testing.T) {
	var (
		entered []string
		started []string
		errs    []error
		aborts  int
	)
	hooks := domain.LifecycleHooks{
		OnElementEnter: func(_ context.Context, e *domain.ElementEvent) { entered = append(entered, e.ElementID) },
		OnActionStart:  func(_ context.Context, e *domain.ActionEvent) { started = append(started, e.Action) },
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) { errs = append(errs, e.Err) },
		OnAbort:        func(context.Context, *domain.AbortEvent) { aborts++ },
	}

	exp := dsl.New("hooks").
		Append(&step{name: "a"}).
		AppendWithPolicy(&step{name: "b", fn: func(context.Context, *domain.Context) error {
			return domain.Abort(errors.New("skip me"))
		}}, graph.SkipOnAbort).
		MustBuild()

	_, err := runtime.NewEngine(runtime.WithLifecycleHooks(hooks)).Execute(context.Background(), exp)
	require.NoError(t, err)

	assert.Equal(t, []string{"action-1", "action-2"}, entered)
	assert.Equal(t, []string{"a", "b"}, started)
	require.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], domain.ErrAborted)
	assert.Equal(t, 1, aborts)
}
