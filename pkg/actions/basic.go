package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/graph"
)

type funcAction struct {
	name string
	fn   func(ctx context.Context, c *domain.Context) error
}

// Func wraps fn into a named action.
func Func(name string, fn func(ctx context.Context, c *domain.Context) error) graph.Action {
	return &funcAction{name: name, fn: fn}
}

func (a *funcAction) Name() string { return a.name }

func (a *funcAction) Execute(ctx context.Context, c *domain.Context) error {
	return a.fn(ctx, c)
}

func (a *funcAction) BypassExperiment(*graph.Experiment) {}

type sleep struct {
	d time.Duration
}

// Sleep waits for d or until the run is canceled.
func Sleep(d time.Duration) graph.Action {
	return &sleep{d: d}
}

func (s *sleep) Name() string { return "sleep " + s.d.String() }

func (s *sleep) Execute(ctx context.Context, _ *domain.Context) error {
	t := time.NewTimer(s.d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *sleep) BypassExperiment(*graph.Experiment) {}

type set struct {
	key   string
	value any
}

// Set writes value under key.
func Set(key string, value any) graph.Action {
	return &set{key: key, value: value}
}

func (s *set) Name() string { return fmt.Sprintf("set %s=%v", s.key, s.value) }

func (s *set) Execute(_ context.Context, c *domain.Context) error {
	c.Set(s.key, s.value)
	return nil
}

func (s *set) BypassExperiment(*graph.Experiment) {}

type fail struct {
	err   error
	abort bool
}

var errFailed = errors.New("failed on purpose")

// Fail always fails the run with err.
func Fail(err error) graph.Action {
	if err == nil {
		err = errFailed
	}
	return &fail{err: err}
}

// AbortWith always raises an abort-class failure caused by err.
func AbortWith(err error) graph.Action {
	if err == nil {
		err = errFailed
	}
	return &fail{err: err, abort: true}
}

func (f *fail) Name() string {
	if f.abort {
		return "abort: " + f.err.Error()
	}
	return "fail: " + f.err.Error()
}

func (f *fail) Execute(context.Context, *domain.Context) error {
	if f.abort {
		return domain.Abort(f.err)
	}
	return f.err
}

func (f *fail) BypassExperiment(*graph.Experiment) {}
