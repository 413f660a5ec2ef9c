package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/graph"
	"github.com/aretw0/continuity/pkg/ports"
)

type exclusive struct {
	locker ports.Locker
	key    string
	ttl    time.Duration
	inner  graph.Action
}

// Exclusive runs inner while holding the lock key, so that concurrent threads or other
// hosts never run it for the same key at once.
func Exclusive(locker ports.Locker, key string, ttl time.Duration, inner graph.Action) graph.Action {
	return &exclusive{locker: locker, key: key, ttl: ttl, inner: inner}
}

func (e *exclusive) Name() string {
	return fmt.Sprintf("exclusive(%s) %s", e.key, graph.ActionName(e.inner))
}

func (e *exclusive) Execute(ctx context.Context, c *domain.Context) (err error) {
	unlock, err := e.locker.Lock(ctx, e.key, e.ttl)
	if err != nil {
		return fmt.Errorf("lock %s: %w", e.key, err)
	}
	defer func() {
		// The run context may already be canceled; the lock must still go.
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil && err == nil {
			err = fmt.Errorf("unlock %s: %w", e.key, uerr)
		}
	}()
	return e.inner.Execute(ctx, c)
}

func (e *exclusive) BypassExperiment(exp *graph.Experiment) {
	e.inner.BypassExperiment(exp)
}
