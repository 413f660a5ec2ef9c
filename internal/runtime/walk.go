package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/graph"
	"golang.org/x/sync/errgroup"
)

// forker is implemented by elements that fork concurrent threads.
type forker interface {
	Threads() []graph.Element
	Join() graph.Element
}

// walk is one logical thread of control. It runs from start until it reaches stop
// (the join of its fork, or END). Aborts are offered to the visited element and its
// enclosing scopes, but never past boundary, the fork that spawned the thread.
func (r *run) walk(ctx context.Context, start, stop, boundary graph.Element) error {
	current := start
	for current != stop && !current.IsEnd() {
		if err := ctx.Err(); err != nil {
			return r.runError(current, err)
		}

		next, err := r.visit(ctx, current)
		if err != nil {
			next, err = r.handleAbort(ctx, current, err, boundary)
			if err != nil {
				return err
			}
		}
		current = next
	}
	return nil
}

func (r *run) visit(ctx context.Context, el graph.Element) (graph.Element, error) {
	r.logger.Debug("visiting element", "element", el.ID(), "kind", el.Kind())
	if h := r.engine.hooks.OnElementEnter; h != nil {
		h(ctx, &domain.ElementEvent{
			EventBase: r.event(domain.EventElementEnter),
			ElementID: el.ID(),
			Kind:      string(el.Kind()),
		})
	}

	if err := r.updateContext(el); err != nil {
		return nil, err
	}

	if f, ok := el.(forker); ok {
		if err := r.fork(ctx, el, f); err != nil {
			return nil, err
		}
	} else if el.HasAction() {
		if err := r.execute(ctx, el); err != nil {
			return nil, err
		}
	}
	return el.Next(r.state), nil
}

// fork runs every thread of el in its own goroutine and waits until all of them
// reached the join. The first failing thread cancels its siblings.
func (r *run) fork(ctx context.Context, el graph.Element, f forker) error {
	threads := f.Threads()
	join := f.Join()

	ev := &domain.ElementEvent{
		EventBase: r.event(domain.EventThreadFork),
		ElementID: el.ID(),
		Kind:      string(el.Kind()),
		Threads:   len(threads),
	}
	if h := r.engine.hooks.OnThreadFork; h != nil {
		h(ctx, ev)
	}
	r.logger.Debug("forking threads", "element", el.ID(), "threads", len(threads))

	g, gctx := errgroup.WithContext(ctx)
	for _, entry := range threads {
		g.Go(func() error {
			return r.walk(gctx, entry, join, el)
		})
	}
	err := g.Wait()

	if h := r.engine.hooks.OnThreadJoin; h != nil {
		joined := *ev
		joined.EventBase = r.event(domain.EventThreadJoin)
		h(ctx, &joined)
	}
	return err
}

// updateContext runs the element's own bookkeeping, such as branch conditions, which
// is user code and may panic like an action.
func (r *run) updateContext(el graph.Element) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("element %s panicked: %v", el.ID(), p)
		}
	}()
	el.UpdateContext(r.exp.Context(), r.state)
	return nil
}

func (r *run) execute(ctx context.Context, el graph.Element) (err error) {
	action := el.Action()
	name := graph.ActionName(action)

	ev := &domain.ActionEvent{
		EventBase: r.event(domain.EventActionStart),
		ElementID: el.ID(),
		Action:    name,
	}
	if h := r.engine.hooks.OnActionStart; h != nil {
		h(ctx, ev)
	}

	started := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("action %s panicked: %v", name, p)
		}
		r.actions.Add(1)
		if h := r.engine.hooks.OnActionReturn; h != nil {
			ret := *ev
			ret.EventBase = r.event(domain.EventActionReturn)
			ret.Duration = time.Since(started)
			ret.Err = err
			h(ctx, &ret)
		}
	}()

	return action.Execute(ctx, r.exp.Context())
}
