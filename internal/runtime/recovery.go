package runtime

import (
	"context"
	"errors"

	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/graph"
)

// handleAbort offers an abort raised while visiting el to el and then to every enclosing
// scope, innermost first, until one of them names the element to resume from. The
// search stops at boundary (the fork of the current thread) or after END declined.
// Failures that are not abort-class are never recovered.
func (r *run) handleAbort(ctx context.Context, el graph.Element, err error, boundary graph.Element) (graph.Element, error) {
	abort, ok := domain.AsAbort(err)
	if !ok {
		return nil, r.runError(el, err)
	}
	if abort.ElementID == "" {
		abort.ElementID = el.ID()
	}

	// A thread failure climbing past its fork was already reported where it was raised.
	var escalated *domain.RunError
	if !errors.As(err, &escalated) {
		r.logger.Warn("element aborted", "element", el.ID(), "origin", abort.ElementID, "err", abort.Cause)
		if h := r.engine.hooks.OnAbort; h != nil {
			h(ctx, &domain.AbortEvent{
				EventBase: r.event(domain.EventAbort),
				ElementID: abort.ElementID,
				Err:       abort,
			})
		}
	}

	for s := el; s != boundary; s = s.Scope() {
		if resume := s.HandleAborted(abort, r.state); resume != nil {
			r.recovered.Add(1)
			r.logger.Info("abort recovered", "origin", abort.ElementID, "handled_by", s.ID(), "resume_at", resume.ID())
			if h := r.engine.hooks.OnRecover; h != nil {
				h(ctx, &domain.AbortEvent{
					EventBase: r.event(domain.EventRecover),
					ElementID: abort.ElementID,
					HandledBy: s.ID(),
					ResumeAt:  resume.ID(),
					Err:       abort,
				})
			}
			return resume, nil
		}
		if s.IsEnd() {
			break
		}
	}
	return nil, r.runError(el, err)
}

// runError builds the fatal error of a run. A failure already reported by an inner
// thread keeps pointing at its originating action.
func (r *run) runError(el graph.Element, cause error) error {
	var inner *domain.RunError
	if errors.As(cause, &inner) {
		return inner
	}
	return &domain.RunError{
		Experiment: r.exp.Name(),
		ElementID:  el.ID(),
		Action:     graph.ActionName(el.Action()),
		Element:    el.String(),
		Cause:      cause,
	}
}
