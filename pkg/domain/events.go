package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventElementEnter EventType = "element_enter"
	EventActionStart  EventType = "action_start"
	EventActionReturn EventType = "action_return"
	EventAbort        EventType = "abort"
	EventRecover      EventType = "recover"
	EventThreadFork   EventType = "thread_fork"
	EventThreadJoin   EventType = "thread_join"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id"`
	Experiment string    `json:"experiment"`
}

// ElementEvent represents a visit of an element, or a fork/join around a concurrent element.
type ElementEvent struct {
	EventBase
	ElementID string `json:"element_id"`
	Kind      string `json:"kind"`
	Threads   int    `json:"threads,omitempty"`
}

// ActionEvent represents the execution of an element's action.
type ActionEvent struct {
	EventBase
	ElementID string        `json:"element_id"`
	Action    string        `json:"action"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// AbortEvent represents an abort-class failure and, for EventRecover, where the run resumes.
type AbortEvent struct {
	EventBase
	ElementID string `json:"element_id"`
	HandledBy string `json:"handled_by,omitempty"`
	ResumeAt  string `json:"resume_at,omitempty"`
	Err       error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks of concurrent threads are invoked from their own goroutines.
type LifecycleHooks struct {
	OnElementEnter func(context.Context, *ElementEvent)
	OnActionStart  func(context.Context, *ActionEvent)
	OnActionReturn func(context.Context, *ActionEvent)
	OnAbort        func(context.Context, *AbortEvent)
	OnRecover      func(context.Context, *AbortEvent)
	OnThreadFork   func(context.Context, *ElementEvent)
	OnThreadJoin   func(context.Context, *ElementEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnElementEnter: chain(h.OnElementEnter, other.OnElementEnter),
		OnActionStart:  chain(h.OnActionStart, other.OnActionStart),
		OnActionReturn: chain(h.OnActionReturn, other.OnActionReturn),
		OnAbort:        chain(h.OnAbort, other.OnAbort),
		OnRecover:      chain(h.OnRecover, other.OnRecover),
		OnThreadFork:   chain(h.OnThreadFork, other.OnThreadFork),
		OnThreadJoin:   chain(h.OnThreadJoin, other.OnThreadJoin),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
