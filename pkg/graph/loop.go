package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/continuity/pkg/domain"
)

// Loop routes into its body a fixed number of times, then to its successor.
// The tail of the body points back at the loop itself.
type Loop struct {
	base
	name  string
	times int
	body  Element
}

// NewLoop creates a loop head. An empty name defaults to the id.
func NewLoop(id, name string, times int) *Loop {
	if name == "" {
		name = id
	}
	return &Loop{
		base:  base{id: id},
		name:  name,
		times: times,
	}
}

func (l *Loop) Kind() Kind { return KindLoop }

// Name returns the label used for the loop's context key.
func (l *Loop) Name() string { return l.name }

// Times returns the configured iteration bound.
func (l *Loop) Times() int { return l.times }

// SetBody sets the entry of the loop body. A nil body makes the loop empty.
func (l *Loop) SetBody(body Element) {
	l.body = body
}

// Body returns the entry of the loop body; an empty body is the loop itself.
func (l *Loop) Body() Element {
	if l.body == nil {
		return l
	}
	return l.body
}

func (l *Loop) UpdateContext(c *domain.Context, st *State) {
	if remaining := st.Remaining(l); remaining > 0 {
		c.Set(LoopIterationKey(l.name), l.times-remaining+1)
	}
}

func (l *Loop) Next(st *State) Element {
	if st.consumeIteration(l) {
		return l.Body()
	}
	return l.successor()
}

// HandleAborted abandons the current iteration and resumes at the loop head,
// which either starts the next iteration or leaves the loop.
func (l *Loop) HandleAborted(abort *domain.AbortError, st *State) Element {
	st.Logger().Debug("abort ends loop iteration", "loop", l.id, "remaining", st.Remaining(l), "err", abort.Cause)
	return l
}

func (l *Loop) IterateToNext() []Element {
	return []Element{l.Body(), l.successor()}
}

func (l *Loop) Count() int { return l.countUntil(nil) }

func (l *Loop) countUntil(stop Element) int {
	if Element(l) == stop {
		return 0
	}
	return l.Body().countUntil(l)*l.times + l.successor().countUntil(stop)
}

func (l *Loop) Render(prefix string) string { return render(l, prefix) }

func (l *Loop) renderUntil(b *strings.Builder, prefix string, depth int, stop Element) {
	if Element(l) == stop {
		return
	}
	writeLine(b, prefix, depth, l.label())
	l.Body().renderUntil(b, prefix, depth+1, l)
	l.successor().renderUntil(b, prefix, depth, stop)
}

func (l *Loop) label() string {
	if l.name == l.id {
		return fmt.Sprintf("loop %d times:", l.times)
	}
	return fmt.Sprintf("loop %s %d times:", l.name, l.times)
}

func (l *Loop) String() string {
	return l.id + " " + strings.TrimSuffix(l.label(), ":")
}
