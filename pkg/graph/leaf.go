package graph

import (
	"strings"

	"github.com/aretw0/continuity/pkg/domain"
)

// Leaf is an element holding an action.
type Leaf struct {
	base
	action Action
	policy AbortPolicy
}

// NewLeaf creates an action element.
func NewLeaf(id string, action Action, policy AbortPolicy) *Leaf {
	return &Leaf{
		base:   base{id: id},
		action: action,
		policy: policy,
	}
}

func (l *Leaf) Kind() Kind { return KindAction }

func (l *Leaf) HasAction() bool { return l.action != nil }

func (l *Leaf) Action() Action { return l.action }

// Policy returns the abort policy of the leaf.
func (l *Leaf) Policy() AbortPolicy { return l.policy }

func (l *Leaf) Next(st *State) Element {
	st.clearAttempts(l)
	return l.successor()
}

func (l *Leaf) HandleAborted(abort *domain.AbortError, st *State) Element {
	switch l.policy.mode {
	case modeSkip:
		st.Logger().Debug("abort skipped", "element", l.id, "err", abort.Cause)
		return l.successor()
	case modeRetry:
		if st.retry(l, l.policy.retries) {
			st.Logger().Debug("retrying aborted action", "element", l.id, "attempt", st.Attempts(l))
			return l
		}
	}
	return nil
}

func (l *Leaf) IterateToNext() []Element {
	return []Element{l.successor()}
}

func (l *Leaf) Count() int { return l.countUntil(nil) }

func (l *Leaf) countUntil(stop Element) int {
	if Element(l) == stop {
		return 0
	}
	return 1 + l.successor().countUntil(stop)
}

func (l *Leaf) Render(prefix string) string { return render(l, prefix) }

func (l *Leaf) renderUntil(b *strings.Builder, prefix string, depth int, stop Element) {
	if Element(l) == stop {
		return
	}
	writeLine(b, prefix, depth, ActionName(l.action))
	l.successor().renderUntil(b, prefix, depth, stop)
}

func (l *Leaf) String() string {
	return l.id + " " + ActionName(l.action)
}
