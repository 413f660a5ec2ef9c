package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/continuity/pkg/domain"
)

// Indent is the indentation unit used for every nesting level of a rendered graph.
const Indent = "    "

// Kind identifies the concrete type of an element.
type Kind string

const (
	KindAction     Kind = "action"
	KindLoop       Kind = "loop"
	KindBranch     Kind = "branch"
	KindConcurrent Kind = "concurrent"
	KindMerge      Kind = "merge"
	KindJoin       Kind = "join"
	KindEnd        Kind = "end"
)

// Element is one node of the control-flow graph.
type Element interface {
	// ID is unique within an experiment.
	ID() string
	Kind() Kind

	// UpdateContext is invoked right before the element's action (if any) executes.
	// It may only mutate the Context and the run State, never the graph.
	UpdateContext(c *domain.Context, st *State)

	HasAction() bool
	// Action returns the held action, or nil.
	Action() Action

	// Next returns the element to visit after a successful visit.
	Next(st *State) Element
	// SetNextOrFail sets the successor, or fails with domain.ErrUnsupportedOperation.
	SetNextOrFail(next Element) error

	// Count returns the number of actions in this element and its successors.
	Count() int
	IsEnd() bool

	// Render dumps the element and its successors, one line per element,
	// every line prefixed by prefix plus one Indent per nesting level.
	Render(prefix string) string
	String() string

	// HandleAborted decides where execution resumes after abort was raised in the
	// context of this element. A nil result means the abort is not handled here.
	HandleAborted(abort *domain.AbortError, st *State) Element

	// IterateToNext returns every structural successor, without running anything.
	IterateToNext() []Element

	// Scope returns the head of the innermost construct enclosing the element, or End.
	Scope() Element

	countUntil(stop Element) int
	renderUntil(b *strings.Builder, prefix string, depth int, stop Element)
}

// base holds what every non-terminal element shares.
type base struct {
	id    string
	next  Element
	scope Element
}

func (e *base) ID() string { return e.id }

func (e *base) HasAction() bool { return false }

func (e *base) Action() Action { return nil }

func (e *base) IsEnd() bool { return false }

func (e *base) UpdateContext(*domain.Context, *State) {}

func (e *base) SetNextOrFail(next Element) error {
	if next == nil {
		return fmt.Errorf("%s: next must not be nil", e.id)
	}
	e.next = next
	return nil
}

// SetScope records the head of the construct enclosing the element.
func (e *base) SetScope(scope Element) {
	e.scope = scope
}

func (e *base) Scope() Element {
	if e.scope == nil {
		return End
	}
	return e.scope
}

// successor treats an unset successor as End so that unsealed graphs can be inspected.
func (e *base) successor() Element {
	if e.next == nil {
		return End
	}
	return e.next
}

func (e *base) HandleAborted(*domain.AbortError, *State) Element { return nil }

func writeLine(b *strings.Builder, prefix string, depth int, text string) {
	b.WriteString(prefix)
	b.WriteString(strings.Repeat(Indent, depth))
	b.WriteString(text)
	b.WriteByte('\n')
}

func render(e Element, prefix string) string {
	var b strings.Builder
	e.renderUntil(&b, prefix, 0, nil)
	return b.String()
}

// LoopIterationKey is the context key under which a loop publishes its current 1-based iteration.
func LoopIterationKey(name string) string {
	return "loop." + name + ".iteration"
}

// BranchKey is the context key under which a branch publishes the label of the arm it takes.
func BranchKey(name string) string {
	return "branch." + name
}
