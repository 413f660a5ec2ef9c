package dsl

import "github.com/aretw0/continuity/pkg/graph"

type scopeKind int

const (
	scopeRoot scopeKind = iota
	scopeLoop
	scopeBranch
	scopeConcurrent
)

func (k scopeKind) String() string {
	switch k {
	case scopeLoop:
		return "loop"
	case scopeBranch:
		return "branch"
	case scopeConcurrent:
		return "concurrent"
	}
	return "root"
}

// segment is a chain under construction: a loop body, a branch arm or a thread.
type segment struct {
	entry graph.Element
	tail  graph.Element
	cond  *graph.Condition // branch arms only; nil for the else arm
}

// scope is an open construct together with its current append point.
type scope struct {
	kind scopeKind
	head graph.Element // nil for the root scope

	current segment
	done    []segment
	hasElse bool
}

// finish moves the current segment to the completed ones.
func (s *scope) finish() {
	s.done = append(s.done, s.current)
	s.current = segment{}
}

type scoped interface {
	SetScope(graph.Element)
}
