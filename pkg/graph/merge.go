package graph

import "strings"

// Merge is the action-less element at which branch arms or concurrent threads reconverge.
type Merge struct {
	base
	kind Kind
}

// NewMerge creates the merge point of a branch.
func NewMerge(id string) *Merge {
	return &Merge{base: base{id: id}, kind: KindMerge}
}

// NewJoin creates the join point of a concurrent element.
func NewJoin(id string) *Merge {
	return &Merge{base: base{id: id}, kind: KindJoin}
}

func (m *Merge) Kind() Kind { return m.kind }

func (m *Merge) Next(*State) Element { return m.successor() }

func (m *Merge) IterateToNext() []Element {
	return []Element{m.successor()}
}

func (m *Merge) Count() int { return m.countUntil(nil) }

func (m *Merge) countUntil(stop Element) int {
	if Element(m) == stop {
		return 0
	}
	return m.successor().countUntil(stop)
}

func (m *Merge) Render(prefix string) string { return render(m, prefix) }

func (m *Merge) renderUntil(b *strings.Builder, prefix string, depth int, stop Element) {
	if Element(m) == stop {
		return
	}
	m.successor().renderUntil(b, prefix, depth, stop)
}

func (m *Merge) String() string {
	return m.id + " " + string(m.kind)
}
