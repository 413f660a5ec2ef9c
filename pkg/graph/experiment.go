package graph

import (
	"iter"
	"reflect"

	"github.com/aretw0/continuity/pkg/domain"
)

// Experiment is a sealed graph together with its name and shared Context.
type Experiment struct {
	name    string
	first   Element
	context *domain.Context
}

// NewExperiment wraps the first element of a sealed chain.
func NewExperiment(name string, first Element) *Experiment {
	if first == nil {
		first = End
	}
	return &Experiment{
		name:    name,
		first:   first,
		context: domain.NewContext(),
	}
}

func (e *Experiment) Name() string { return e.name }

// First returns the element execution starts from.
func (e *Experiment) First() Element { return e.first }

// Context returns the Context shared by every element of the experiment.
func (e *Experiment) Context() *domain.Context { return e.context }

// All iterates over every reachable element exactly once, END included, in
// breadth-first order over IterateToNext.
func (e *Experiment) All() iter.Seq[Element] {
	return func(yield func(Element) bool) {
		seen := map[Element]bool{e.first: true}
		queue := []Element{e.first}
		for len(queue) > 0 {
			el := queue[0]
			queue = queue[1:]
			if !yield(el) {
				return
			}
			for _, next := range el.IterateToNext() {
				if next != nil && !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
}

// Elements returns the reachable elements as a slice.
func (e *Experiment) Elements() []Element {
	var out []Element
	for el := range e.All() {
		out = append(out, el)
	}
	return out
}

// Actions returns each distinct action reachable in the graph, in traversal order.
// An action value attached to several leaves is returned once when the value is comparable.
func (e *Experiment) Actions() []Action {
	var out []Action
	seen := make(map[Action]bool)
	for el := range e.All() {
		if !el.HasAction() {
			continue
		}
		a := el.Action()
		if reflect.ValueOf(a).Comparable() {
			if seen[a] {
				continue
			}
			seen[a] = true
		}
		out = append(out, a)
	}
	return out
}

// Find returns the element with the given id.
func (e *Experiment) Find(id string) (Element, bool) {
	for el := range e.All() {
		if el.ID() == id {
			return el, true
		}
	}
	return nil, false
}

// Count returns the number of actions a run executes, see Element.Count.
func (e *Experiment) Count() int { return e.first.Count() }

// Render dumps the whole graph.
func (e *Experiment) Render(prefix string) string { return e.first.Render(prefix) }

func (e *Experiment) String() string {
	return "experiment " + e.name + ":\n" + e.first.Render(Indent)
}
