package graph

import (
	"fmt"
	"strings"
)

// Concurrent forks one logical thread per entry point. Every thread runs until it
// reaches the join element, the successor of the fork, where control reconverges.
type Concurrent struct {
	base
	threads []Element
}

// NewConcurrent creates a fork head.
func NewConcurrent(id string) *Concurrent {
	return &Concurrent{base: base{id: id}}
}

func (c *Concurrent) Kind() Kind { return KindConcurrent }

// AddThread appends a thread. A nil entry means the thread is empty.
func (c *Concurrent) AddThread(entry Element) {
	c.threads = append(c.threads, entry)
}

// Threads returns the entry point of every thread. Empty threads start at the join.
func (c *Concurrent) Threads() []Element {
	out := make([]Element, len(c.threads))
	for i, t := range c.threads {
		if t == nil {
			t = c.successor()
		}
		out[i] = t
	}
	return out
}

// Join returns the element at which all threads reconverge.
func (c *Concurrent) Join() Element { return c.successor() }

// Next returns the join. Running the threads is up to the engine.
func (c *Concurrent) Next(*State) Element { return c.successor() }

func (c *Concurrent) IterateToNext() []Element {
	return append(c.Threads(), c.successor())
}

func (c *Concurrent) Count() int { return c.countUntil(nil) }

func (c *Concurrent) countUntil(stop Element) int {
	if Element(c) == stop {
		return 0
	}
	total := 0
	for _, t := range c.Threads() {
		total += t.countUntil(c.successor())
	}
	return total + c.successor().countUntil(stop)
}

func (c *Concurrent) Render(prefix string) string { return render(c, prefix) }

func (c *Concurrent) renderUntil(b *strings.Builder, prefix string, depth int, stop Element) {
	if Element(c) == stop {
		return
	}
	writeLine(b, prefix, depth, "concurrently:")
	for i, t := range c.Threads() {
		writeLine(b, prefix, depth+1, fmt.Sprintf("thread %d:", i+1))
		t.renderUntil(b, prefix, depth+2, c.successor())
	}
	c.successor().renderUntil(b, prefix, depth, stop)
}

func (c *Concurrent) String() string {
	return fmt.Sprintf("%s concurrent (%d threads)", c.id, len(c.threads))
}
