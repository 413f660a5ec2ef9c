package graph

import (
	"strings"

	"github.com/aretw0/continuity/pkg/domain"
)

const fallThrough = -1

type arm struct {
	cond  *Condition // nil for the else arm
	entry Element
}

// Branch follows the first arm whose condition holds. Without a matching arm (and
// without an else arm) it falls through to its successor, the merge element where
// every arm reconverges.
type Branch struct {
	base
	name string
	arms []arm
}

// NewBranch creates a branch head. An empty name defaults to the id.
func NewBranch(id, name string) *Branch {
	if name == "" {
		name = id
	}
	return &Branch{base: base{id: id}, name: name}
}

func (b *Branch) Kind() Kind { return KindBranch }

// Name returns the label used for the branch's context key.
func (b *Branch) Name() string { return b.name }

// AddArm appends a conditional arm. A nil entry means the arm is empty.
func (b *Branch) AddArm(cond Condition, entry Element) {
	b.arms = append(b.arms, arm{cond: &cond, entry: entry})
}

// AddElse appends the arm taken when no condition holds.
func (b *Branch) AddElse(entry Element) {
	b.arms = append(b.arms, arm{entry: entry})
}

// Arms returns the number of arms, the else arm included.
func (b *Branch) Arms() int { return len(b.arms) }

// Arm returns the label and the entry of arm i. Empty arms start at the merge.
func (b *Branch) Arm(i int) (string, Element) {
	return b.armLabel(i), b.armEntry(i)
}

func (b *Branch) armEntry(i int) Element {
	if i == fallThrough || b.arms[i].entry == nil {
		return b.successor()
	}
	return b.arms[i].entry
}

func (b *Branch) evaluate(c *domain.Context) int {
	for i, a := range b.arms {
		if a.cond == nil || a.cond.Eval(c) {
			return i
		}
	}
	return fallThrough
}

func (b *Branch) armLabel(i int) string {
	switch {
	case i == fallThrough:
		return "none"
	case b.arms[i].cond == nil:
		return "else"
	}
	return b.arms[i].cond.String()
}

// UpdateContext evaluates the conditions once per visit and publishes the arm taken.
func (b *Branch) UpdateContext(c *domain.Context, st *State) {
	i := b.evaluate(c)
	st.decide(b, i)
	c.Set(BranchKey(b.name), b.armLabel(i))
}

func (b *Branch) Next(st *State) Element {
	i, ok := st.takeDecision(b)
	if !ok {
		return b.successor()
	}
	return b.armEntry(i)
}

func (b *Branch) IterateToNext() []Element {
	out := make([]Element, 0, len(b.arms)+1)
	for i := range b.arms {
		out = append(out, b.armEntry(i))
	}
	return append(out, b.successor())
}

func (b *Branch) Count() int { return b.countUntil(nil) }

func (b *Branch) countUntil(stop Element) int {
	if Element(b) == stop {
		return 0
	}
	longest := 0
	for i := range b.arms {
		if n := b.armEntry(i).countUntil(b.successor()); n > longest {
			longest = n
		}
	}
	return longest + b.successor().countUntil(stop)
}

func (b *Branch) Render(prefix string) string { return render(b, prefix) }

func (b *Branch) renderUntil(sb *strings.Builder, prefix string, depth int, stop Element) {
	if Element(b) == stop {
		return
	}
	for i, a := range b.arms {
		switch {
		case a.cond == nil:
			writeLine(sb, prefix, depth, "else:")
		case i == 0:
			writeLine(sb, prefix, depth, "if "+a.cond.String()+":")
		default:
			writeLine(sb, prefix, depth, "else if "+a.cond.String()+":")
		}
		b.armEntry(i).renderUntil(sb, prefix, depth+1, b.successor())
	}
	b.successor().renderUntil(sb, prefix, depth, stop)
}

func (b *Branch) String() string {
	labels := make([]string, len(b.arms))
	for i := range b.arms {
		labels[i] = b.armLabel(i)
	}
	return b.id + " branch " + b.name + " [" + strings.Join(labels, ", ") + "]"
}
