package graph

import (
	"context"
	"fmt"

	"github.com/aretw0/continuity/pkg/domain"
)

// Action is the unit of work attached to a Leaf.
type Action interface {
	// Execute performs the work. Returning an error built with domain.Abort makes it
	// recoverable by the graph; any other error fails the run.
	Execute(ctx context.Context, c *domain.Context) error

	// BypassExperiment is called exactly once when the experiment is built,
	// before anything runs.
	BypassExperiment(exp *Experiment)
}

// ActionFunc adapts a plain function to the Action interface. Its bypass hook is a no-op.
type ActionFunc func(ctx context.Context, c *domain.Context) error

func (f ActionFunc) Execute(ctx context.Context, c *domain.Context) error {
	return f(ctx, c)
}

func (f ActionFunc) BypassExperiment(*Experiment) {}

// Named is implemented by actions that carry a diagnostic name.
type Named interface {
	Name() string
}

// ActionName returns a human readable name for a.
func ActionName(a Action) string {
	switch v := a.(type) {
	case nil:
		return ""
	case Named:
		return v.Name()
	case fmt.Stringer:
		return v.String()
	case ActionFunc:
		return "func"
	}
	return fmt.Sprintf("%T", a)
}

// Condition guards a branch arm.
type Condition struct {
	Name string
	Eval func(c *domain.Context) bool
}

// NewCondition creates a named condition.
func NewCondition(name string, eval func(c *domain.Context) bool) Condition {
	return Condition{Name: name, Eval: eval}
}

func (c Condition) String() string {
	if c.Name == "" {
		return "?"
	}
	return c.Name
}
