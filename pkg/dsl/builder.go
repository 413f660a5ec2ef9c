package dsl

import (
	"fmt"
	"strings"

	"github.com/aretw0/continuity/pkg/domain"
	"github.com/aretw0/continuity/pkg/graph"
)

// Builder manages the experiment construction. It is not safe for concurrent use.
type Builder struct {
	name   string
	seq    int
	stack  []*scope
	sealed bool
	err    error
}

// New creates a new experiment builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		stack: []*scope{{kind: scopeRoot}},
	}
}

// Err returns the first construction error, if any.
func (b *Builder) Err() error {
	return b.err
}

// Append adds an action after the current cursor. Aborts raised by the action are
// left to the enclosing constructs.
func (b *Builder) Append(action graph.Action) *Builder {
	return b.AppendWithPolicy(action, graph.Propagate)
}

// AppendWithPolicy adds an action that reacts to its own aborts according to policy.
func (b *Builder) AppendWithPolicy(action graph.Action, policy graph.AbortPolicy) *Builder {
	if !b.check("append") {
		return b
	}
	if action == nil {
		return b.fail("append", "action must not be nil")
	}
	b.link(graph.NewLeaf(b.nextID("action"), action, policy))
	return b
}

// Loop opens a loop scope whose body runs times times.
func (b *Builder) Loop(times int) *Builder {
	return b.LoopNamed("", times)
}

// LoopNamed is like Loop; name labels the loop's iteration key in the Context.
func (b *Builder) LoopNamed(name string, times int) *Builder {
	if !b.check("loop") {
		return b
	}
	if times < 0 {
		return b.fail("loop", "iteration bound must not be negative, got %d", times)
	}
	loop := graph.NewLoop(b.nextID("loop"), name, times)
	b.link(loop)
	b.push(&scope{kind: scopeLoop, head: loop})
	return b
}

// IfThen opens a branch scope with its first arm. An empty name is rendered as "?".
func (b *Builder) IfThen(name string, cond func(*domain.Context) bool) *Builder {
	if !b.check("if") {
		return b
	}
	if cond == nil {
		return b.fail("if", "condition must not be nil")
	}
	branch := graph.NewBranch(b.nextID("branch"), "")
	b.link(branch)
	c := graph.NewCondition(name, cond)
	b.push(&scope{kind: scopeBranch, head: branch, current: segment{cond: &c}})
	return b
}

// ElseIf closes the current arm of the innermost branch and opens a new conditional arm.
func (b *Builder) ElseIf(name string, cond func(*domain.Context) bool) *Builder {
	if !b.check("else-if") {
		return b
	}
	s := b.top()
	switch {
	case s.kind != scopeBranch:
		return b.fail("else-if", "no open branch (innermost scope is %s)", s.kind)
	case s.hasElse:
		return b.fail("else-if", "else arm already opened")
	case cond == nil:
		return b.fail("else-if", "condition must not be nil")
	}
	s.finish()
	c := graph.NewCondition(name, cond)
	s.current.cond = &c
	return b
}

// Else closes the current arm of the innermost branch and opens its else arm.
func (b *Builder) Else() *Builder {
	if !b.check("else") {
		return b
	}
	s := b.top()
	switch {
	case s.kind != scopeBranch:
		return b.fail("else", "no open branch (innermost scope is %s)", s.kind)
	case s.hasElse:
		return b.fail("else", "else arm already opened")
	}
	s.finish()
	s.hasElse = true
	return b
}

// NewThread starts a new thread of the innermost concurrent scope, or opens a
// concurrent scope with its first thread when the innermost scope is not one.
func (b *Builder) NewThread() *Builder {
	if !b.check("thread") {
		return b
	}
	if s := b.top(); s.kind == scopeConcurrent {
		s.finish()
		return b
	}
	return b.Fork()
}

// Fork always opens a new concurrent scope with its first thread, which allows
// nesting a concurrent construct directly inside a thread.
func (b *Builder) Fork() *Builder {
	if !b.check("fork") {
		return b
	}
	fork := graph.NewConcurrent(b.nextID("concurrent"))
	b.link(fork)
	b.push(&scope{kind: scopeConcurrent, head: fork})
	return b
}

// Close closes the innermost scope: the loop body is wired back to the loop head,
// branch arms and threads are wired to a shared merge or join element.
func (b *Builder) Close() *Builder {
	if !b.check("close") {
		return b
	}
	s := b.top()
	if s.kind == scopeRoot {
		return b.fail("close", "no open scope")
	}
	b.stack = b.stack[:len(b.stack)-1]

	var err error
	switch s.kind {
	case scopeLoop:
		err = b.closeLoop(s)
	case scopeBranch:
		err = b.closeBranch(s)
	case scopeConcurrent:
		err = b.closeConcurrent(s)
	}
	if err != nil {
		return b.fail("close", "%v", err)
	}
	return b
}

func (b *Builder) closeLoop(s *scope) error {
	loop := s.head.(*graph.Loop)
	loop.SetBody(s.current.entry)
	if s.current.tail != nil {
		return s.current.tail.SetNextOrFail(loop)
	}
	return nil
}

func (b *Builder) closeBranch(s *scope) error {
	s.finish()
	branch := s.head.(*graph.Branch)
	merge := graph.NewMerge(b.nextID("merge"))
	for _, seg := range s.done {
		if seg.tail != nil {
			if err := seg.tail.SetNextOrFail(merge); err != nil {
				return err
			}
		}
		if seg.cond != nil {
			branch.AddArm(*seg.cond, seg.entry)
		} else {
			branch.AddElse(seg.entry)
		}
	}
	return b.converge(branch, merge)
}

func (b *Builder) closeConcurrent(s *scope) error {
	s.finish()
	fork := s.head.(*graph.Concurrent)
	join := graph.NewJoin(b.nextID("join"))
	for _, seg := range s.done {
		if seg.tail != nil {
			if err := seg.tail.SetNextOrFail(join); err != nil {
				return err
			}
		}
		fork.AddThread(seg.entry)
	}
	return b.converge(fork, join)
}

// converge makes point the successor of head and the new cursor of the enclosing scope.
func (b *Builder) converge(head graph.Element, point *graph.Merge) error {
	parent := b.top()
	point.SetScope(parent.head)
	if err := head.SetNextOrFail(point); err != nil {
		return err
	}
	parent.current.tail = point
	return nil
}

// Build seals the chain with END, creates the Experiment and calls the bypass hook of
// every distinct action exactly once.
func (b *Builder) Build() (*graph.Experiment, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.sealed {
		return nil, domain.NewConstructionError("build", "experiment %q already built", b.name)
	}
	if len(b.stack) > 1 {
		open := make([]string, 0, len(b.stack)-1)
		for _, s := range b.stack[1:] {
			open = append(open, s.kind.String())
		}
		return nil, domain.NewConstructionError("build", "unclosed scopes: %s", strings.Join(open, " > "))
	}

	root := b.top()
	first := root.current.entry
	if root.current.tail != nil {
		if err := root.current.tail.SetNextOrFail(graph.End); err != nil {
			return nil, fmt.Errorf("failed to seal experiment: %w", err)
		}
	}
	b.sealed = true

	exp := graph.NewExperiment(b.name, first)
	for _, action := range exp.Actions() {
		action.BypassExperiment(exp)
	}
	return exp, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *graph.Experiment {
	exp, err := b.Build()
	if err != nil {
		panic(err)
	}
	return exp
}

func (b *Builder) top() *scope {
	return b.stack[len(b.stack)-1]
}

func (b *Builder) push(s *scope) {
	b.stack = append(b.stack, s)
}

func (b *Builder) nextID(kind string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", kind, b.seq)
}

// link appends e after the cursor of the innermost scope.
func (b *Builder) link(e graph.Element) {
	s := b.top()
	if sc, ok := e.(scoped); ok {
		sc.SetScope(s.head)
	}
	if s.current.tail == nil {
		s.current.entry = e
	} else if err := s.current.tail.SetNextOrFail(e); err != nil {
		b.fail("link", "%v", err)
		return
	}
	s.current.tail = e
}

func (b *Builder) check(op string) bool {
	if b.err != nil {
		return false
	}
	if b.sealed {
		b.fail(op, "experiment %q already built", b.name)
		return false
	}
	return true
}

func (b *Builder) fail(op, format string, args ...any) *Builder {
	if b.err == nil {
		b.err = domain.NewConstructionError(op, format, args...)
	}
	return b
}
