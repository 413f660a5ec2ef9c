package graph

import "fmt"

type abortMode int

const (
	modePropagate abortMode = iota
	modeSkip
	modeRetry
)

// AbortPolicy decides how a Leaf reacts to an abort raised by its own action.
type AbortPolicy struct {
	mode    abortMode
	retries int
}

var (
	// Propagate leaves the abort to the enclosing constructs. It is the default.
	Propagate = AbortPolicy{mode: modePropagate}

	// SkipOnAbort resumes at the successor of the leaf.
	SkipOnAbort = AbortPolicy{mode: modeSkip}
)

// RetryOnAbort re-executes the leaf up to n more times before propagating.
func RetryOnAbort(n int) AbortPolicy {
	if n <= 0 {
		return Propagate
	}
	return AbortPolicy{mode: modeRetry, retries: n}
}

func (p AbortPolicy) String() string {
	switch p.mode {
	case modeSkip:
		return "skip"
	case modeRetry:
		return fmt.Sprintf("retry(%d)", p.retries)
	}
	return "propagate"
}
