package graph

import (
	"io"
	"log/slog"
	"sync"
)

// State carries the decisions of one run that must not live in the shared graph:
// remaining loop iterations, the arm chosen by a branch visit and retry attempts.
// A State belongs to exactly one run and is safe for use by its concurrent threads.
type State struct {
	mu        sync.Mutex
	remaining map[*Loop]int
	decisions map[*Branch]int
	attempts  map[*Leaf]int
	logger    *slog.Logger
}

// NewState creates the State of a new run. A nil logger discards output.
func NewState(logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &State{
		remaining: make(map[*Loop]int),
		decisions: make(map[*Branch]int),
		attempts:  make(map[*Leaf]int),
		logger:    logger,
	}
}

// Logger returns the logger of the run.
func (s *State) Logger() *slog.Logger {
	return s.logger
}

// Remaining returns the iterations l still has to run in the current entry of the loop.
func (s *State) Remaining(l *Loop) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked(l)
}

func (s *State) remainingLocked(l *Loop) int {
	if n, ok := s.remaining[l]; ok {
		return n
	}
	return l.times
}

// consumeIteration decrements the counter of l and reports whether an iteration was
// left. When none is left the counter is reset, so the next entry starts over.
func (s *State) consumeIteration(l *Loop) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.remainingLocked(l)
	if n <= 0 {
		delete(s.remaining, l)
		return false
	}
	s.remaining[l] = n - 1
	return true
}

func (s *State) decide(b *Branch, arm int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[b] = arm
}

func (s *State) takeDecision(b *Branch) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	arm, ok := s.decisions[b]
	delete(s.decisions, b)
	return arm, ok
}

// Attempts returns how many times l has been retried since its last success.
func (s *State) Attempts(l *Leaf) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[l]
}

func (s *State) retry(l *Leaf, max int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempts[l] >= max {
		delete(s.attempts, l)
		return false
	}
	s.attempts[l]++
	return true
}

func (s *State) clearAttempts(l *Leaf) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, l)
}
