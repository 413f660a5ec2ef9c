package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/continuity/pkg/ports"
)

// ErrLockAcquire is returned when the lock cannot be acquired.
var ErrLockAcquire = errors.New("failed to acquire lock")

type lease struct {
	token    uint64
	expires  time.Time
	released chan struct{}
}

// Locker implements ports.Locker within one process.
// Safe for concurrent use.
type Locker struct {
	mu     sync.Mutex
	leases map[string]*lease
	seq    uint64
	now    func() time.Time
}

// NewLocker creates a new in-memory locker.
func NewLocker() *Locker {
	return &Locker{
		leases: make(map[string]*lease),
		now:    time.Now,
	}
}

// Lock blocks until key is free, its holder's ttl has elapsed or ctx is done.
// A non-positive ttl never expires.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	for {
		l.mu.Lock()
		now := l.now()
		cur, held := l.leases[key]
		if !held || cur.expired(now) {
			l.seq++
			next := &lease{token: l.seq, released: make(chan struct{})}
			if ttl > 0 {
				next.expires = now.Add(ttl)
			}
			l.leases[key] = next
			l.mu.Unlock()
			return l.unlocker(key, next.token), nil
		}

		released := cur.released
		var expiry <-chan time.Time
		var timer *time.Timer
		if !cur.expires.IsZero() {
			timer = time.NewTimer(cur.expires.Sub(now))
			expiry = timer.C
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil, fmt.Errorf("%w %q: %w", ErrLockAcquire, key, ctx.Err())
		case <-released:
		case <-expiry:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// unlocker releases key only while it is still held with token.
func (l *Locker) unlocker(key string, token uint64) ports.UnlockFunc {
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.leases[key]; ok && cur.token == token {
			delete(l.leases, key)
			close(cur.released)
		}
		return nil
	}
}

// Held reports whether key is currently locked.
func (l *Locker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.leases[key]
	return ok && !cur.expired(l.now())
}

func (ls *lease) expired(now time.Time) bool {
	return !ls.expires.IsZero() && !now.Before(ls.expires)
}
