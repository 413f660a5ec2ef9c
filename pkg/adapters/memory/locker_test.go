package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/continuity/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_LockAndUnlock(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "dvdstore", time.Minute)
	require.NoError(t, err)
	assert.True(t, locker.Held("dvdstore"))
	assert.False(t, locker.Held("cmr"))

	require.NoError(t, unlock(ctx))
	assert.False(t, locker.Held("dvdstore"))
	// Releasing twice is harmless.
	require.NoError(t, unlock(ctx))
}

func TestLocker_MutualExclusion(t *testing.T) {
	locker := memory.NewLocker()
	var inside, maxInside atomic.Int32

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "cmr", 0)
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			_ = unlock(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
}

func TestLocker_CanceledWhileHeld(t *testing.T) {
	locker := memory.NewLocker()
	_, err := locker.Lock(context.Background(), "cmr", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "cmr", time.Minute)
	assert.ErrorIs(t, err, memory.ErrLockAcquire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocker_ExpiredLeaseIsNotReleasedByStaleHolder(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "sock-shop", 10*time.Millisecond)
	require.NoError(t, err)

	// Blocks until the first lease expires.
	fresh, err := locker.Lock(ctx, "sock-shop", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, locker.Held("sock-shop"))

	require.NoError(t, fresh(ctx))
	assert.False(t, locker.Held("sock-shop"))
}
