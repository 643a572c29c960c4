package lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalLockerExclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewLocal()

	release, err := l.TryLock(ctx, "2025-10")
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "2025-10")
	require.ErrorIs(t, err, ErrHeld)

	other, err := l.TryLock(ctx, "2025-11")
	require.NoError(t, err, "different periods do not contend")
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))

	again, err := l.TryLock(ctx, "2025-10")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLocalLockerConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewLocal()

	var wins atomic.Int32
	var attempted, done sync.WaitGroup
	hold := make(chan struct{})
	for i := 0; i < 16; i++ {
		attempted.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			release, err := l.TryLock(ctx, "p")
			attempted.Done()
			if err != nil {
				return
			}
			wins.Add(1)
			<-hold
			_ = release(ctx)
		}()
	}
	attempted.Wait()
	close(hold)
	done.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("GLRECON_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GLRECON_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	l, rdb, err := Dial(ctx, addr, time.Minute)
	require.NoError(t, err)
	defer rdb.Close()

	key := "test-" + time.Now().Format("150405.000000")
	release, err := l.TryLock(ctx, key)
	require.NoError(t, err)
	_, err = l.TryLock(ctx, key)
	require.ErrorIs(t, err, ErrHeld)
	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))
}
