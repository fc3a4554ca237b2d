package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ProcessesAllJobs(t *testing.T) {
	var sum int64
	pool := New("sum", 3, 10, func(ctx context.Context, n int) {
		atomic.AddInt64(&sum, int64(n))
	})
	pool.Start()

	for i := 1; i <= 10; i++ {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Stop(context.Background()))

	assert.Equal(t, int64(55), atomic.LoadInt64(&sum))
}

func TestPool_SubmitDoesNotBlockWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	pool := New("full", 1, 1, func(ctx context.Context, n int) {
		started <- struct{}{}
		<-release
	})
	pool.Start()

	require.NoError(t, pool.Submit(1))
	<-started // worker busy
	require.NoError(t, pool.Submit(2))

	done := make(chan error, 1)
	go func() { done <- pool.Submit(3) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	close(release)
	require.NoError(t, pool.Stop(context.Background()))
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := New("stopped", 1, 1, func(ctx context.Context, n int) {})
	pool.Start()
	require.NoError(t, pool.Stop(context.Background()))

	assert.ErrorIs(t, pool.Submit(1), ErrPoolStopped)
	assert.NoError(t, pool.Stop(context.Background()), "second stop is a no-op")
}

func TestPool_RecoversFromPanics(t *testing.T) {
	var handled int32
	pool := New("panics", 1, 4, func(ctx context.Context, n int) {
		if n == 1 {
			panic("boom")
		}
		atomic.AddInt32(&handled, 1)
	})
	pool.Start()

	require.NoError(t, pool.Submit(1))
	require.NoError(t, pool.Submit(2))
	require.NoError(t, pool.Stop(context.Background()))

	assert.Equal(t, int32(1), atomic.LoadInt32(&handled))
}

func TestPool_StopTimeoutCancelsHandlers(t *testing.T) {
	var cancelled int32
	pool := New("slow", 1, 1, func(ctx context.Context, n int) {
		<-ctx.Done()
		atomic.StoreInt32(&cancelled, 1)
	})
	pool.Start()
	require.NoError(t, pool.Submit(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&cancelled))
}

func TestPool_ConcurrentSubmitAndStop(t *testing.T) {
	pool := New("race", 4, 64, func(ctx context.Context, n int) {})
	pool.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = pool.Submit(j)
			}
		}()
	}
	go func() { _ = pool.Stop(context.Background()) }()
	wg.Wait()
}
