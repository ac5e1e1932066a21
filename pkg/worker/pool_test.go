package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ProcessesWork(t *testing.T) {
	var processed atomic.Int64

	pool, err := NewPool(2, 10, func(_ context.Context, _ int) error {
		processed.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, pool.Start(context.Background()))

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(i))
	}

	require.NoError(t, pool.Stop(time.Second))
	assert.Equal(t, int64(5), processed.Load())

	stats := pool.Stats()
	assert.Equal(t, int64(5), stats.Submitted)
	assert.Equal(t, int64(5), stats.Processed)
	assert.Equal(t, int64(0), stats.Failed)
}

func TestPool_SubmitBeforeStart(t *testing.T) {
	pool, err := NewPool(1, 1, func(_ context.Context, _ int) error { return nil })
	require.NoError(t, err)

	assert.ErrorIs(t, pool.Submit(1), ErrPoolNotStarted)
}

func TestPool_QueueFull(t *testing.T) {
	block := make(chan struct{})
	pool, err := NewPool(1, 1, func(_ context.Context, _ int) error {
		<-block
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	// First item occupies the worker, second fills the queue
	require.NoError(t, pool.Submit(1))
	var full bool
	for i := 0; i < 10; i++ {
		if err := pool.Submit(i); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	assert.True(t, full)

	close(block)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPool_FailedWorkCounted(t *testing.T) {
	pool, err := NewPool(1, 10, func(_ context.Context, n int) error {
		if n%2 == 1 {
			return errors.New("odd")
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Stop(time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(4), stats.Processed)
	assert.Equal(t, int64(2), stats.Failed)
}

func TestPool_DoubleStart(t *testing.T) {
	pool, err := NewPool(1, 1, func(_ context.Context, _ int) error { return nil })
	require.NoError(t, err)

	require.NoError(t, pool.Start(context.Background()))
	assert.ErrorIs(t, pool.Start(context.Background()), ErrPoolAlreadyStarted)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPool_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	var wg sync.WaitGroup
	wg.Add(1)
	pool, err := NewPool(1, 10, func(_ context.Context, _ int) error {
		wg.Done()
		return nil
	}, WithMetrics[int](reg, "receive_pool"))
	require.NoError(t, err)

	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Submit(1))
	wg.Wait()
	require.NoError(t, pool.Stop(time.Second))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "receive_pool_submitted_total")
	assert.Contains(t, names, "receive_pool_processed_total")
}
