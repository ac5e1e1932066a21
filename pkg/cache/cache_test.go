package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleCache_GetSet(t *testing.T) {
	c, err := NewSimple[string]()
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	created, err := c.Set("actor", "profile-data")
	require.NoError(t, err)
	assert.True(t, created)

	value, found := c.Get("actor")
	assert.True(t, found)
	assert.Equal(t, "profile-data", value)

	// Updating an existing key reports created=false
	created, err = c.Set("actor", "updated")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSimpleCache_Miss(t *testing.T) {
	c, err := NewSimple[string]()
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, found := c.Get("absent")
	assert.False(t, found)
	assert.Equal(t, int64(1), c.Stats().Misses())
}

func TestSimpleCache_EmptyKeyRejected(t *testing.T) {
	c, err := NewSimple[string]()
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Set("", "value")
	require.Error(t, err)
}

func TestSimpleCache_DeleteAndClear(t *testing.T) {
	c, err := NewSimple[int]()
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Set("a", 1)
	require.NoError(t, err)
	_, err = c.Set("b", 2)
	require.NoError(t, err)

	existed, err := c.Delete("a")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, 1, c.Size())

	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Size())
}

func TestTTLCache_Expiry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := NewTTL[string](ctx, 20*time.Millisecond, 10*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Set("actor", "profile")
	require.NoError(t, err)

	value, found := c.Get("actor")
	assert.True(t, found)
	assert.Equal(t, "profile", value)

	time.Sleep(40 * time.Millisecond)

	_, found = c.Get("actor")
	assert.False(t, found)
}

func TestTTLCache_InvalidTTL(t *testing.T) {
	_, err := NewTTL[string](context.Background(), 0, time.Second)
	require.Error(t, err)
}

func TestTTLCache_EvictCallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	evicted := map[string]string{}

	c, err := NewTTL[string](ctx, 15*time.Millisecond, 5*time.Millisecond,
		WithEvictCallback[string](func(key, value string) {
			mu.Lock()
			evicted[key] = value
			mu.Unlock()
		}))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Set("actor", "profile")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return evicted["actor"] == "profile"
	}, time.Second, 10*time.Millisecond)
}

func TestCacheMetrics_Registration(t *testing.T) {
	reg := prometheus.NewRegistry()

	c, err := NewSimple[string](WithMetrics[string](reg, "resolver_cache"))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Set("actor", "profile")
	require.NoError(t, err)
	c.Get("actor")
	c.Get("missing")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "resolver_cache_hits_total")
	assert.Contains(t, names, "resolver_cache_misses_total")
}

func TestStatistics_HitRate(t *testing.T) {
	s := NewStatistics()
	assert.Equal(t, float64(0), s.HitRate())

	s.Hit()
	s.Hit()
	s.Miss()
	assert.InDelta(t, 0.666, s.HitRate(), 0.01)
}
