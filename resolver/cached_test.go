package resolver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/errors"
)

type fakeResolver struct {
	profiles map[string]*entity.Entity
	calls    atomic.Int64
	delay    time.Duration
}

func (f *fakeResolver) RetrieveProfile(_ context.Context, identifier string) (*entity.Entity, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	profile, ok := f.profiles[identifier]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrResolutionNotFound, "test", "RetrieveProfile", identifier)
	}
	return profile, nil
}

func testProfile(t *testing.T, id string) *entity.Entity {
	t.Helper()
	profile, err := entity.NewProfile(id)
	require.NoError(t, err)
	return profile
}

func TestCachedResolver_CachesProfiles(t *testing.T) {
	id := "https://r.local/profile/1/"
	inner := &fakeResolver{profiles: map[string]*entity.Entity{id: testProfile(t, id)}}

	r, err := NewCached(context.Background(), inner, time.Minute)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	for i := 0; i < 5; i++ {
		profile, err := r.RetrieveProfile(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, profile.ID)
	}

	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestCachedResolver_DeduplicatesInFlight(t *testing.T) {
	id := "https://r.local/profile/1/"
	inner := &fakeResolver{
		profiles: map[string]*entity.Entity{id: testProfile(t, id)},
		delay:    30 * time.Millisecond,
	}

	r, err := NewCached(context.Background(), inner, time.Minute)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.RetrieveProfile(context.Background(), id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), inner.calls.Load())
}

func TestCachedResolver_FailuresNotCached(t *testing.T) {
	inner := &fakeResolver{profiles: map[string]*entity.Entity{}}

	r, err := NewCached(context.Background(), inner, time.Minute)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	for i := 0; i < 3; i++ {
		_, err := r.RetrieveProfile(context.Background(), "https://r.local/profile/missing/")
		assert.ErrorIs(t, err, errors.ErrResolutionNotFound)
	}

	assert.Equal(t, int64(3), inner.calls.Load())
}

func TestCachedResolver_Invalidate(t *testing.T) {
	id := "https://r.local/profile/1/"
	inner := &fakeResolver{profiles: map[string]*entity.Entity{id: testProfile(t, id)}}

	r, err := NewCached(context.Background(), inner, time.Minute)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	_, err = r.RetrieveProfile(context.Background(), id)
	require.NoError(t, err)

	r.Invalidate(id)

	_, err = r.RetrieveProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.calls.Load())
}
