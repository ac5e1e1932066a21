package resolver

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/trusttri/federation/entity"
	"github.com/trusttri/federation/pkg/cache"
)

// CachedResolver wraps a Resolver with a TTL cache and in-flight
// deduplication: concurrent resolutions of the same identifier share one
// fetch, and repeated calls within the cache window return the cached
// profile. Failures are not cached.
type CachedResolver struct {
	inner  Resolver
	cache  cache.Cache[*entity.Entity]
	group  singleflight.Group
	logger *slog.Logger
}

// CachedOption is a configuration option for the cached resolver.
type CachedOption func(*CachedResolver)

// WithCache injects a specific cache instead of the default TTL cache.
func WithCache(c cache.Cache[*entity.Entity]) CachedOption {
	return func(r *CachedResolver) {
		r.cache = c
	}
}

// WithCachedLogger sets the structured logger.
func WithCachedLogger(logger *slog.Logger) CachedOption {
	return func(r *CachedResolver) {
		r.logger = logger
	}
}

// NewCached creates a caching resolver around inner with the given profile
// TTL. The background expiry goroutine stops when ctx is cancelled or the
// resolver is closed.
func NewCached(ctx context.Context, inner Resolver, ttl time.Duration, opts ...CachedOption) (*CachedResolver, error) {
	r := &CachedResolver{
		inner:  inner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.cache == nil {
		c, err := cache.NewTTL[*entity.Entity](ctx, ttl, ttl/4)
		if err != nil {
			return nil, err
		}
		r.cache = c
	}
	return r, nil
}

// RetrieveProfile returns the cached profile when fresh, otherwise performs
// at most one concurrent fetch per identifier.
func (r *CachedResolver) RetrieveProfile(ctx context.Context, identifier string) (*entity.Entity, error) {
	if profile, ok := r.cache.Get(identifier); ok {
		return profile, nil
	}

	result, err, shared := r.group.Do(identifier, func() (any, error) {
		// Re-check under the flight lock: a concurrent fetch may have
		// populated the cache while this caller waited.
		if profile, ok := r.cache.Get(identifier); ok {
			return profile, nil
		}

		profile, err := r.inner.RetrieveProfile(ctx, identifier)
		if err != nil {
			return nil, err
		}
		if _, err := r.cache.Set(identifier, profile); err != nil {
			r.logger.Warn("profile cache store failed", "identifier", identifier, "error", err)
		}
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("profile fetch deduplicated", "identifier", identifier)
	}
	return result.(*entity.Entity), nil
}

// Invalidate drops a cached profile, forcing the next resolution to fetch.
func (r *CachedResolver) Invalidate(identifier string) {
	_, _ = r.cache.Delete(identifier)
}

// Stats returns cache statistics.
func (r *CachedResolver) Stats() *cache.Statistics {
	return r.cache.Stats()
}

// Close releases the cache's background resources.
func (r *CachedResolver) Close() error {
	return r.cache.Close()
}
