package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Cache wraps a Store with the service's key namespaces, invalidation rules,
// and failure policy: a store error on read degrades to a miss and a store
// error on write skips caching, so cache trouble never fails a request.
type Cache struct {
	store  Store
	logger *slog.Logger
}

// New creates a Cache over the given store.
func New(store Store, logger *slog.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger,
	}
}

// Get returns the cached payload for key, or false on miss. Store errors are
// logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.WarnContext(ctx, "cache get failed, treating as miss",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		Misses.WithLabelValues(prefixOf(key)).Inc()
		return nil, false
	}

	Hits.WithLabelValues(prefixOf(key)).Inc()
	return data, true
}

// Set stores the payload under key. Store errors are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.store.Set(ctx, key, value, ttl); err != nil {
		c.logger.WarnContext(ctx, "cache set failed, skipping",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// InvalidateListing removes every cache entry a listing write could affect:
// the listing's detail entries (keyed by ID on the search surface and by slug
// on the storefront), all search results, all aggregations, and the
// category-scoped listing caches when the category is known. Deliberately
// broad — a single write can change any filtered view's membership or counts.
func (c *Cache) InvalidateListing(ctx context.Context, id, slug, categoryID string) {
	if id != "" {
		c.delete(ctx, "listing:"+id)
	}
	if slug != "" {
		c.delete(ctx, "listing:"+slug)
	}

	c.deletePattern(ctx, "search:*")
	c.deletePattern(ctx, "aggs:*")

	if categoryID != "" {
		c.deletePattern(ctx, "catlistings:"+categoryID+":*")
	}

	Invalidations.WithLabelValues("listing").Inc()
}

// InvalidateAll clears every listing-derived cache class. Used after a full
// reindex, where any cached view may describe documents that no longer exist.
func (c *Cache) InvalidateAll(ctx context.Context) {
	c.deletePattern(ctx, "listing:*")
	c.deletePattern(ctx, "search:*")
	c.deletePattern(ctx, "aggs:*")
	c.deletePattern(ctx, "catlistings:*")

	Invalidations.WithLabelValues("all").Inc()
}

// InvalidateSeller removes a seller's cached profile.
func (c *Cache) InvalidateSeller(ctx context.Context, sellerID string) {
	c.delete(ctx, "seller:"+sellerID)
	Invalidations.WithLabelValues("seller").Inc()
}

// InvalidateCategoryList removes the cached category taxonomy.
func (c *Cache) InvalidateCategoryList(ctx context.Context) {
	c.delete(ctx, "categories:all")
	Invalidations.WithLabelValues("categories").Inc()
}

func (c *Cache) delete(ctx context.Context, keys ...string) {
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.WarnContext(ctx, "cache delete failed",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Cache) deletePattern(ctx context.Context, pattern string) {
	if err := c.store.DeletePattern(ctx, pattern); err != nil {
		c.logger.WarnContext(ctx, "cache pattern delete failed",
			slog.String("pattern", pattern),
			slog.String("error", err.Error()),
		)
	}
}

// prefixOf extracts the namespace prefix of a key for metric labels.
func prefixOf(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return key
}
