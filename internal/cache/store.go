// Package cache implements the read-through cache fronting search reads:
// deterministic hashed keys, fixed per-endpoint TTLs, and pattern-based
// invalidation. Values are opaque bytes; typed (de)serialization stays with
// callers so one store serves every payload shape.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// TTLs per endpoint class. Higher write-sensitivity and broader blast radius
// get shorter TTLs.
const (
	TTLSearch        = 2 * time.Minute
	TTLAggregations  = 5 * time.Minute
	TTLListingDetail = 10 * time.Minute
	TTLSellerProfile = 15 * time.Minute
	TTLCategories    = 5 * time.Minute
)

// Store is the minimal key/value contract the cache layer needs. Redis backs
// production; the memory store backs tests.
type Store interface {
	// Get returns the value for key, or ErrMiss when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// DeletePattern removes every key matching the glob pattern.
	DeletePattern(ctx context.Context, pattern string) error
}
