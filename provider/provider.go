// Package provider defines the shared, cross-process store used by clustercache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set or SetNX for a key (no prepended/appended
// metadata, no re-encoding, no mutation).
//
// Important: every key under "[prefix:]<cacheName>:" is owned by the named cache.
// External code MUST NOT write values under these prefixes. Foreign writes are
// treated as corruption by the wire-format validation and deleted.
package provider

import (
	"context"
	"time"
)

// Provider is the shared store with TTLs. It is the single source of truth for
// every node; local tiers only ever hold copies of what was read from it.
// Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores value only if key is absent. Reports whether it was stored.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Del removes keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// Scan returns every key starting with prefix.
	Scan(ctx context.Context, prefix string) ([]string, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
