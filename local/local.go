// Package local defines the in-process tier of a named cache.
//
// A local Cache holds framed copies of values read from the shared store, keyed
// by the caller's key (not the storage key). It is bounded and TTL-aware, and it
// must be safe for concurrent use without blocking on I/O.
package local

import "time"

// Cache is a bounded in-process byte cache with hit/miss/eviction counters.
type Cache interface {
	// Get returns a copy-safe view of the stored bytes. Counts a hit or a miss.
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Del(key string)
	// Clear drops every entry.
	Clear()
	// Keys snapshots the current keys. Implementations that cannot enumerate
	// their keys return nil.
	Keys() []string
	Stats() Stats
	Close() error
}

// Stats is a point-in-time snapshot of a local tier's counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Config sizes one local tier. Zero values mean "not set".
type Config struct {
	ExpireAfterAccess time.Duration
	ExpireAfterWrite  time.Duration
	// RefreshAfterWrite is carried for configuration compatibility. Local tiers
	// have no loader, so entries are refreshed by read-through instead.
	RefreshAfterWrite time.Duration
	InitialCapacity   int
	MaximumSize       int
}

// DefaultConfig is the fallback sizing used for names without a profile.
func DefaultConfig() Config {
	return Config{
		ExpireAfterWrite: 120 * time.Second,
		InitialCapacity:  50,
		MaximumSize:      50,
	}
}
