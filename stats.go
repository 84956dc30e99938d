package clustercache

import "time"

// Stats is a snapshot of one named cache. Hits, Misses and Evictions come
// from the local tier and stay zero when local caching is disabled.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	LoadSuccesses uint64
	LoadFailures  uint64
	TotalLoadTime time.Duration
	// Keys currently held by the local tier; nil when the tier cannot list them.
	Keys []string
}
