package clustercache

import "time"

const (
	DefaultTopic        = "cache:redis:caffeine:topic"
	DefaultTTL          = time.Hour
	DefaultMaxInstances = 1000

	// DefaultMaxMessageSize bounds a received invalidation payload.
	DefaultMaxMessageSize = 64 << 10
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
