package clustercache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/clustercache/bus"
	c "github.com/unkn0wn-root/clustercache/codec"
	"github.com/unkn0wn-root/clustercache/local"
	pr "github.com/unkn0wn-root/clustercache/provider"
)

// Pre-declared cache names. Each carries its own shared-store TTL and local sizing.
const (
	Cache15m  = "cache15m"
	Cache30m  = "cache30m"
	Cache60m  = "cache60m"
	Cache180m = "cache180m"
	Cache12h  = "cache12h"
)

// Loader produces the value for a missing key. A nil slice is an explicit null.
type Loader func(ctx context.Context) ([]byte, error)

// LoadLocker serializes loads of one storage key across nodes.
// Lock blocks until the lock is held or ctx is done.
type LoadLocker interface {
	Lock(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// LocalFactory builds the local tier of one named cache.
type LocalFactory func(cfg local.Config) (local.Cache, error)

// Profile is the configuration applied to one cache name.
type Profile struct {
	TTL   time.Duration // shared-store TTL; 0 => Options.DefaultTTL
	Local local.Config
}

// DefaultProfiles returns the five pre-declared profiles.
func DefaultProfiles() map[string]Profile {
	lc := local.DefaultConfig()
	return map[string]Profile{
		Cache15m:  {TTL: 15 * time.Minute, Local: lc},
		Cache30m:  {TTL: 30 * time.Minute, Local: lc},
		Cache60m:  {TTL: 60 * time.Minute, Local: lc},
		Cache180m: {TTL: 180 * time.Minute, Local: lc},
		Cache12h:  {TTL: 12 * time.Hour, Local: lc},
	}
}

// Options configure a Registry and every NamedCache it builds.
// Only Provider is required, plus Bus unless local caching is disabled.
type Options struct {
	// Required
	Provider pr.Provider
	Bus      bus.Bus // invalidation transport; may be nil with DisableLocal

	Topic    string // 0 => DefaultTopic
	Prefix   string // optional store key prefix: "<prefix>:<name>:<key>"
	Disabled bool   // default false (enabled); Get misses, writes are dropped

	DisableDynamic bool // only names in Profiles may be created
	DisableLocal   bool // shared store only; nothing is broadcast
	DisallowNull   bool // Put(nil) evicts instead of caching a null
	MaxInstances   int  // 0 => DefaultMaxInstances
	DefaultTTL     time.Duration
	Expires        map[string]time.Duration // per-name TTL; wins over the profile, <= 0 means no expiry
	Profiles       map[string]Profile       // nil => DefaultProfiles()
	Fallback       local.Config             // zero => local.DefaultConfig()
	NewLocal       LocalFactory             // nil => otter
	MessageCodec   c.Codec[Message]         // nil => JSON
	MaxMessageSize int                      // 0 => DefaultMaxMessageSize, < 0 => unlimited
	IsEmpty        func(payload []byte) bool
	LoadLocker     LoadLocker
	Logger         Logger // if nil, NopLogger is used
	Hooks          Hooks  // if nil, NopHooks is used
}
