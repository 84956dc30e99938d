package clustercache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/unkn0wn-root/clustercache/bus"
	c "github.com/unkn0wn-root/clustercache/codec"
	"github.com/unkn0wn-root/clustercache/internal/util"
	"github.com/unkn0wn-root/clustercache/local"
	"github.com/unkn0wn-root/clustercache/local/otter"
	pr "github.com/unkn0wn-root/clustercache/provider"
)

// Registry owns every NamedCache of a process, keyed by name. The number of
// live instances is bounded; creating one past the bound drops the oldest.
type Registry struct {
	provider pr.Provider
	bus      bus.Bus
	topic    string
	prefix   string

	enabled      bool
	dynamic      bool
	localEnabled bool
	allowNull    bool
	maxInstances int
	defaultTTL   time.Duration
	expires      map[string]time.Duration
	profiles     map[string]Profile
	fallback     local.Config
	newLocal     LocalFactory
	msgCodec     c.Codec[Message]
	isEmpty      func([]byte) bool
	locker       LoadLocker
	log          Logger
	hooks        Hooks

	mu     sync.RWMutex
	caches map[string]*NamedCache
	seq    uint64
	closed bool
}

func New(opts Options) (*Registry, error) {
	if opts.Provider == nil {
		return nil, ErrNilProvider
	}
	localEnabled := !opts.Disabled && !opts.DisableLocal
	if localEnabled && opts.Bus == nil {
		return nil, ErrNilBus
	}
	if opts.MaxInstances < 0 {
		return nil, fmt.Errorf("clustercache: max instances must be >= 0, got %d", opts.MaxInstances)
	}

	r := &Registry{
		provider:     opts.Provider,
		bus:          opts.Bus,
		prefix:       opts.Prefix,
		enabled:      !opts.Disabled,
		dynamic:      !opts.DisableDynamic,
		localEnabled: localEnabled,
		allowNull:    !opts.DisallowNull,
		isEmpty:      opts.IsEmpty,
		locker:       opts.LoadLocker,
		caches:       make(map[string]*NamedCache),
	}

	// defaults
	r.topic = coalesce(opts.Topic, DefaultTopic)
	r.maxInstances = coalesce(opts.MaxInstances, DefaultMaxInstances)
	r.defaultTTL = coalesce(opts.DefaultTTL, DefaultTTL)
	r.fallback = coalesce(opts.Fallback, local.DefaultConfig())
	r.log = coalesce[Logger](opts.Logger, NopLogger{})
	r.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	r.msgCodec = c.LimitCodec[Message]{
		Inner:     coalesce[c.Codec[Message]](opts.MessageCodec, c.JSON[Message]{}),
		MaxDecode: coalesce(opts.MaxMessageSize, DefaultMaxMessageSize),
	}

	r.profiles = opts.Profiles
	if r.profiles == nil {
		r.profiles = DefaultProfiles()
	}
	r.expires = make(map[string]time.Duration, len(opts.Expires))
	for k, v := range opts.Expires {
		r.expires[k] = v
	}
	if opts.NewLocal != nil {
		r.newLocal = opts.NewLocal
	} else {
		r.newLocal = otter.NewLocal
	}
	return r, nil
}

func (r *Registry) Enabled() bool { return r.enabled }

// GetCache returns the instance for name, creating it when needed.
func (r *Registry) GetCache(ctx context.Context, name string) (*NamedCache, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	r.mu.RLock()
	nc, closed := r.caches[name], r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrRegistryClosed
	}
	if nc != nil {
		return nc, nil
	}

	p, declared := r.profiles[name]
	if !r.dynamic && !declared {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCache, name)
	}
	if !declared {
		p = Profile{Local: r.fallback}
	}
	nc, err := r.build(name, p)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = nc.closeLocal()
		return nil, ErrRegistryClosed
	}
	if existing := r.caches[name]; existing != nil {
		r.mu.Unlock()
		_ = nc.closeLocal()
		return existing, nil
	}
	r.seq++
	nc.seq = r.seq
	r.caches[name] = nc
	victims := r.takeSurplusLocked()
	r.mu.Unlock()

	r.log.Info("cache instance created", Fields{"cache": name, "ttl": nc.ttl})
	r.hooks.InstanceCreated(name)
	r.dropVictims(ctx, victims)
	return nc, nil
}

func (r *Registry) build(name string, p Profile) (*NamedCache, error) {
	nc := &NamedCache{
		name:         name,
		ns:           util.NamespacePrefix(r.prefix, name),
		ttl:          r.ttlFor(name, p),
		enabled:      r.enabled,
		localEnabled: r.localEnabled,
		allowNull:    r.allowNull,
		provider:     r.provider,
		bus:          r.bus,
		topic:        r.topic,
		msgCodec:     r.msgCodec,
		isEmpty:      r.isEmpty,
		locker:       r.locker,
		log:          r.log,
		hooks:        r.hooks,
		createdAt:    time.Now(),
	}
	if nc.localEnabled {
		lc, err := r.newLocal(p.Local)
		if err != nil {
			return nil, fmt.Errorf("clustercache: local tier for %q: %w", name, err)
		}
		nc.local = lc
	}
	return nc, nil
}

// ttlFor resolves per-name override, then profile TTL, then the default.
func (r *Registry) ttlFor(name string, p Profile) time.Duration {
	if ttl, ok := r.expires[name]; ok {
		if ttl < 0 {
			return 0
		}
		return ttl
	}
	return coalesce(p.TTL, r.defaultTTL)
}

// takeSurplusLocked removes the oldest instances above the bound and returns
// them. r.mu must be held for writing.
func (r *Registry) takeSurplusLocked() []*NamedCache {
	surplus := len(r.caches) - r.maxInstances
	if surplus <= 0 {
		return nil
	}
	all := make([]*NamedCache, 0, len(r.caches))
	for _, nc := range r.caches {
		all = append(all, nc)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].createdAt.Equal(all[j].createdAt) {
			return all[i].createdAt.Before(all[j].createdAt)
		}
		return all[i].seq < all[j].seq
	})
	victims := all[:surplus]
	for _, nc := range victims {
		delete(r.caches, nc.name)
	}
	return victims
}

// dropVictims clears the shared namespace and local tier of instances removed
// for capacity. Failures are reported, never returned.
func (r *Registry) dropVictims(ctx context.Context, victims []*NamedCache) {
	for _, nc := range victims {
		var err error
		if nc.enabled {
			err = nc.dropShared(ctx)
		}
		nc.detach()
		if err != nil {
			r.log.Warn("evicted instance cleanup failed", Fields{"cache": nc.name, "err": err})
		} else {
			r.log.Info("cache instance evicted", Fields{"cache": nc.name})
		}
		r.hooks.InstanceEvicted(nc.name, err)
	}
}

// ClearAll broadcasts a global flush. Every node, this one included, drops
// all of its local instances on delivery. Shared-store contents are kept.
func (r *Registry) ClearAll(ctx context.Context) error {
	if !r.localEnabled {
		return nil
	}
	msg := GlobalMessage()
	payload, err := r.msgCodec.Encode(msg)
	if err == nil {
		err = r.bus.Publish(ctx, r.topic, payload)
	}
	if err != nil {
		r.hooks.PublishFailed(msg, err)
		return &PublishError{Err: err}
	}
	r.hooks.Published(msg)
	return nil
}

// clearLocal applies one invalidation to this node. A nil name drops every
// instance; otherwise the named instance (if any) clears key, or everything
// when key is nil.
func (r *Registry) clearLocal(name, key *string) {
	if name == nil {
		r.mu.Lock()
		old := r.caches
		r.caches = make(map[string]*NamedCache)
		r.mu.Unlock()
		for _, nc := range old {
			nc.detach()
		}
		r.log.Info("dropped all local instances", Fields{"count": len(old)})
		r.hooks.GlobalFlush(len(old))
		return
	}
	r.mu.RLock()
	nc := r.caches[*name]
	r.mu.RUnlock()
	if nc == nil {
		return
	}
	nc.clearLocal(key)
}

// Stats snapshots every live instance by name.
func (r *Registry) Stats() map[string]Stats {
	out := make(map[string]Stats)
	for _, nc := range r.snapshot() {
		out[nc.name] = nc.Stats()
	}
	return out
}

// CacheNames returns the pre-declared names, sorted.
func (r *Registry) CacheNames() []string {
	names := make([]string, 0, len(r.profiles))
	for n := range r.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.caches)
}

func (r *Registry) snapshot() []*NamedCache {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*NamedCache, 0, len(r.caches))
	for _, nc := range r.caches {
		out = append(out, nc)
	}
	return out
}

// Close releases every local tier, then the provider and the bus. Stop any
// Listener first.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	caches := r.caches
	r.caches = make(map[string]*NamedCache)
	r.mu.Unlock()

	var errs []error
	for _, nc := range caches {
		errs = append(errs, nc.closeLocal())
	}
	errs = append(errs, r.provider.Close(ctx))
	if r.bus != nil {
		errs = append(errs, r.bus.Close())
	}
	return errors.Join(errs...)
}
