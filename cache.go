package clustercache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/clustercache/bus"
	c "github.com/unkn0wn-root/clustercache/codec"
	"github.com/unkn0wn-root/clustercache/internal/wire"
	"github.com/unkn0wn-root/clustercache/local"
	pr "github.com/unkn0wn-root/clustercache/provider"
)

// NamedCache is one logical cache: a local tier in front of a namespace of
// the shared store. Values are opaque bytes; a nil value is an explicit null.
// Instances are created by a Registry.
type NamedCache struct {
	name string
	ns   string // "[prefix:]name:"
	ttl  time.Duration

	enabled      bool
	localEnabled bool
	allowNull    bool

	local    local.Cache
	provider pr.Provider
	bus      bus.Bus
	topic    string
	msgCodec c.Codec[Message]
	isEmpty  func([]byte) bool
	locker   LoadLocker
	log      Logger
	hooks    Hooks

	createdAt time.Time
	seq       uint64

	// set once the registry has dropped this instance; it then stops
	// receiving invalidations, so its local tier must not serve reads.
	detached atomic.Bool

	flights   singleflight.Group
	loadOK    atomic.Uint64
	loadFail  atomic.Uint64
	loadNanos atomic.Int64
}

func (nc *NamedCache) Name() string { return nc.name }

// Expire is the shared-store TTL applied by every write.
func (nc *NamedCache) Expire() time.Duration { return nc.ttl }

func (nc *NamedCache) CreatedAt() time.Time { return nc.createdAt }

func (nc *NamedCache) storageKey(key string) string { return nc.ns + key }

func (nc *NamedCache) useLocal() bool { return nc.localEnabled && !nc.detached.Load() }

// Get returns the cached value. A cached null is reported as (nil, true, nil).
func (nc *NamedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !nc.enabled {
		return nil, false, nil
	}
	v, ok, err := nc.lookup(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return bytes.Clone(v), true, nil
}

// lookup reads local first, then the shared store, populating the local tier
// on a store hit. The returned slice may alias the local tier.
func (nc *NamedCache) lookup(ctx context.Context, key string) ([]byte, bool, error) {
	sk := nc.storageKey(key)
	if nc.useLocal() {
		if raw, ok := nc.local.Get(key); ok {
			payload, null, err := wire.Decode(raw)
			if err == nil {
				if null {
					return nil, true, nil
				}
				return payload, true, nil
			}
			nc.local.Del(key)
			nc.hooks.SelfHeal(sk, "local_corrupt")
		}
	}

	raw, ok, err := nc.provider.Get(ctx, sk)
	if err != nil {
		return nil, false, &StoreError{Op: "get", Key: sk, Err: err}
	}
	if !ok {
		return nil, false, nil
	}
	payload, null, err := wire.Decode(raw)
	if err != nil {
		_ = nc.provider.Del(ctx, sk) // self-heal corrupt
		nc.hooks.SelfHeal(sk, "corrupt")
		nc.log.Warn("dropped corrupt store entry", Fields{"cache": nc.name, "key": key})
		return nil, false, nil
	}
	if nc.useLocal() && (null || nc.isEmpty == nil || !nc.isEmpty(payload)) {
		nc.local.Set(key, raw)
	}
	if null {
		return nil, true, nil
	}
	return payload, true, nil
}

// GetOrLoad returns the cached value or runs loader once per storage key on
// this node (and, with a LoadLocker, once across nodes), caching its result.
func (nc *NamedCache) GetOrLoad(ctx context.Context, key string, loader Loader) ([]byte, error) {
	if !nc.enabled {
		return nc.load(ctx, key, loader)
	}
	if v, ok, err := nc.lookup(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return bytes.Clone(v), nil
	}

	sk := nc.storageKey(key)
	v, err, _ := nc.flights.Do(sk, func() (any, error) {
		return nc.loadOnce(ctx, key, sk, loader)
	})
	if err != nil {
		return nil, err
	}
	b, _ := v.([]byte)
	return bytes.Clone(b), nil
}

func (nc *NamedCache) loadOnce(ctx context.Context, key, sk string, loader Loader) ([]byte, error) {
	if nc.locker != nil {
		unlock, err := nc.locker.Lock(ctx, sk)
		if err != nil {
			return nil, &RetrievalError{Cache: nc.name, Key: key, Err: fmt.Errorf("acquire load lock: %w", err)}
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				nc.log.Warn("release load lock failed", Fields{"cache": nc.name, "key": key, "err": err})
			}
		}()
	}

	// another flight (here or on a peer holding the lock) may have filled it
	if v, ok, err := nc.lookup(ctx, key); err != nil {
		return nil, err
	} else if ok {
		return bytes.Clone(v), nil
	}

	v, err := nc.load(ctx, key, loader)
	if err != nil {
		return nil, err
	}
	if err := nc.Put(ctx, key, v); err != nil {
		var pe *PublishError
		if !errors.As(err, &pe) {
			return nil, err
		}
		// stored; peers just miss the invalidation
		nc.log.Warn("loaded value stored but not broadcast", Fields{"cache": nc.name, "key": key, "err": err})
	}
	return v, nil
}

func (nc *NamedCache) load(ctx context.Context, key string, loader Loader) (v []byte, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("loader panic: %v", r)
		}
		took := time.Since(start)
		nc.loadNanos.Add(int64(took))
		if err != nil {
			nc.loadFail.Add(1)
			err = &RetrievalError{Cache: nc.name, Key: key, Err: err}
		} else {
			nc.loadOK.Add(1)
		}
		nc.hooks.Loaded(nc.name, took, err)
	}()
	return loader(ctx)
}

// Put writes value to the shared store and broadcasts the key. The local tier
// is not written; the node's own invalidation would clear it anyway.
func (nc *NamedCache) Put(ctx context.Context, key string, value []byte) error {
	if !nc.enabled {
		return nil
	}
	if value == nil && !nc.allowNull {
		return nc.Evict(ctx, key)
	}
	sk := nc.storageKey(key)
	if err := nc.provider.Set(ctx, sk, wire.Encode(value), nc.ttl); err != nil {
		return &StoreError{Op: "set", Key: sk, Err: err}
	}
	nc.log.Debug("put", Fields{"cache": nc.name, "key": key, "ttl": nc.ttl})
	return nc.publish(ctx, KeyMessage(nc.name, key))
}

// PutIfAbsent stores value only when the key is absent from the shared store.
// It returns the value now cached and whether it was already there.
func (nc *NamedCache) PutIfAbsent(ctx context.Context, key string, value []byte) (actual []byte, loaded bool, err error) {
	if !nc.enabled {
		return value, false, nil
	}
	if value == nil && !nc.allowNull {
		v, ok, err := nc.lookup(ctx, key)
		if err != nil {
			return nil, false, err
		}
		return bytes.Clone(v), ok, nil
	}

	sk := nc.storageKey(key)
	frame := wire.Encode(value)
	stored, err := nc.provider.SetNX(ctx, sk, frame, nc.ttl)
	if err != nil {
		return nil, false, &StoreError{Op: "setnx", Key: sk, Err: err}
	}
	if stored {
		perr := nc.publish(ctx, KeyMessage(nc.name, key))
		if nc.useLocal() {
			nc.local.Set(key, frame)
		}
		return value, false, perr
	}

	raw, ok, err := nc.provider.Get(ctx, sk)
	if err != nil {
		return nil, true, &StoreError{Op: "get", Key: sk, Err: err}
	}
	if !ok {
		// expired between SETNX and GET
		return nil, true, nil
	}
	payload, _, err := wire.Decode(raw)
	if err != nil {
		_ = nc.provider.Del(ctx, sk)
		nc.hooks.SelfHeal(sk, "corrupt")
		return nil, true, nil
	}
	return bytes.Clone(payload), true, nil
}

// Evict deletes the key from the shared store, broadcasts it, and drops the
// local entry. The local entry is dropped even when the broadcast fails.
func (nc *NamedCache) Evict(ctx context.Context, key string) error {
	if !nc.enabled {
		return nil
	}
	sk := nc.storageKey(key)
	if err := nc.provider.Del(ctx, sk); err != nil {
		return &StoreError{Op: "del", Key: sk, Err: err}
	}
	perr := nc.publish(ctx, KeyMessage(nc.name, key))
	if nc.localEnabled {
		nc.local.Del(key)
	}
	return perr
}

// Clear deletes every key of this cache from the shared store, broadcasts a
// namespace flush and clears the local tier.
func (nc *NamedCache) Clear(ctx context.Context) error {
	if !nc.enabled {
		return nil
	}
	if err := nc.dropShared(ctx); err != nil {
		return err
	}
	perr := nc.publish(ctx, NamespaceMessage(nc.name))
	if nc.localEnabled {
		nc.local.Clear()
	}
	return perr
}

func (nc *NamedCache) dropShared(ctx context.Context) error {
	keys, err := nc.provider.Scan(ctx, nc.ns)
	if err != nil {
		return &StoreError{Op: "scan", Key: nc.ns, Err: err}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := nc.provider.Del(ctx, keys...); err != nil {
		return &StoreError{Op: "del", Key: nc.ns, Err: err}
	}
	nc.log.Debug("cleared shared namespace", Fields{"cache": nc.name, "keys": len(keys)})
	return nil
}

// clearLocal drops one local entry, or all of them when key is nil.
func (nc *NamedCache) clearLocal(key *string) {
	if !nc.localEnabled {
		return
	}
	if key == nil {
		nc.local.Clear()
		return
	}
	nc.local.Del(*key)
}

func (nc *NamedCache) detach() {
	nc.detached.Store(true)
	nc.clearLocal(nil)
}

func (nc *NamedCache) publish(ctx context.Context, msg Message) error {
	// no node keeps local copies, so there is nothing to invalidate
	if !nc.localEnabled {
		return nil
	}
	payload, err := nc.msgCodec.Encode(msg)
	if err == nil {
		err = nc.bus.Publish(ctx, nc.topic, payload)
	}
	if err != nil {
		nc.hooks.PublishFailed(msg, err)
		nc.log.Warn("publish invalidation failed", Fields{"cache": nc.name, "msg": msg.String(), "err": err})
		return &PublishError{Cache: nc.name, Key: msg.Key, Err: err}
	}
	nc.hooks.Published(msg)
	return nil
}

func (nc *NamedCache) Stats() Stats {
	s := Stats{
		LoadSuccesses: nc.loadOK.Load(),
		LoadFailures:  nc.loadFail.Load(),
		TotalLoadTime: time.Duration(nc.loadNanos.Load()),
	}
	if nc.localEnabled {
		ls := nc.local.Stats()
		s.Hits, s.Misses, s.Evictions = ls.Hits, ls.Misses, ls.Evictions
		s.Keys = nc.local.Keys()
	}
	return s
}

func (nc *NamedCache) closeLocal() error {
	if nc.local == nil {
		return nil
	}
	return nc.local.Close()
}
