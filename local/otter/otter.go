// Package otter is the default local tier, backed by maypok86/otter (W-TinyLFU).
package otter

import (
	"fmt"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"

	"github.com/unkn0wn-root/clustercache/local"
)

type Cache struct {
	c       *otter.Cache[string, []byte]
	counter *stats.Counter
}

var _ local.Cache = (*Cache)(nil)

// New builds an otter cache from cfg. Expire-after-access wins over
// expire-after-write when both are set; otter takes a single expiry policy.
func New(cfg local.Config) (*Cache, error) {
	counter := stats.NewCounter()
	opts := &otter.Options[string, []byte]{
		MaximumSize:     cfg.MaximumSize,
		InitialCapacity: cfg.InitialCapacity,
		StatsRecorder:   counter,
	}
	switch {
	case cfg.ExpireAfterAccess > 0:
		opts.ExpiryCalculator = otter.ExpiryAccessing[string, []byte](cfg.ExpireAfterAccess)
	case cfg.ExpireAfterWrite > 0:
		opts.ExpiryCalculator = otter.ExpiryWriting[string, []byte](cfg.ExpireAfterWrite)
	}
	c, err := otter.New[string, []byte](opts)
	if err != nil {
		return nil, fmt.Errorf("create otter cache: %w", err)
	}
	return &Cache{c: c, counter: counter}, nil
}

func (o *Cache) Get(key string) ([]byte, bool) {
	return o.c.GetIfPresent(key)
}

func (o *Cache) Set(key string, value []byte) {
	o.c.Set(key, value)
}

func (o *Cache) Del(key string) {
	o.c.Invalidate(key)
}

func (o *Cache) Clear() {
	o.c.InvalidateAll()
}

func (o *Cache) Keys() []string {
	keys := make([]string, 0, o.c.EstimatedSize())
	for k := range o.c.Keys() {
		keys = append(keys, k)
	}
	return keys
}

func (o *Cache) Stats() local.Stats {
	s := o.counter.Snapshot()
	return local.Stats{
		Hits:      s.Hits,
		Misses:    s.Misses,
		Evictions: s.Evictions,
	}
}

func (o *Cache) Close() error {
	o.c.InvalidateAll()
	return nil
}

// NewLocal adapts New to the registry's local factory signature.
func NewLocal(cfg local.Config) (local.Cache, error) {
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}
