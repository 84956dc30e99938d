package bigcache

import (
	"sync/atomic"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/clustercache/local"
)

const defaultLifeWindow = 10 * time.Minute

// Cache is a local tier backed by BigCache. BigCache has one global
// LifeWindow, taken from ExpireAfterWrite; it does not support per-entry TTL
// or expire-after-access.
type Cache struct {
	c         *bc.BigCache
	evictions atomic.Uint64
}

var _ local.Cache = (*Cache)(nil)

type Config struct {
	local.Config
	CleanWindow        time.Duration
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Cache, error) {
	life := cfg.ExpireAfterWrite
	if life <= 0 {
		life = defaultLifeWindow
	}
	conf := bc.DefaultConfig(life)
	conf.StatsEnabled = true
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaximumSize > 0 {
		conf.MaxEntriesInWindow = cfg.MaximumSize
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}

	p := &Cache{}
	conf.OnRemoveWithReason = func(_ string, _ []byte, reason bc.RemoveReason) {
		if reason == bc.Expired || reason == bc.NoSpace {
			p.evictions.Add(1)
		}
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	p.c = c
	return p, nil
}

// NewLocal adapts New to the registry's local factory signature.
func NewLocal(cfg local.Config) (local.Cache, error) {
	c, err := New(Config{Config: cfg})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Cache) Get(key string) ([]byte, bool) {
	b, err := p.c.Get(key)
	if err != nil {
		return nil, false
	}
	return b, true
}

func (p *Cache) Set(key string, value []byte) {
	_ = p.c.Set(key, value) // only fails for oversized entries; the value stays shared-only
}

func (p *Cache) Del(key string) {
	_ = p.c.Delete(key) // ErrEntryNotFound is the only expected error
}

func (p *Cache) Clear() {
	_ = p.c.Reset()
}

func (p *Cache) Keys() []string {
	var keys []string
	it := p.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			continue
		}
		keys = append(keys, e.Key())
	}
	return keys
}

func (p *Cache) Stats() local.Stats {
	s := p.c.Stats()
	return local.Stats{
		Hits:      uint64(s.Hits),
		Misses:    uint64(s.Misses),
		Evictions: p.evictions.Load(),
	}
}

func (p *Cache) Close() error {
	return p.c.Close()
}
