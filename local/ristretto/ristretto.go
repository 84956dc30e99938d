package ristretto

import (
	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/clustercache/local"
)

const (
	defaultMaxItems    = 10_000
	defaultBufferItems = 64
)

// Cache is a local tier backed by Ristretto. Every entry costs 1, so
// MaximumSize bounds the entry count. Ristretto hashes its keys and cannot
// enumerate them, so Keys returns nil.
type Cache struct {
	c   *rc.Cache
	cfg local.Config
}

var _ local.Cache = (*Cache)(nil)

func New(cfg local.Config) (*Cache, error) {
	maxItems := int64(cfg.MaximumSize)
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: defaultBufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, cfg: cfg}, nil
}

func (p *Cache) Get(key string) ([]byte, bool) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false
	}
	return b, true
}

// Set waits for the write buffer so a Get on the same node observes it.
func (p *Cache) Set(key string, value []byte) {
	if p.c.SetWithTTL(key, value, 1, p.cfg.ExpireAfterWrite) {
		p.c.Wait()
	}
}

func (p *Cache) Del(key string) {
	p.c.Del(key)
}

func (p *Cache) Clear() {
	p.c.Clear()
}

func (p *Cache) Keys() []string { return nil }

func (p *Cache) Stats() local.Stats {
	m := p.c.Metrics
	if m == nil {
		return local.Stats{}
	}
	return local.Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		Evictions: m.KeysEvicted(),
	}
}

func (p *Cache) Close() error {
	p.c.Close()
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
