package otter

import (
	"sort"
	"testing"
	"time"

	"github.com/unkn0wn-root/clustercache/local"
)

func newTestCache(t *testing.T, cfg local.Config) *Cache {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetSetDel(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, local.DefaultConfig())

	if _, ok := c.Get("missing"); ok {
		t.Error("should not find missing key")
	}

	c.Set("k1", []byte("v1"))
	got, ok := c.Get("k1")
	if !ok || string(got) != "v1" {
		t.Fatalf("Get(k1) = %q, %v", got, ok)
	}

	c.Del("k1")
	if _, ok := c.Get("k1"); ok {
		t.Error("should not find deleted key")
	}
}

func TestClearAndKeys(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, local.Config{MaximumSize: 100})

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	keys := c.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("Keys() = %v", keys)
	}

	c.Clear()
	if _, ok := c.Get("a"); ok {
		t.Error("clear should remove all keys")
	}
	if n := len(c.Keys()); n != 0 {
		t.Errorf("Keys() after clear = %d entries", n)
	}
}

func TestStatsCountHitsAndMisses(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, local.Config{MaximumSize: 10})

	c.Set("k", []byte("v"))
	c.Get("k")
	c.Get("k")
	c.Get("nope")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Fatalf("stats = %+v, want hits=2 misses=1", s)
	}
}

func TestExpireAfterWrite(t *testing.T) {
	t.Parallel()
	c := newTestCache(t, local.Config{MaximumSize: 10, ExpireAfterWrite: 50 * time.Millisecond})

	c.Set("k", []byte("v"))
	time.Sleep(150 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("entry should be expired")
	}
}
