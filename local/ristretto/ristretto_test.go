package ristretto

import (
	"testing"

	"github.com/unkn0wn-root/clustercache/local"
)

func TestGetSetDelClear(t *testing.T) {
	c, err := New(local.Config{MaximumSize: 100})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, ok := c.Get("missing"); ok {
		t.Fatal("should not find missing key")
	}

	c.Set("k", []byte("v"))
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Get(k) = %q, %v", got, ok)
	}

	c.Del("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("deleted key still present")
	}

	c.Set("a", []byte("1"))
	c.Clear()
	if _, ok := c.Get("a"); ok {
		t.Fatal("clear should remove all keys")
	}
	if c.Keys() != nil {
		t.Fatal("ristretto cannot enumerate keys")
	}
}

func TestStatsCountMisses(t *testing.T) {
	c, err := New(local.Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	c.Get("a")
	c.Get("b")
	if s := c.Stats(); s.Misses != 2 {
		t.Fatalf("misses = %d, want 2", s.Misses)
	}
}
