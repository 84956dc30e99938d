package clustercache

import (
	"context"
	"reflect"

	c "github.com/unkn0wn-root/clustercache/codec"
)

// Typed is a NamedCache seen through a Codec[V]. A nil pointer, map, slice or
// interface V is stored as an explicit null and read back as the zero V.
type Typed[V any] struct {
	nc    *NamedCache
	codec c.Codec[V]
}

func NewTyped[V any](nc *NamedCache, codec c.Codec[V]) *Typed[V] {
	return &Typed[V]{nc: nc, codec: codec}
}

func (t *Typed[V]) Cache() *NamedCache { return t.nc }

func (t *Typed[V]) encode(v V) ([]byte, error) {
	if isNil(v) {
		return nil, nil
	}
	b, err := t.codec.Encode(v)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

func (t *Typed[V]) decode(b []byte) (V, error) {
	if b == nil {
		var zero V
		return zero, nil
	}
	return t.codec.Decode(b)
}

// Get returns (v, true, nil) on hit. A cached null is a hit with the zero V.
// Entries that no longer decode are evicted and reported as a miss.
func (t *Typed[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	b, ok, err := t.nc.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := t.decode(b)
	if err != nil {
		t.nc.hooks.SelfHeal(t.nc.storageKey(key), "value_decode")
		_ = t.nc.Evict(ctx, key)
		return zero, false, nil
	}
	return v, true, nil
}

func (t *Typed[V]) GetOrLoad(ctx context.Context, key string, loader func(ctx context.Context) (V, error)) (V, error) {
	var zero V
	b, err := t.nc.GetOrLoad(ctx, key, func(ctx context.Context) ([]byte, error) {
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		return t.encode(v)
	})
	if err != nil {
		return zero, err
	}
	return t.decode(b)
}

func (t *Typed[V]) Put(ctx context.Context, key string, v V) error {
	b, err := t.encode(v)
	if err != nil {
		return err
	}
	return t.nc.Put(ctx, key, b)
}

func (t *Typed[V]) PutIfAbsent(ctx context.Context, key string, v V) (V, bool, error) {
	var zero V
	b, err := t.encode(v)
	if err != nil {
		return zero, false, err
	}
	actual, loaded, err := t.nc.PutIfAbsent(ctx, key, b)
	if !loaded {
		return v, false, err
	}
	if err != nil {
		return zero, true, err
	}
	out, derr := t.decode(actual)
	if derr != nil {
		return zero, true, derr
	}
	return out, true, nil
}

func (t *Typed[V]) Evict(ctx context.Context, key string) error { return t.nc.Evict(ctx, key) }

func (t *Typed[V]) Clear(ctx context.Context) error { return t.nc.Clear(ctx) }

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
