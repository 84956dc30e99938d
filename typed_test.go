package clustercache

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	c "github.com/unkn0wn-root/clustercache/codec"
	"github.com/unkn0wn-root/clustercache/internal/wire"
)

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestTypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	n, _ := newTestNode(t, nil)
	tc := NewTyped[user](mustCache(t, n.reg, "user"), c.JSON[user]{})

	want := user{ID: "1", Name: "Ada"}
	if err := tc.Put(ctx, "1", want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := tc.Get(ctx, "1")
	if err != nil || !ok || got != want {
		t.Fatalf("Get: got=%+v ok=%v err=%v", got, ok, err)
	}

	loaded, err := tc.GetOrLoad(ctx, "2", func(context.Context) (user, error) {
		return user{ID: "2", Name: "Grace"}, nil
	})
	if err != nil || loaded.Name != "Grace" {
		t.Fatalf("GetOrLoad: %+v %v", loaded, err)
	}
	again, err := tc.GetOrLoad(ctx, "2", func(context.Context) (user, error) {
		return user{}, errors.New("should not run")
	})
	if err != nil || again.Name != "Grace" {
		t.Fatalf("GetOrLoad cached: %+v %v", again, err)
	}
}

func TestTypedNilPointerIsNull(t *testing.T) {
	ctx := context.Background()
	n, mp := newTestNode(t, nil)
	tc := NewTyped[*user](mustCache(t, n.reg, "user"), c.JSON[*user]{})

	if err := tc.Put(ctx, "none", nil); err != nil {
		t.Fatal(err)
	}
	raw, _ := mp.raw("user:none")
	if _, null, err := wire.Decode(raw); err != nil || !null {
		t.Fatalf("nil pointer should be stored as null, null=%v err=%v", null, err)
	}
	got, ok, err := tc.Get(ctx, "none")
	if err != nil || !ok || got != nil {
		t.Fatalf("Get null: got=%v ok=%v err=%v", got, ok, err)
	}
}

func TestTypedPutIfAbsent(t *testing.T) {
	ctx := context.Background()
	n, _ := newTestNode(t, nil)
	tc := NewTyped[string](mustCache(t, n.reg, "s"), c.String{})

	if v, loaded, err := tc.PutIfAbsent(ctx, "k", "a"); err != nil || loaded || v != "a" {
		t.Fatalf("first: v=%q loaded=%v err=%v", v, loaded, err)
	}
	if v, loaded, err := tc.PutIfAbsent(ctx, "k", "b"); err != nil || !loaded || v != "a" {
		t.Fatalf("second: v=%q loaded=%v err=%v", v, loaded, err)
	}

	// empty string is a value, not a null
	if err := tc.Put(ctx, "empty", ""); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := tc.Get(ctx, "empty"); !ok || v != "" {
		t.Fatalf("empty string: v=%q ok=%v", v, ok)
	}
}

func TestTypedDecodeFailureSelfHeals(t *testing.T) {
	ctx := context.Background()
	n, mp := newTestNode(t, nil)
	tc := NewTyped[user](mustCache(t, n.reg, "user"), c.JSON[user]{})

	mp.put("user:1", wire.EncodeValue([]byte("not json")))
	if _, ok, err := tc.Get(ctx, "1"); err != nil || ok {
		t.Fatalf("undecodable value should miss, ok=%v err=%v", ok, err)
	}
	if _, ok := mp.raw("user:1"); ok {
		t.Fatalf("undecodable value should be evicted")
	}
	if n.hooks.selfHeals.Load() != 1 {
		t.Fatalf("self-heal not reported")
	}
}

func TestTypedProtobufValues(t *testing.T) {
	ctx := context.Background()
	n, mp := newTestNode(t, nil)
	tc := NewTyped[*wrapperspb.StringValue](mustCache(t, n.reg, "profile"),
		c.NewProtobuf(func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }))

	if err := tc.Put(ctx, "1", wrapperspb.String("ada")); err != nil {
		t.Fatal(err)
	}
	got, ok, err := tc.Get(ctx, "1")
	if err != nil || !ok || !proto.Equal(got, wrapperspb.String("ada")) {
		t.Fatalf("Get: got=%v ok=%v err=%v", got, ok, err)
	}

	loaded, err := tc.GetOrLoad(ctx, "2", func(context.Context) (*wrapperspb.StringValue, error) {
		return wrapperspb.String("grace"), nil
	})
	if err != nil || loaded.GetValue() != "grace" {
		t.Fatalf("GetOrLoad: %v %v", loaded, err)
	}

	// nil message is a cached null
	if err := tc.Put(ctx, "none", nil); err != nil {
		t.Fatal(err)
	}
	raw, _ := mp.raw("profile:none")
	if _, null, err := wire.Decode(raw); err != nil || !null {
		t.Fatalf("nil message should be stored as null, null=%v err=%v", null, err)
	}
}
