package clustercache

import (
	"testing"

	c "github.com/unkn0wn-root/clustercache/codec"
)

func TestMessageCodecsKeepNilAndEmpty(t *testing.T) {
	empty := ""
	msgs := []Message{
		GlobalMessage(),
		NamespaceMessage("user"),
		KeyMessage("user", "1"),
		KeyMessage("user", ""),
		{CacheName: &empty},
	}
	codecs := map[string]c.Codec[Message]{
		"json":    c.JSON[Message]{},
		"msgpack": c.Msgpack[Message]{},
		"cbor":    c.MustCBOR[Message](true),
	}
	for name, cd := range codecs {
		for _, in := range msgs {
			b, err := cd.Encode(in)
			if err != nil {
				t.Fatalf("%s encode %v: %v", name, in, err)
			}
			out, err := cd.Decode(b)
			if err != nil {
				t.Fatalf("%s decode %v: %v", name, in, err)
			}
			if !sameMessage(in, out) {
				t.Fatalf("%s: %v round-tripped to %v", name, in, out)
			}
		}
	}
}

func TestMessageJSONShape(t *testing.T) {
	b, err := (c.JSON[Message]{}).Encode(NamespaceMessage("user"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"cacheName":"user","key":null}` {
		t.Fatalf("json = %s", b)
	}
}

func TestMessageKinds(t *testing.T) {
	if !GlobalMessage().IsGlobal() || GlobalMessage().IsNamespace() {
		t.Fatal("global message misclassified")
	}
	if m := NamespaceMessage("x"); m.IsGlobal() || !m.IsNamespace() {
		t.Fatal("namespace message misclassified")
	}
	if m := KeyMessage("x", "k"); m.IsGlobal() || m.IsNamespace() || m.String() != `x:"k"` {
		t.Fatalf("key message misclassified: %s", m)
	}
}

func sameMessage(a, b Message) bool {
	eq := func(x, y *string) bool {
		if x == nil || y == nil {
			return x == nil && y == nil
		}
		return *x == *y
	}
	return eq(a.CacheName, b.CacheName) && eq(a.Key, b.Key)
}
