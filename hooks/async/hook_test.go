package asynchook

import (
	"sync"
	"testing"

	"github.com/unkn0wn-root/clustercache"
)

type recorder struct {
	clustercache.NopHooks
	mu     sync.Mutex
	events []string
	block  chan struct{}
}

func (r *recorder) InstanceCreated(name string) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.events = append(r.events, name)
	r.mu.Unlock()
}

func TestForwardsAndDrainsOnClose(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 2, 16)
	for _, n := range []string{"a", "b", "c"} {
		h.InstanceCreated(n)
	}
	h.Close()

	if len(rec.events) != 3 {
		t.Fatalf("got %v", rec.events)
	}
	if h.Dropped() != 0 {
		t.Fatalf("dropped = %d", h.Dropped())
	}
}

func TestDropsWhenFull(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	h := New(rec, 1, 1)

	// one event held by the worker, one queued, the rest dropped
	for i := 0; i < 10; i++ {
		h.InstanceCreated("x")
	}
	close(rec.block)
	h.Close()

	if h.Dropped() == 0 {
		t.Fatal("expected dropped events")
	}
	if got := uint64(len(rec.events)) + h.Dropped(); got != 10 {
		t.Fatalf("delivered+dropped = %d, want 10", got)
	}
}

func TestCallsAfterCloseAreDropped(t *testing.T) {
	h := New(&recorder{}, 1, 1)
	h.Close()
	h.GlobalFlush(3)
	if h.Dropped() != 1 {
		t.Fatalf("dropped = %d", h.Dropped())
	}
}
