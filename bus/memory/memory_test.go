package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unkn0wn-root/clustercache/bus"
)

func recv(t *testing.T, sub bus.Subscription) []byte {
	t.Helper()
	select {
	case m, ok := <-sub.Messages():
		if !ok {
			t.Fatal("subscription closed")
		}
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func TestBroadcastToAllSubscribers(t *testing.T) {
	ctx := context.Background()
	b := New(0)
	defer b.Close()

	s1, err := b.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatal(err)
	}
	s2, err := b.Subscribe(ctx, "topic")
	if err != nil {
		t.Fatal(err)
	}
	other, err := b.Subscribe(ctx, "other")
	if err != nil {
		t.Fatal(err)
	}

	if err := b.Publish(ctx, "topic", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if got := recv(t, s1); string(got) != "hello" {
		t.Fatalf("s1 got %q", got)
	}
	if got := recv(t, s2); string(got) != "hello" {
		t.Fatalf("s2 got %q", got)
	}
	select {
	case m := <-other.Messages():
		t.Fatalf("other topic received %q", m)
	default:
	}
}

func TestPublishCopiesPayload(t *testing.T) {
	ctx := context.Background()
	b := New(0)
	defer b.Close()

	sub, _ := b.Subscribe(ctx, "t")
	payload := []byte("abc")
	_ = b.Publish(ctx, "t", payload)
	payload[0] = 'X'
	if got := recv(t, sub); string(got) != "abc" {
		t.Fatalf("subscriber saw caller mutation: %q", got)
	}
}

func TestCloseSubscriptionStopsDelivery(t *testing.T) {
	ctx := context.Background()
	b := New(1)
	defer b.Close()

	sub, _ := b.Subscribe(ctx, "t")
	if err := sub.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-sub.Messages(); ok {
		t.Fatal("channel should be closed")
	}
	if err := b.Publish(ctx, "t", []byte("x")); err != nil {
		t.Fatalf("publish after unsubscribe: %v", err)
	}
	_ = sub.Close() // idempotent
}

func TestPublishBlockedOnFullBufferHonoursContext(t *testing.T) {
	b := New(1)
	defer b.Close()

	_, _ = b.Subscribe(context.Background(), "t")
	_ = b.Publish(context.Background(), "t", []byte("fills buffer"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.Publish(ctx, "t", []byte("blocked")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}

func TestClosedBus(t *testing.T) {
	ctx := context.Background()
	b := New(0)
	sub, _ := b.Subscribe(ctx, "t")
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-sub.Messages(); ok {
		t.Fatal("subscription should be closed with the bus")
	}
	if err := b.Publish(ctx, "t", nil); !errors.Is(err, bus.ErrClosed) {
		t.Fatalf("publish on closed bus: %v", err)
	}
	if _, err := b.Subscribe(ctx, "t"); !errors.Is(err, bus.ErrClosed) {
		t.Fatalf("subscribe on closed bus: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}
