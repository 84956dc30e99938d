// Package memory is an in-process Bus. Every Registry sharing one Bus behaves
// like a node on the same broadcast channel, which makes it suitable for
// single-process deployments and tests.
package memory

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/clustercache/bus"
)

const defaultBuffer = 256

type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	buffer int
	closed bool
}

var _ bus.Bus = (*Bus)(nil)

// New returns a bus whose subscriptions buffer up to buffer messages; 0 => 256.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus{subs: make(map[string]map[*subscription]struct{}), buffer: buffer}
}

// Publish copies payload to every subscriber of topic, blocking while a
// subscriber's buffer is full until ctx is done.
func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return bus.ErrClosed
	}
	for s := range b.subs[topic] {
		msg := append([]byte(nil), payload...)
		select {
		case s.ch <- msg:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Bus) Subscribe(_ context.Context, topic string) (bus.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, bus.ErrClosed
	}
	s := &subscription{
		bus:   b,
		topic: topic,
		ch:    make(chan []byte, b.buffer),
		done:  make(chan struct{}),
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*subscription]struct{})
	}
	b.subs[topic][s] = struct{}{}
	return s, nil
}

func (b *Bus) Close() error {
	// release publishers blocked on full buffers before taking the write lock
	b.mu.RLock()
	for _, set := range b.subs {
		for s := range set {
			s.stop()
		}
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, set := range b.subs {
		for s := range set {
			s.closeCh()
		}
	}
	b.subs = nil
	return nil
}

type subscription struct {
	bus      *Bus
	topic    string
	ch       chan []byte
	done     chan struct{}
	stopOnce sync.Once
	chOnce   sync.Once
}

func (s *subscription) Messages() <-chan []byte { return s.ch }

func (s *subscription) Close() error {
	s.stop()
	s.bus.mu.Lock()
	if set := s.bus.subs[s.topic]; set != nil {
		delete(set, s)
	}
	s.closeCh()
	s.bus.mu.Unlock()
	return nil
}

func (s *subscription) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// closeCh must run under the bus write lock so no publisher is sending on ch.
func (s *subscription) closeCh() {
	s.chOnce.Do(func() { close(s.ch) })
}
