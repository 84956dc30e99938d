// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	reg, _ := clustercache.New(clustercache.Options{
//	    Provider: provider,
//	    Bus:      b,
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/clustercache"
)

// Hooks forwards events to inner on a bounded worker pool. Events that do
// not fit in the queue are dropped and counted.
type Hooks struct {
	inner   clustercache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ clustercache.Hooks = (*Hooks)(nil)

func New(inner clustercache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped is the number of events discarded because the queue was full or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Published(m clustercache.Message) { h.try(func() { h.inner.Published(m) }) }
func (h *Hooks) Received(m clustercache.Message)  { h.try(func() { h.inner.Received(m) }) }
func (h *Hooks) SelfHeal(k, r string)             { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) InstanceCreated(c string)         { h.try(func() { h.inner.InstanceCreated(c) }) }
func (h *Hooks) GlobalFlush(n int)                { h.try(func() { h.inner.GlobalFlush(n) }) }
func (h *Hooks) PublishFailed(m clustercache.Message, err error) {
	h.try(func() { h.inner.PublishFailed(m, err) })
}
func (h *Hooks) MessageDropped(reason string, err error) {
	h.try(func() { h.inner.MessageDropped(reason, err) })
}
func (h *Hooks) Loaded(c string, d time.Duration, err error) {
	h.try(func() { h.inner.Loaded(c, d, err) })
}
func (h *Hooks) InstanceEvicted(c string, err error) {
	h.try(func() { h.inner.InstanceEvicted(c, err) })
}
