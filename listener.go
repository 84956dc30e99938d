package clustercache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/unkn0wn-root/clustercache/bus"
	c "github.com/unkn0wn-root/clustercache/codec"
)

// ListenerOptions override what a Listener takes from its Registry.
type ListenerOptions struct {
	Bus   bus.Bus          // nil => the registry's bus
	Topic string           // "" => the registry's topic
	Codec c.Codec[Message] // nil => the registry's message codec

	// Resubscribe backoff after the transport drops the subscription.
	RetryDelay    time.Duration // 0 => 100ms
	MaxRetryDelay time.Duration // 0 => 10s
}

// Listener applies invalidations delivered on the topic to a Registry.
// Messages published by this node are applied too; that is how a node's own
// writes clear its local tier.
type Listener struct {
	reg   *Registry
	bus   bus.Bus
	topic string
	codec c.Codec[Message]
	log   Logger
	hooks Hooks

	retryDelay    time.Duration
	maxRetryDelay time.Duration

	mu      sync.Mutex
	sub     bus.Subscription
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func NewListener(reg *Registry, opts ListenerOptions) *Listener {
	return &Listener{
		reg:   reg,
		bus:   coalesce[bus.Bus](opts.Bus, reg.bus),
		topic: coalesce(opts.Topic, reg.topic),
		codec: coalesce[c.Codec[Message]](opts.Codec, reg.msgCodec),
		log:   reg.log,
		hooks: reg.hooks,

		retryDelay:    coalesce(opts.RetryDelay, 100*time.Millisecond),
		maxRetryDelay: coalesce(opts.MaxRetryDelay, 10*time.Second),
	}
}

// Start subscribes and returns once the subscription is live. Delivery runs
// on a single goroutine until ctx is done or Close is called. A subscription
// dropped by the transport is replaced with backoff.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.stopped:
		return ErrListenerClosed
	case l.sub != nil:
		return ErrListenerStarted
	case l.bus == nil:
		return ErrNilBus
	}

	sub, err := l.bus.Subscribe(ctx, l.topic)
	if err != nil {
		return fmt.Errorf("clustercache: subscribe %q: %w", l.topic, err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.sub, l.cancel, l.done = sub, cancel, make(chan struct{})
	go l.run(runCtx, sub, l.done)

	l.log.Info("invalidation listener started", Fields{"topic": l.topic})
	return nil
}

func (l *Listener) run(ctx context.Context, sub bus.Subscription, done chan struct{}) {
	defer close(done)
	for {
		if !l.deliver(ctx, sub.Messages()) {
			return
		}
		_ = sub.Close()
		l.log.Warn("invalidation subscription ended", Fields{"topic": l.topic})
		l.hooks.MessageDropped("resubscribe", ErrSubscriptionEnded)
		if sub = l.resubscribe(ctx); sub == nil {
			return
		}
	}
}

// deliver handles payloads until in is closed (true) or ctx is done (false).
func (l *Listener) deliver(ctx context.Context, in <-chan []byte) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case payload, ok := <-in:
			if !ok {
				return ctx.Err() == nil
			}
			l.handle(payload)
		}
	}
}

// resubscribe retries Subscribe until it succeeds. It returns nil when ctx is
// done, the listener was closed, or the bus itself is closed.
func (l *Listener) resubscribe(ctx context.Context) bus.Subscription {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.retryDelay
	bo.MaxInterval = l.maxRetryDelay

	for attempt := 1; ; attempt++ {
		sub, err := l.bus.Subscribe(ctx, l.topic)
		if err == nil {
			l.mu.Lock()
			if l.stopped {
				l.mu.Unlock()
				_ = sub.Close()
				return nil
			}
			l.sub = sub
			l.mu.Unlock()
			l.log.Info("invalidation listener resubscribed", Fields{"topic": l.topic, "attempt": attempt})
			return sub
		}
		if errors.Is(err, bus.ErrClosed) {
			l.log.Error("invalidation bus closed, listener stopped", Fields{"topic": l.topic})
			return nil
		}

		wait := bo.NextBackOff()
		l.log.Warn("resubscribe failed", Fields{"topic": l.topic, "attempt": attempt, "retry_in": wait, "err": err})
		l.hooks.MessageDropped("resubscribe", err)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (l *Listener) handle(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			l.log.Error("invalidation handler panicked", Fields{"err": err})
			l.hooks.MessageDropped("panic", err)
		}
	}()

	msg, err := l.codec.Decode(payload)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		l.log.Warn("dropped invalidation", Fields{"err": err, "size": len(payload)})
		l.hooks.MessageDropped("malformed", err)
		return
	}
	l.log.Debug("invalidation received", Fields{"msg": msg.String()})
	l.hooks.Received(msg)
	l.reg.clearLocal(msg.CacheName, msg.Key)
}

// Close stops delivery and waits for the loop to exit.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	sub, cancel, done := l.sub, l.cancel, l.done
	l.mu.Unlock()

	if sub == nil {
		return nil
	}
	cancel()
	err := sub.Close()
	<-done
	return err
}
