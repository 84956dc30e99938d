// Package bus defines the broadcast channel clustercache uses to announce
// invalidations. Delivery is best-effort and unordered; every subscriber on a
// topic, including the publishing process itself, receives every message that
// is delivered at all.
package bus

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("bus: closed")

// Bus publishes payloads to a topic and hands out subscriptions to it.
// Must be safe for concurrent use.
type Bus interface {
	// Publish blocks until the transport accepted the payload.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe returns once the subscription is live: messages published
	// after Subscribe returns are delivered to it.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	Close() error
}

// Subscription delivers raw payloads. The channel is closed when the
// subscription ends.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}
