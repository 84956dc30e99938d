// Package amqp is a Bus over RabbitMQ fanout exchanges. Each topic maps to a
// fanout exchange of the same name; each subscription binds an exclusive,
// auto-deleted, server-named queue to it, so every node receives every message.
package amqp

import (
	"context"
	"errors"
	"sync"

	"github.com/streadway/amqp"

	"github.com/unkn0wn-root/clustercache/bus"
)

var ErrNilConnection = errors.New("amqp bus: nil connection")

// Channel is the subset of *amqp.Channel used by the bus.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a fresh channel. Subscriptions get their own channel so that
// closing one does not affect publishing.
type Dialer func() (Channel, error)

type Bus struct {
	open      Dialer
	closeConn func() error

	mu       sync.Mutex
	pub      Channel
	declared map[string]struct{}
	closed   bool
}

var _ bus.Bus = (*Bus)(nil)

// Dial connects to url and owns the connection.
func Dial(url string) (*Bus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	b, err := NewFromConnection(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	b.closeConn = conn.Close
	return b, nil
}

// NewFromConnection uses an existing connection; Close does not close it.
func NewFromConnection(conn *amqp.Connection) (*Bus, error) {
	if conn == nil {
		return nil, ErrNilConnection
	}
	return New(func() (Channel, error) { return conn.Channel() }), nil
}

func New(open Dialer) *Bus {
	return &Bus{open: open, declared: make(map[string]struct{})}
}

func declare(ch Channel, topic string) error {
	return ch.ExchangeDeclare(topic, amqp.ExchangeFanout, true, false, false, false, nil)
}

func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return bus.ErrClosed
	}
	if b.pub == nil {
		ch, err := b.open()
		if err != nil {
			return err
		}
		b.pub = ch
	}
	if _, ok := b.declared[topic]; !ok {
		if err := declare(b.pub, topic); err != nil {
			b.resetPublisher()
			return err
		}
		b.declared[topic] = struct{}{}
	}
	err := b.pub.Publish(topic, "", false, false, amqp.Publishing{
		ContentType: "application/octet-stream",
		Body:        payload,
	})
	if err != nil {
		// a failed channel is unusable; reopen on the next publish
		b.resetPublisher()
	}
	return err
}

// resetPublisher is called with b.mu held.
func (b *Bus) resetPublisher() {
	if b.pub != nil {
		_ = b.pub.Close()
	}
	b.pub = nil
	b.declared = make(map[string]struct{})
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (bus.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, bus.ErrClosed
	}

	ch, err := b.open()
	if err != nil {
		return nil, err
	}
	deliveries, err := bind(ch, topic)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	s := &subscription{
		ch:   ch,
		out:  make(chan []byte, 64),
		done: make(chan struct{}),
	}
	go s.forward(deliveries)
	return s, nil
}

func bind(ch Channel, topic string) (<-chan amqp.Delivery, error) {
	if err := declare(ch, topic); err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, err
	}
	if err := ch.QueueBind(q.Name, "", topic, false, nil); err != nil {
		return nil, err
	}
	return ch.Consume(q.Name, "", true, true, false, false, nil)
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	var errs []error
	if b.pub != nil {
		errs = append(errs, b.pub.Close())
		b.pub = nil
	}
	if b.closeConn != nil {
		errs = append(errs, b.closeConn())
	}
	return errors.Join(errs...)
}

type subscription struct {
	ch   Channel
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (s *subscription) Messages() <-chan []byte { return s.out }

func (s *subscription) forward(in <-chan amqp.Delivery) {
	defer close(s.out)
	for {
		select {
		case d, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- d.Body:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ch.Close()
	})
	return err
}
