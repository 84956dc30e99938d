// Package redis is a Bus over Redis PUBLISH/SUBSCRIBE.
package redis

import (
	"context"
	"errors"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/clustercache/bus"
)

var ErrNilClient = errors.New("redis bus: nil client")

const defaultBuffer = 256

type Bus struct {
	rdb         goredis.UniversalClient
	closeClient bool
	buffer      int
}

var _ bus.Bus = (*Bus)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this bus exclusively owns the client
	Buffer      int  // per-subscription channel size; 0 => 256
}

func New(cfg Config) (*Bus, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	buf := cfg.Buffer
	if buf <= 0 {
		buf = defaultBuffer
	}
	return &Bus{rdb: cfg.Client, closeClient: cfg.CloseClient, buffer: buf}, nil
}

func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.rdb.Publish(ctx, topic, payload).Err()
}

// Subscribe waits for the SUBSCRIBE confirmation before returning.
func (b *Bus) Subscribe(ctx context.Context, topic string) (bus.Subscription, error) {
	ps := b.rdb.Subscribe(ctx, topic)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	s := &subscription{
		ps:   ps,
		out:  make(chan []byte, b.buffer),
		done: make(chan struct{}),
	}
	go s.forward(ps.Channel(goredis.WithChannelSize(b.buffer)))
	return s, nil
}

func (b *Bus) Close() error {
	if b.closeClient {
		if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

type subscription struct {
	ps   *goredis.PubSub
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (s *subscription) Messages() <-chan []byte { return s.out }

func (s *subscription) forward(in <-chan *goredis.Message) {
	defer close(s.out)
	for {
		select {
		case m, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- []byte(m.Payload):
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
		err = s.ps.Close()
	})
	return err
}
