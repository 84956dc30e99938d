// Package redsync is a clustercache.LoadLocker backed by go-redsync, so that
// only one node runs the loader for a given storage key at a time.
package redsync

import (
	"context"
	"errors"
	"time"

	"github.com/go-redsync/redsync/v4"
	rsgoredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/clustercache"
)

var ErrNilClient = errors.New("redsync locker: nil client")

type Config struct {
	Client goredis.UniversalClient

	Prefix     string        // lock key prefix; "" => "lock:"
	Expiry     time.Duration // lock TTL; 0 => 30s. Should exceed the slowest loader.
	Tries      int           // acquire attempts; 0 => 64
	RetryDelay time.Duration // 0 => 50ms
}

type Locker struct {
	rs     *redsync.Redsync
	prefix string
	opts   []redsync.Option
}

var _ clustercache.LoadLocker = (*Locker)(nil)

func New(cfg Config) (*Locker, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "lock:"
	}
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = 30 * time.Second
	}
	tries := cfg.Tries
	if tries <= 0 {
		tries = 64
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	return &Locker{
		rs:     redsync.New(rsgoredis.NewPool(cfg.Client)),
		prefix: prefix,
		opts: []redsync.Option{
			redsync.WithExpiry(expiry),
			redsync.WithTries(tries),
			redsync.WithRetryDelay(delay),
		},
	}, nil
}

// Lock acquires the mutex for key. The returned unlock must be called exactly once.
func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	m := l.rs.NewMutex(l.prefix+key, l.opts...)
	if err := m.LockContext(ctx); err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		ok, err := m.UnlockContext(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return redsync.ErrLockAlreadyExpired
		}
		return nil
	}, nil
}
