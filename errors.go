package clustercache

import (
	"errors"
	"fmt"
)

var (
	ErrNilProvider      = errors.New("clustercache: provider is required")
	ErrNilBus           = errors.New("clustercache: bus is required when local caching is enabled")
	ErrInvalidName      = errors.New("clustercache: cache name must not be empty")
	ErrUnknownCache     = errors.New("clustercache: unknown cache")
	ErrRegistryClosed   = errors.New("clustercache: registry closed")
	ErrStoreUnavailable = errors.New("clustercache: shared store unavailable")
	ErrMalformedMessage = errors.New("clustercache: malformed invalidation message")
	ErrListenerStarted  = errors.New("clustercache: listener already started")
	ErrListenerClosed   = errors.New("clustercache: listener closed")

	ErrSubscriptionEnded = errors.New("clustercache: invalidation subscription ended")
)

// RetrievalError reports a loader that failed or panicked inside GetOrLoad.
type RetrievalError struct {
	Cache string
	Key   string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("load %s:%q: %v", e.Cache, e.Key, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// StoreError wraps a failed shared-store call. It matches ErrStoreUnavailable.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// PublishError is returned when the shared store was mutated but the
// invalidation could not be broadcast. Other nodes may serve their local copy
// until it expires.
type PublishError struct {
	Cache string
	Key   *string // nil for a namespace or global flush
	Err   error
}

func (e *PublishError) Error() string {
	switch {
	case e.Cache == "":
		return fmt.Sprintf("publish global flush: %v", e.Err)
	case e.Key == nil:
		return fmt.Sprintf("publish flush of %s: %v", e.Cache, e.Err)
	default:
		return fmt.Sprintf("publish invalidation %s:%q: %v", e.Cache, *e.Key, e.Err)
	}
}

func (e *PublishError) Unwrap() error { return e.Err }
