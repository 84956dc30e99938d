package clustercache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// An invalidation was broadcast.
	Published(msg Message)
	// Broadcast failed after the shared store was mutated.
	PublishFailed(msg Message, err error)

	// The listener decoded an invalidation and routed it.
	Received(msg Message)
	// The listener dropped a payload.
	// reason ∈ {"malformed", "panic"}
	MessageDropped(reason string, err error)

	// An entry was deleted on read.
	// reason ∈ {"corrupt", "local_corrupt", "value_decode"}
	SelfHeal(storageKey, reason string)

	// A GetOrLoad loader finished. err is nil on success.
	Loaded(cache string, took time.Duration, err error)

	InstanceCreated(cache string)
	// A named cache was dropped to honour the instance bound. err is the
	// shared-store cleanup failure, if any.
	InstanceEvicted(cache string, err error)
	// Every local instance was dropped by a global flush.
	GlobalFlush(dropped int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Published(Message)                   {}
func (NopHooks) PublishFailed(Message, error)        {}
func (NopHooks) Received(Message)                    {}
func (NopHooks) MessageDropped(string, error)        {}
func (NopHooks) SelfHeal(string, string)             {}
func (NopHooks) Loaded(string, time.Duration, error) {}
func (NopHooks) InstanceCreated(string)              {}
func (NopHooks) InstanceEvicted(string, error)       {}
func (NopHooks) GlobalFlush(int)                     {}
