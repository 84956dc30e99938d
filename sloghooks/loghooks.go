package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/clustercache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	ReceivedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	receivedCtr atomic.Uint64
}

var _ clustercache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func (h *Hooks) msgAttrs(m clustercache.Message) []any {
	attrs := make([]any, 0, 4)
	if m.CacheName != nil {
		attrs = append(attrs, "cache", *m.CacheName)
	}
	if m.Key != nil {
		attrs = append(attrs, "key", h.redact(*m.Key))
	}
	return attrs
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Published(m clustercache.Message) {
	if h.l == nil {
		return
	}
	h.l.Debug("clustercache.published", h.msgAttrs(m)...)
}

func (h *Hooks) PublishFailed(m clustercache.Message, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("clustercache.publish_failed", append(h.msgAttrs(m), "err", err)...)
}

func (h *Hooks) Received(m clustercache.Message) {
	if h.l == nil || !sample(h.opts.ReceivedEvery, &h.receivedCtr) {
		return
	}
	h.l.Debug("clustercache.received", h.msgAttrs(m)...)
}

func (h *Hooks) MessageDropped(reason string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("clustercache.message_dropped",
		"reason", reason,
		"err", err)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("clustercache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) Loaded(cache string, took time.Duration, err error) {
	if h.l == nil || err == nil {
		return
	}
	h.l.Warn("clustercache.load_failed",
		"cache", cache,
		"took", took,
		"err", err)
}

func (h *Hooks) InstanceCreated(cache string) {
	if h.l == nil {
		return
	}
	h.l.Info("clustercache.instance_created", "cache", cache)
}

func (h *Hooks) InstanceEvicted(cache string, err error) {
	if h.l == nil {
		return
	}
	if err != nil {
		h.l.Warn("clustercache.instance_evicted", "cache", cache, "err", err)
		return
	}
	h.l.Info("clustercache.instance_evicted", "cache", cache)
}

func (h *Hooks) GlobalFlush(dropped int) {
	if h.l == nil {
		return
	}
	h.l.Info("clustercache.global_flush", "dropped", dropped)
}
