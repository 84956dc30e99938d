// Package prom exports clustercache events and per-cache statistics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/clustercache"
)

const namespace = "clustercache"

// Hooks counts cache events. Register it with NewHooks and pass it as
// Options.Hooks (optionally behind hooks/async).
type Hooks struct {
	Publishes        *prometheus.CounterVec
	PublishFailures  *prometheus.CounterVec
	Receives         *prometheus.CounterVec
	Dropped          *prometheus.CounterVec
	SelfHeals        *prometheus.CounterVec
	LoadDuration     *prometheus.HistogramVec
	InstancesCreated prometheus.Counter
	InstancesEvicted *prometheus.CounterVec
	GlobalFlushes    prometheus.Counter
}

var _ clustercache.Hooks = (*Hooks)(nil)

// NewHooks creates and registers all event metrics with the given registerer.
func NewHooks(reg prometheus.Registerer) *Hooks {
	h := &Hooks{
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_published_total",
			Help:      "Invalidations broadcast, by scope.",
		}, []string{"scope"}),

		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidation_publish_failures_total",
			Help:      "Invalidations that could not be broadcast, by scope.",
		}, []string{"scope"}),

		Receives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_received_total",
			Help:      "Invalidations applied by the listener, by scope.",
		}, []string{"scope"}),

		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_dropped_total",
			Help:      "Payloads dropped by the listener, by reason.",
		}, []string{"reason"}),

		SelfHeals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "self_heals_total",
			Help:      "Entries deleted on read, by reason.",
		}, []string{"reason"}),

		LoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "GetOrLoad loader duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"cache", "result"}),

		InstancesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_created_total",
			Help:      "Named cache instances created.",
		}),

		InstancesEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_evicted_total",
			Help:      "Named cache instances dropped to honour the instance bound.",
		}, []string{"cleanup"}),

		GlobalFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "global_flushes_total",
			Help:      "Global flushes applied on this node.",
		}),
	}

	reg.MustRegister(
		h.Publishes,
		h.PublishFailures,
		h.Receives,
		h.Dropped,
		h.SelfHeals,
		h.LoadDuration,
		h.InstancesCreated,
		h.InstancesEvicted,
		h.GlobalFlushes,
	)
	return h
}

func scope(m clustercache.Message) string {
	switch {
	case m.IsGlobal():
		return "global"
	case m.IsNamespace():
		return "namespace"
	default:
		return "key"
	}
}

func (h *Hooks) Published(m clustercache.Message) { h.Publishes.WithLabelValues(scope(m)).Inc() }
func (h *Hooks) Received(m clustercache.Message)  { h.Receives.WithLabelValues(scope(m)).Inc() }
func (h *Hooks) SelfHeal(_, reason string)        { h.SelfHeals.WithLabelValues(reason).Inc() }
func (h *Hooks) InstanceCreated(string)           { h.InstancesCreated.Inc() }
func (h *Hooks) GlobalFlush(int)                  { h.GlobalFlushes.Inc() }

func (h *Hooks) PublishFailed(m clustercache.Message, _ error) {
	h.PublishFailures.WithLabelValues(scope(m)).Inc()
}

func (h *Hooks) MessageDropped(reason string, _ error) {
	h.Dropped.WithLabelValues(reason).Inc()
}

func (h *Hooks) Loaded(cache string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.LoadDuration.WithLabelValues(cache, result).Observe(took.Seconds())
}

func (h *Hooks) InstanceEvicted(_ string, err error) {
	cleanup := "ok"
	if err != nil {
		cleanup = "failed"
	}
	h.InstancesEvicted.WithLabelValues(cleanup).Inc()
}
