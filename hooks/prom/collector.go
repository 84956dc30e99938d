package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/clustercache"
)

// StatsSource is satisfied by *clustercache.Registry.
type StatsSource interface {
	Stats() map[string]clustercache.Stats
}

// Collector exports per-cache statistics on every scrape.
type Collector struct {
	src StatsSource

	hits, misses, evictions *prometheus.Desc
	loadOK, loadFail        *prometheus.Desc
	loadTime, localKeys     *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(src StatsSource) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, []string{"cache"}, nil)
	}
	return &Collector{
		src:       src,
		hits:      desc("local_hits_total", "Local tier hits."),
		misses:    desc("local_misses_total", "Local tier misses."),
		evictions: desc("local_evictions_total", "Local tier evictions."),
		loadOK:    desc("loads_total", "Successful loads."),
		loadFail:  desc("load_failures_total", "Failed loads."),
		loadTime:  desc("load_seconds_total", "Total time spent in loaders."),
		localKeys: desc("local_keys", "Keys held by the local tier."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.loadOK
	ch <- c.loadFail
	ch <- c.loadTime
	ch <- c.localKeys
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for name, s := range c.src.Stats() {
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits), name)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses), name)
		ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions), name)
		ch <- prometheus.MustNewConstMetric(c.loadOK, prometheus.CounterValue, float64(s.LoadSuccesses), name)
		ch <- prometheus.MustNewConstMetric(c.loadFail, prometheus.CounterValue, float64(s.LoadFailures), name)
		ch <- prometheus.MustNewConstMetric(c.loadTime, prometheus.CounterValue, s.TotalLoadTime.Seconds(), name)
		ch <- prometheus.MustNewConstMetric(c.localKeys, prometheus.GaugeValue, float64(len(s.Keys)), name)
	}
}
