// Package metrics exposes Prometheus instrumentation for validation runs:
// rule throughput and latency, scheduler steal activity, and scan-cache
// effectiveness. Collectors register against an injected registry so tests
// and embedded runs stay isolated from the process-global default.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jamesainslie/verity/pkg/verity/logging"
)

var logger = logging.Get("metrics")

// Collector gathers run-time metrics for the validator.
type Collector struct {
	registry *prometheus.Registry

	rulesExecuted prometheus.Counter
	rulesFailed   prometheus.Counter
	rulesPending  prometheus.Counter
	steals        prometheus.Counter
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter

	ruleLatency prometheus.Histogram
	batchIdle   prometheus.Gauge
	inFlight    prometheus.Gauge
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		rulesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verity_rules_executed_total",
			Help: "Total rules executed.",
		}),
		rulesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verity_rules_failed_total",
			Help: "Total rules that failed validation.",
		}),
		rulesPending: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verity_rules_pending_total",
			Help: "Total rules left unexecuted at a batch deadline.",
		}),
		steals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verity_scheduler_steals_total",
			Help: "Total successful work-steal operations.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verity_fscache_hits_total",
			Help: "Total scan-cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verity_fscache_misses_total",
			Help: "Total scan-cache misses (scope scans).",
		}),
		ruleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "verity_rule_latency_seconds",
			Help:    "Rule execution latency distribution.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		batchIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "verity_batch_idle_percent",
			Help: "Idle-time percentage of the most recent batch.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "verity_rules_in_flight",
			Help: "Rules currently executing.",
		}),
	}

	c.registry.MustRegister(
		c.rulesExecuted, c.rulesFailed, c.rulesPending, c.steals,
		c.cacheHits, c.cacheMisses, c.ruleLatency, c.batchIdle, c.inFlight,
	)
	return c
}

// RuleStarted marks a rule execution as in flight.
func (c *Collector) RuleStarted() {
	if c == nil {
		return
	}
	c.inFlight.Inc()
}

// RuleFinished records one completed rule execution.
func (c *Collector) RuleFinished(passed bool, d time.Duration) {
	if c == nil {
		return
	}
	c.inFlight.Dec()
	c.rulesExecuted.Inc()
	c.ruleLatency.Observe(d.Seconds())
	if !passed {
		c.rulesFailed.Inc()
	}
}

// RulePending records a rule left unexecuted at batch deadline.
func (c *Collector) RulePending() {
	if c == nil {
		return
	}
	c.rulesPending.Inc()
	c.rulesFailed.Inc()
}

// BatchDrained records batch-level scheduler counters.
func (c *Collector) BatchDrained(steals int64, idlePercent float64) {
	if c == nil {
		return
	}
	c.steals.Add(float64(steals))
	c.batchIdle.Set(idlePercent)
}

// CacheCounters records the delta of scan-cache hits and misses.
func (c *Collector) CacheCounters(hits, misses int64) {
	if c == nil {
		return
	}
	c.cacheHits.Add(float64(hits))
	c.cacheMisses.Add(float64(misses))
}

// Handler returns the HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr. Blocks; intended for watch mode, run it
// in its own goroutine.
func (c *Collector) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	logger.Info("metrics listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}
