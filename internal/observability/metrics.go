// Package observability owns the Prometheus instruments for the gateway.
// Instruments are created and registered by Init; every helper is a no-op
// until then, so library code can record unconditionally.
package observability

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type instruments struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	codecOps *prometheus.CounterVec

	cacheOps    *prometheus.CounterVec
	cacheOpDur  *prometheus.HistogramVec
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	batchJobs  *prometheus.CounterVec
	batchItems *prometheus.CounterVec

	hotRegions *prometheus.GaugeVec

	taggerEvents *prometheus.CounterVec
	taggerErrors *prometheus.CounterVec
	taggerLag    prometheus.Gauge
}

var current atomic.Pointer[instruments]

// Init registers a fresh instrument set on reg. Passing enabled=false (or a
// nil registerer) turns every helper into a no-op.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		current.Store(nil)
		return
	}

	in := &instruments{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"method", "route", "status"},
		),
		codecOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codec_op_total",
				Help: "DIGIPIN codec operations by outcome.",
			},
			[]string{"op", "status"},
		),
		cacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_op_total",
				Help: "Redis operations by outcome.",
			},
			[]string{"op", "status"},
		),
		cacheOpDur: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redis_operation_duration_seconds",
				Help:    "Duration of Redis operations in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"op"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Job store reads that found a record.",
			},
		),
		cacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Job store reads that found nothing.",
			},
		),
		batchJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batch_jobs_total",
				Help: "Batch encode jobs by disposition.",
			},
			[]string{"status"},
		),
		batchItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batch_items_total",
				Help: "Batch encode rows by result.",
			},
			[]string{"result"},
		),
		hotRegions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hot_regions",
				Help: "Number of region prefixes currently tracked.",
			},
			[]string{"tier"},
		),
		taggerEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tagger_events_total",
				Help: "Location events consumed by the tagger, by disposition.",
			},
			[]string{"result"},
		),
		taggerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tagger_errors_total",
				Help: "Tagger failures by kind.",
			},
			[]string{"kind"},
		),
		taggerLag: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tagger_lag_seconds",
				Help: "Approximate lag: now - message timestamp.",
			},
		),
	}

	reg.MustRegister(
		in.httpRequests, in.httpDuration,
		in.codecOps,
		in.cacheOps, in.cacheOpDur, in.cacheHits, in.cacheMisses,
		in.batchJobs, in.batchItems,
		in.hotRegions,
		in.taggerEvents, in.taggerErrors, in.taggerLag,
	)
	current.Store(in)
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	in := current.Load()
	if in == nil {
		return
	}
	st := strconv.Itoa(status)
	in.httpRequests.WithLabelValues(method, route, st).Inc()
	in.httpDuration.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveCodecOp(op string, err error) {
	in := current.Load()
	if in == nil {
		return
	}
	in.codecOps.WithLabelValues(op, statusLabel(err)).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	in := current.Load()
	if in == nil {
		return
	}
	in.cacheOps.WithLabelValues(op, statusLabel(err)).Inc()
	in.cacheOpDur.WithLabelValues(op).Observe(durationSeconds)
}

func AddCacheHits(n int) {
	in := current.Load()
	if in == nil || n <= 0 {
		return
	}
	in.cacheHits.Add(float64(n))
}

func AddCacheMisses(n int) {
	in := current.Load()
	if in == nil || n <= 0 {
		return
	}
	in.cacheMisses.Add(float64(n))
}

func IncBatchJob(status string) {
	in := current.Load()
	if in == nil {
		return
	}
	in.batchJobs.WithLabelValues(status).Inc()
}

func AddBatchItems(result string, n int) {
	in := current.Load()
	if in == nil || n <= 0 {
		return
	}
	in.batchItems.WithLabelValues(result).Add(float64(n))
}

func SetHotRegionsGauge(tier string, n int) {
	in := current.Load()
	if in == nil {
		return
	}
	in.hotRegions.WithLabelValues(tier).Set(float64(n))
}

func IncTaggerEvent(result string) {
	in := current.Load()
	if in == nil {
		return
	}
	in.taggerEvents.WithLabelValues(result).Inc()
}

func IncTaggerError(kind string) {
	in := current.Load()
	if in == nil {
		return
	}
	in.taggerErrors.WithLabelValues(kind).Inc()
}

func SetTaggerLagSeconds(v float64) {
	in := current.Load()
	if in == nil {
		return
	}
	in.taggerLag.Set(v)
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
