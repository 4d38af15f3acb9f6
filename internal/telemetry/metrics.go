package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// --- AIS ingestion ---

var AISMessagesReceivedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "ais",
		Name:      "messages_received_total",
		Help:      "Total number of AIS position reports received from upstream (or simulator).",
	},
)

var AISDuplicatesFilteredTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "ais",
		Name:      "duplicates_filtered_total",
		Help:      "Total number of AIS messages dropped as duplicates.",
	},
)

var AISMessagesDroppedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "ais",
		Name:      "messages_dropped_total",
		Help:      "Total number of AIS messages dropped due to a full queue.",
	},
)

var AISQueueSize = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "veriscope",
		Subsystem: "ais",
		Name:      "queue_size",
		Help:      "Current number of messages waiting in the AIS ingest queue.",
	},
)

var AISHashSetSize = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "veriscope",
		Subsystem: "ais",
		Name:      "hash_set_size",
		Help:      "Current number of fingerprints held in the dedup set.",
	},
)

var AISReconnectAttempts = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "veriscope",
		Subsystem: "ais",
		Name:      "reconnect_attempts",
		Help:      "Current consecutive reconnect attempt count.",
	},
)

var AISConnectionHealthy = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "veriscope",
		Subsystem: "ais",
		Name:      "connection_healthy",
		Help:      "1 if the AIS ingestor considers itself healthy, else 0.",
	},
)

// --- Port-call detection ---

var PortCallTransitionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "portcall",
		Name:      "transitions_total",
		Help:      "Total number of port-call state transitions by kind.",
	},
	[]string{"transition"}, // arrival, departure, transfer
)

var PortCallTickDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "veriscope",
		Subsystem: "portcall",
		Name:      "tick_duration_seconds",
		Help:      "Duration of a single port-call detector tick.",
		Buckets:   prometheus.DefBuckets,
	},
)

// --- Baseline builder ---

var BaselineUpsertsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "baseline",
		Name:      "upserts_total",
		Help:      "Total number of port_daily_baselines rows upserted.",
	},
)

var BaselineBuildDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "veriscope",
		Subsystem: "baseline",
		Name:      "build_duration_seconds",
		Help:      "Duration of a baseline backfill run.",
		Buckets:   prometheus.DefBuckets,
	},
)

// --- Signal engine ---

var SignalsEmittedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "signal",
		Name:      "emitted_total",
		Help:      "Total number of signals upserted by type and severity.",
	},
	[]string{"signal_type", "severity"},
)

var SignalEvalDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "veriscope",
		Subsystem: "signal",
		Name:      "eval_duration_seconds",
		Help:      "Duration of a signal engine evaluation run.",
		Buckets:   prometheus.DefBuckets,
	},
)

// --- Dedupe & rate limit ---

var AlertsDeduplicatedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "dispatch",
		Name:      "skipped_dedupe_total",
		Help:      "Total number of candidates skipped due to dedupe TTL.",
	},
)

var AlertsRateLimitedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "dispatch",
		Name:      "skipped_rate_limit_total",
		Help:      "Total number of candidates skipped due to per-endpoint rate limiting.",
	},
)

// --- Delivery runtime ---

var DeliveriesSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "delivery",
		Name:      "sent_total",
		Help:      "Total number of successful deliveries by channel.",
	},
	[]string{"channel"},
)

var DeliveriesFailedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "delivery",
		Name:      "failed_total",
		Help:      "Total number of terminally failed deliveries by channel.",
	},
	[]string{"channel"},
)

var DeliveryAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "delivery",
		Name:      "attempts_total",
		Help:      "Total number of physical delivery attempts by outcome.",
	},
	[]string{"outcome"}, // success, failure
)

var DeliveryLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "veriscope",
		Subsystem: "delivery",
		Name:      "latency_seconds",
		Help:      "Latency of a single delivery attempt.",
		Buckets:   prometheus.DefBuckets,
	},
)

var DLQDepth = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "veriscope",
		Subsystem: "delivery",
		Name:      "dlq_depth",
		Help:      "Current number of rows in the dead-letter queue.",
	},
)

var DLQDrainedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "delivery",
		Name:      "dlq_drained_total",
		Help:      "Total number of DLQ rows successfully redelivered.",
	},
)

// --- Dispatcher ---

var DispatchRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "veriscope",
		Subsystem: "dispatch",
		Name:      "runs_total",
		Help:      "Total number of dispatcher runs by terminal status.",
	},
	[]string{"status"},
)

// HTTPRequestDuration tracks HTTP request latency, observed by httpserver middleware.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "veriscope",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// All returns every Veriscope-specific metric collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		AISMessagesReceivedTotal,
		AISDuplicatesFilteredTotal,
		AISMessagesDroppedTotal,
		AISQueueSize,
		AISHashSetSize,
		AISReconnectAttempts,
		AISConnectionHealthy,
		PortCallTransitionsTotal,
		PortCallTickDuration,
		BaselineUpsertsTotal,
		BaselineBuildDuration,
		SignalsEmittedTotal,
		SignalEvalDuration,
		AlertsDeduplicatedTotal,
		AlertsRateLimitedTotal,
		DeliveriesSentTotal,
		DeliveriesFailedTotal,
		DeliveryAttemptsTotal,
		DeliveryLatency,
		DLQDepth,
		DLQDrainedTotal,
		DispatchRunsTotal,
		HTTPRequestDuration,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors
// and every collector from All(), plus any extras passed in.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, c := range All() {
		reg.MustRegister(c)
	}
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
