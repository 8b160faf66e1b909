package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency across every endpoint.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "rosterctl",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// GenerationDuration tracks how long a full scheduling run (all restarts)
// takes, by outcome.
var GenerationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "rosterctl",
		Subsystem: "generation",
		Name:      "duration_seconds",
		Help:      "Time to generate a schedule, including all restarts.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	},
	[]string{"outcome"},
)

// RestartsUsedTotal records, per generation, the number of restart attempts
// it ran; every configured restart is run before the best one is kept.
var RestartsUsedTotal = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "rosterctl",
		Subsystem: "generation",
		Name:      "restarts_used",
		Help:      "Number of restart attempts used by a generation run.",
		Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
	},
)

// CoverageRatio tracks the fraction of slots filled at the end of a run.
var CoverageRatio = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "rosterctl",
		Subsystem: "generation",
		Name:      "coverage_ratio",
		Help:      "Fraction of schedule slots filled at the end of a run.",
		Buckets:   []float64{0.5, 0.75, 0.9, 0.95, 0.99, 0.999, 1},
	},
)

// RunsTotal counts completed runs by outcome (completed, failed, cached).
var RunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rosterctl",
		Subsystem: "generation",
		Name:      "runs_total",
		Help:      "Total number of scheduling runs by outcome.",
	},
	[]string{"outcome"},
)

// SlackNotificationsTotal counts Slack notifications sent by type.
var SlackNotificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rosterctl",
		Subsystem: "slack",
		Name:      "notifications_total",
		Help:      "Total number of Slack notifications sent by type.",
	},
	[]string{"type"},
)

// All returns the service-specific collectors for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		GenerationDuration,
		RestartsUsedTotal,
		CoverageRatio,
		RunsTotal,
		SlackNotificationsTotal,
	}
}

// NewRegistry creates a Prometheus registry with the standard Go/process
// collectors plus every service-specific collector from All.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, c := range All() {
		reg.MustRegister(c)
	}
	return reg
}
