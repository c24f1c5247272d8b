// Package observability exposes process-wide instrumentation: structured
// logging (observability/logging) and Prometheus metrics. Metrics follow the
// teacher's lazily-initialised singleton-registry idiom (each collector group
// gets one sync.Once, registered against the default Prometheus registry on
// first use) rather than the teacher's own chain-specific collectors.
package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type requestMetrics struct {
	created  *prometheus.CounterVec
	decided  *prometheus.CounterVec
	executed *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

type schedulerMetrics struct {
	batchDuration prometheus.Histogram
	batchOutcome  *prometheus.CounterVec
	queueDepth    prometheus.Gauge
}

type authzMetrics struct {
	decisions *prometheus.CounterVec
	throttled *prometheus.CounterVec
}

type upgraderMetrics struct {
	installs *prometheus.CounterVec
}

// httpMetrics tracks the api/httpapi request surface, the in-process
// replacement for the teacher's gateway/middleware/observability.go
// (which paired the same counter/histogram pair with an OpenTelemetry
// tracer STATION has no use for).
type httpMetrics struct {
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

var (
	requestMetricsOnce sync.Once
	requestRegistry    *requestMetrics

	schedulerMetricsOnce sync.Once
	schedulerRegistry    *schedulerMetrics

	authzMetricsOnce sync.Once
	authzRegistry    *authzMetrics

	upgraderMetricsOnce sync.Once
	upgraderRegistry    *upgraderMetrics

	httpMetricsOnce sync.Once
	httpRegistry    *httpMetrics
)

// Requests returns the lazily-initialised registry tracking request
// lifecycle transitions (the Request state machine).
func Requests() *requestMetrics {
	requestMetricsOnce.Do(func() {
		requestRegistry = &requestMetrics{
			created: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "station",
				Subsystem: "requests",
				Name:      "created_total",
				Help:      "Count of requests created, segmented by operation kind.",
			}, []string{"operation"}),
			decided: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "station",
				Subsystem: "requests",
				Name:      "decided_total",
				Help:      "Count of requests that reached a terminal policy decision, segmented by operation kind and outcome.",
			}, []string{"operation", "outcome"}),
			executed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "station",
				Subsystem: "requests",
				Name:      "executed_total",
				Help:      "Count of approved requests executed, segmented by operation kind and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "station",
				Subsystem: "requests",
				Name:      "decision_latency_seconds",
				Help:      "Latency from request creation to terminal decision.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
		}
		prometheus.MustRegister(
			requestRegistry.created,
			requestRegistry.decided,
			requestRegistry.executed,
			requestRegistry.latency,
		)
	})
	return requestRegistry
}

// RecordCreated increments the created counter for an operation kind.
func (m *requestMetrics) RecordCreated(operation string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(labelOrUnknown(operation)).Inc()
}

// RecordDecided increments the decided counter and observes decision latency.
func (m *requestMetrics) RecordDecided(operation, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	op := labelOrUnknown(operation)
	m.decided.WithLabelValues(op, labelOrUnknown(outcome)).Inc()
	m.latency.WithLabelValues(op).Observe(latency.Seconds())
}

// RecordExecuted increments the executed counter. outcome is one of
// "completed", "processing", or "failed".
func (m *requestMetrics) RecordExecuted(operation, outcome string) {
	if m == nil {
		return
	}
	m.executed.WithLabelValues(labelOrUnknown(operation), labelOrUnknown(outcome)).Inc()
}

// Scheduler returns the lazily-initialised registry tracking the cooperative
// scheduler's batch processing job.
func Scheduler() *schedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerRegistry = &schedulerMetrics{
			batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "station",
				Subsystem: "scheduler",
				Name:      "batch_duration_seconds",
				Help:      "Wall-clock duration of a single scheduler batch pass.",
				Buckets:   prometheus.DefBuckets,
			}),
			batchOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "station",
				Subsystem: "scheduler",
				Name:      "batch_outcome_total",
				Help:      "Count of scheduler batch passes segmented by whether the queue fully drained.",
			}, []string{"outcome"}),
			queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "station",
				Subsystem: "scheduler",
				Name:      "queue_depth",
				Help:      "Number of requests pending scheduler attention at the end of the last batch.",
			}),
		}
		prometheus.MustRegister(
			schedulerRegistry.batchDuration,
			schedulerRegistry.batchOutcome,
			schedulerRegistry.queueDepth,
		)
	})
	return schedulerRegistry
}

// RecordBatch records a completed batch pass's duration and drain outcome.
func (m *schedulerMetrics) RecordBatch(duration time.Duration, drained bool) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(duration.Seconds())
	outcome := "undrained"
	if drained {
		outcome = "drained"
	}
	m.batchOutcome.WithLabelValues(outcome).Inc()
}

// SetQueueDepth updates the pending-requests gauge.
func (m *schedulerMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// Authz returns the lazily-initialised registry tracking the
// Permission/Access-Control Engine.
func Authz() *authzMetrics {
	authzMetricsOnce.Do(func() {
		authzRegistry = &authzMetrics{
			decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "station",
				Subsystem: "authz",
				Name:      "decisions_total",
				Help:      "Count of authorize() decisions segmented by resource kind and outcome.",
			}, []string{"resource", "outcome"}),
			throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "station",
				Subsystem: "authz",
				Name:      "rate_limited_total",
				Help:      "Count of calls rejected by the sliding-window rate limiter, segmented by principal class.",
			}, []string{"class"}),
		}
		prometheus.MustRegister(authzRegistry.decisions, authzRegistry.throttled)
	})
	return authzRegistry
}

// RecordDecision increments the authorize() decision counter.
func (m *authzMetrics) RecordDecision(resource string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.decisions.WithLabelValues(labelOrUnknown(resource), outcome).Inc()
}

// RecordThrottle increments the rate-limit rejection counter.
func (m *authzMetrics) RecordThrottle(class string) {
	if m == nil {
		return
	}
	m.throttled.WithLabelValues(labelOrUnknown(class)).Inc()
}

// Upgrader returns the lazily-initialised registry tracking the Upgrader
// Protocol's install cycles.
func Upgrader() *upgraderMetrics {
	upgraderMetricsOnce.Do(func() {
		upgraderRegistry = &upgraderMetrics{
			installs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "station",
				Subsystem: "upgrader",
				Name:      "installs_total",
				Help:      "Count of stop/install/start upgrade cycles segmented by target and outcome.",
			}, []string{"target", "outcome"}),
		}
		prometheus.MustRegister(upgraderRegistry.installs)
	})
	return upgraderRegistry
}

// RecordInstall records the outcome of a single trigger-upgrade cycle.
func (m *upgraderMetrics) RecordInstall(target string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.installs.WithLabelValues(labelOrUnknown(target), outcome).Inc()
}

// HTTP returns the lazily-initialised registry tracking api/httpapi's
// request surface.
func HTTP() *httpMetrics {
	httpMetricsOnce.Do(func() {
		httpRegistry = &httpMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "station",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests handled by api/httpapi, segmented by route and status.",
			}, []string{"route", "method", "status"}),
			durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "station",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests handled by api/httpapi.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
		}
		prometheus.MustRegister(httpRegistry.requests, httpRegistry.durations)
	})
	return httpRegistry
}

// Observe records one handled HTTP request.
func (m *httpMetrics) Observe(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	route = labelOrUnknown(route)
	method = labelOrUnknown(method)
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(route, method).Observe(duration.Seconds())
}

func labelOrUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
