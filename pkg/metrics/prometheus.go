// Package metrics provides Prometheus metrics for the podium scoring service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	registry  *prometheus.Registry

	// Score lifecycle
	scoresSubmitted     *prometheus.CounterVec
	scoresApproved      prometheus.Counter
	scoresRejected      prometheus.Counter
	resolutionConflicts prometheus.Counter
	validationFailures  prometheus.Counter
	scoresTotal         prometheus.Gauge

	// Ranking
	rankingQueries      *prometheus.CounterVec
	rankingQueryLatency prometheus.Histogram

	// Fanout
	eventsPublished  *prometheus.CounterVec
	eventsDropped    *prometheus.CounterVec
	eventsDiscarded  prometheus.Counter
	subscriberCount  prometheus.Gauge

	// Timers
	timersStarted prometheus.Counter
	timersExpired prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global manager on a custom registry so the default Go collectors
// do not pollute the scrape output.
var (
	registry      = prometheus.NewRegistry()
	globalManager = NewManager(WithRegistry(registry))
)

// NewManager builds a Manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "podium",
		subsystem: "core",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.register()
	return m
}

func (m *Manager) register() {
	auto := promauto.With(m.registry)

	m.scoresSubmitted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "scores_submitted_total",
		Help: "Scores accepted into the store, by context.",
	}, []string{"context"})

	m.scoresApproved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "scores_approved_total",
		Help: "Scores resolved as approved.",
	})

	m.scoresRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "scores_rejected_total",
		Help: "Scores resolved as rejected.",
	})

	m.resolutionConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "resolution_conflicts_total",
		Help: "Resolution attempts that lost the race or hit a terminal score.",
	})

	m.validationFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "validation_failures_total",
		Help: "Score submissions rejected before any state change.",
	})

	m.scoresTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "scores_total",
		Help: "Number of score records currently held in the store.",
	})

	m.rankingQueries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ranking_queries_total",
		Help: "Leaderboard computations, by scope.",
	}, []string{"scope"})

	m.rankingQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "ranking_query_duration_ms",
		Help:    "Leaderboard computation latency in milliseconds.",
		Buckets: m.buckets,
	})

	m.eventsPublished = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_published_total",
		Help: "Notifications published to the fanout bus, by type.",
	}, []string{"type"})

	m.eventsDropped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_dropped_total",
		Help: "Notifications dropped for a slow subscriber, by type.",
	}, []string{"type"})

	m.eventsDiscarded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_discarded_total",
		Help: "Malformed or unknown-type notifications discarded at publish.",
	})

	m.subscriberCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "subscribers",
		Help: "Currently attached fanout subscriptions.",
	})

	m.timersStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "timers_started_total",
		Help: "Countdown timers started.",
	})

	m.timersExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "timers_expired_total",
		Help: "Countdown timers that reached their end time.",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests, by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds.",
		Buckets: m.buckets,
	}, []string{"endpoint", "method"})
}

// Handler returns the scrape handler for the global registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Package-level record helpers against the global manager.

func RecordScoreSubmitted(context string) {
	globalManager.scoresSubmitted.WithLabelValues(context).Inc()
}

func RecordScoreApproved()      { globalManager.scoresApproved.Inc() }
func RecordScoreRejected()      { globalManager.scoresRejected.Inc() }
func RecordResolutionConflict() { globalManager.resolutionConflicts.Inc() }
func RecordValidationFailure()  { globalManager.validationFailures.Inc() }
func UpdateScoresTotal(n int)   { globalManager.scoresTotal.Set(float64(n)) }

func RecordRankingQuery(scope string) { globalManager.rankingQueries.WithLabelValues(scope).Inc() }
func RecordRankingQueryLatency(ms float64) {
	globalManager.rankingQueryLatency.Observe(ms)
}

func RecordEventPublished(eventType string) {
	globalManager.eventsPublished.WithLabelValues(eventType).Inc()
}

func RecordEventDropped(eventType string) {
	globalManager.eventsDropped.WithLabelValues(eventType).Inc()
}

func RecordEventDiscarded()       { globalManager.eventsDiscarded.Inc() }
func UpdateSubscriberCount(n int) { globalManager.subscriberCount.Set(float64(n)) }

func RecordTimerStarted() { globalManager.timersStarted.Inc() }
func RecordTimerExpired() { globalManager.timersExpired.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}
