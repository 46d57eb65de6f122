// Package metrics exposes Prometheus counters for match scheduling and the points table.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the service's metrics. A nil *Manager is a valid no-op.
type Manager struct {
	registry *prometheus.Registry

	matchesCreated    *prometheus.CounterVec
	matchesDeleted    *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	rejections        *prometheus.CounterVec
	pointsUpdates     *prometheus.CounterVec
	backfills         *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func NewManager(service string) *Manager {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	constLabels := prometheus.Labels{"service": service}

	return &Manager{
		registry: reg,
		matchesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sports", Subsystem: "schedule", Name: "matches_created_total",
			Help: "Matches created, by sport and match type.", ConstLabels: constLabels,
		}, []string{"sport", "match_type"}),
		matchesDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sports", Subsystem: "schedule", Name: "matches_deleted_total",
			Help: "Scheduled matches deleted.", ConstLabels: constLabels,
		}, []string{"sport"}),
		statusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sports", Subsystem: "schedule", Name: "status_transitions_total",
			Help: "Match status transitions.", ConstLabels: constLabels,
		}, []string{"from", "to"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sports", Subsystem: "schedule", Name: "rejections_total",
			Help: "Rejected scheduling requests by error kind.", ConstLabels: constLabels,
		}, []string{"operation", "kind"}),
		pointsUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sports", Subsystem: "points", Name: "updates_total",
			Help: "Incremental points table updates by outcome.", ConstLabels: constLabels,
		}, []string{"outcome"}),
		backfills: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sports", Subsystem: "points", Name: "backfills_total",
			Help: "Points table backfills by outcome.", ConstLabels: constLabels,
		}, []string{"outcome"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sports", Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", ConstLabels: constLabels, Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

func (m *Manager) MatchCreated(sport, matchType string) {
	if m == nil {
		return
	}
	m.matchesCreated.WithLabelValues(sport, matchType).Inc()
}

func (m *Manager) MatchDeleted(sport string) {
	if m == nil {
		return
	}
	m.matchesDeleted.WithLabelValues(sport).Inc()
}

func (m *Manager) StatusTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Manager) Rejected(operation, kind string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(operation, kind).Inc()
}

// PointsUpdate records the outcome of an incremental update: applied, replayed, skipped or failed.
func (m *Manager) PointsUpdate(outcome string) {
	if m == nil {
		return
	}
	m.pointsUpdates.WithLabelValues(outcome).Inc()
}

func (m *Manager) Backfill(outcome string) {
	if m == nil {
		return
	}
	m.backfills.WithLabelValues(outcome).Inc()
}

func (m *Manager) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
