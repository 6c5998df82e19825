package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Flow metrics
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "laundrotech_active_analysis_sessions",
		Help: "Number of live analysis sessions",
	})

	PreviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "laundrotech_previews_total",
		Help: "Preview fetches by outcome",
	}, []string{"status"})

	PurchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "laundrotech_purchases_total",
		Help: "Purchase attempts by tier and outcome",
	}, []string{"tier", "status"})

	RevenueCentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "laundrotech_revenue_cents_total",
		Help: "Total cents charged through completed purchases",
	})

	// Infrastructure metrics
	BackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "laundrotech_backend_latency_seconds",
		Help:    "Tiered analysis backend call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	DatabaseLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "laundrotech_database_latency_seconds",
		Help:    "Database query latency",
		Buckets: prometheus.DefBuckets,
	})
)

// ObserveBackend records the elapsed time of one backend call.
// Call with a captured start time, typically via defer.
func ObserveBackend(operation string, start time.Time) {
	BackendLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveDatabase records the elapsed time of one database operation.
func ObserveDatabase(start time.Time) {
	DatabaseLatency.Observe(time.Since(start).Seconds())
}
