package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection for the ETL binaries
type Collector struct {
	// Weather fetch metrics
	FetchAttemptsTotal    *prometheus.CounterVec
	FetchFailuresTotal    *prometheus.CounterVec
	FetchDuration         prometheus.Histogram
	ObservationsCollected prometheus.Counter
	LocationsFailedTotal  prometheus.Counter

	// Fact build metrics
	JoinDuration     prometheus.Histogram
	FactRowsTotal    prometheus.Counter
	JoinRejectsTotal *prometheus.CounterVec

	// Load metrics
	LoadDuration  prometheus.Histogram
	LoadBatchSize prometheus.Histogram

	// Database metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
}

// NewCollector creates a new metrics collector registered on the default
// Prometheus registerer.
func NewCollector(namespace string) *Collector {
	return newCollector(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorForTesting creates a collector backed by a throwaway registry
// so tests do not collide on the default registerer.
func NewCollectorForTesting() *Collector {
	return newCollector("test", prometheus.NewRegistry())
}

func newCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		FetchAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_fetch_attempts_total",
				Help:      "Total number of weather API attempts by outcome",
			},
			[]string{"outcome"},
		),

		FetchFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_fetch_failures_total",
				Help:      "Total number of exhausted weather fetches by failure type",
			},
			[]string{"failure_type"},
		),

		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "weather_fetch_duration_seconds",
				Help:      "Duration of a full per-location fetch including retries",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),

		ObservationsCollected: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_observations_collected_total",
				Help:      "Total number of hourly observations accumulated",
			},
		),

		LocationsFailedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_locations_failed_total",
				Help:      "Locations that yielded zero observations after all retries",
			},
		),

		JoinDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fact_join_duration_seconds",
				Help:      "Duration of the shipment/city/weather join",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),

		FactRowsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fact_rows_total",
				Help:      "Total number of fact rows produced by the join",
			},
		),

		JoinRejectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fact_join_rejects_total",
				Help:      "Join runs rejected before producing output, by reason",
			},
			[]string{"reason"},
		),

		LoadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fact_load_duration_seconds",
				Help:      "Duration of the warehouse bulk insert",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),

		LoadBatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fact_load_batch_size",
				Help:      "Number of fact rows per insert batch",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordFetchAttempt increments the fetch attempt counter
func (c *Collector) RecordFetchAttempt(outcome string) {
	c.FetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordFetchFailure increments the exhausted-fetch counter
func (c *Collector) RecordFetchFailure(failureType string) {
	c.FetchFailuresTotal.WithLabelValues(failureType).Inc()
}

// RecordJoinReject increments the join precondition-reject counter
func (c *Collector) RecordJoinReject(reason string) {
	c.JoinRejectsTotal.WithLabelValues(reason).Inc()
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
