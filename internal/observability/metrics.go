// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Calculation status label values.
const (
	StatusOK          = "ok"
	StatusNoMaterials = "no_materials"
	StatusCancelled   = "cancelled"
	StatusError       = "error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Calculation metrics
	CalculationsTotal   *prometheus.CounterVec
	CalculationDuration prometheus.Histogram
	CategoriesAnalyzed  prometheus.Histogram
	MaterialBudget      prometheus.Gauge
	ExpectedValueGain   *prometheus.GaugeVec
	FallbackToCurrent   prometheus.Counter
	ResultsStored       *prometheus.CounterVec
	ReportsExported     *prometheus.CounterVec

	// Server metrics
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	WSSessionsActive prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCalculation prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "gacha_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Calculation metrics
		CalculationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calc",
			Name:      "runs_total",
			Help:      "Total number of calculations by status",
		}, []string{"status"}),
		CalculationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "calc",
			Name:      "duration_seconds",
			Help:      "Calculation duration in seconds, excluding the calculating delay",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		CategoriesAnalyzed: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "calc",
			Name:      "categories_analyzed",
			Help:      "Number of eligible categories per calculation",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}),
		MaterialBudget: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "calc",
			Name:      "material_budget_units",
			Help:      "Material units redistributed by the last calculation",
		}),
		ExpectedValueGain: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "calc",
			Name:      "expected_value_gain",
			Help:      "Expected value gain over the current allocation of the last calculation by strategy",
		}, []string{"strategy"}),
		FallbackToCurrent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calc",
			Name:      "fallback_to_current_total",
			Help:      "Total number of expected plans replaced by the current allocation",
		}),
		ResultsStored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "calc",
			Name:      "results_stored_total",
			Help:      "Total number of archived results by store and status",
		}, []string{"store", "status"}),
		ReportsExported: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "reports_total",
			Help:      "Total number of exported reports by driver, format and status",
		}, []string{"driver", "format", "status"}),

		// Server metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		WSSessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "ws_sessions_active",
			Help:      "Number of open WebSocket sessions",
		}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulCalculation: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_calculation_timestamp",
			Help:      "Unix timestamp of last successful calculation",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordCalculation records a finished calculation.
func (m *Metrics) RecordCalculation(status string, elapsed time.Duration, categories, budget int) {
	m.CalculationsTotal.WithLabelValues(status).Inc()
	if status != StatusOK {
		return
	}
	m.CalculationDuration.Observe(elapsed.Seconds())
	m.CategoriesAnalyzed.Observe(float64(categories))
	m.MaterialBudget.Set(float64(budget))
	m.LastSuccessfulCalculation.SetToCurrentTime()
}

// RecordGain records the EV gain of a strategy's plan over the current allocation.
func (m *Metrics) RecordGain(strategy string, gain float64) {
	m.ExpectedValueGain.WithLabelValues(strategy).Set(gain)
}

// RecordFallback increments the fallback counter.
func (m *Metrics) RecordFallback() {
	m.FallbackToCurrent.Inc()
}

// RecordStore records an archive write.
func (m *Metrics) RecordStore(store string, err error) {
	m.ResultsStored.WithLabelValues(store, statusOf(err)).Inc()
}

// RecordExport records a report export.
func (m *Metrics) RecordExport(driver, format string, err error) {
	m.ReportsExported.WithLabelValues(driver, format, statusOf(err)).Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(route string, code int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, http.StatusText(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, elapsed time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(elapsed.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordDBQuery records database query metrics on DefaultMetrics.
func RecordDBQuery(database, operation string, elapsed time.Duration, err error) {
	DefaultMetrics.RecordDBQuery(database, operation, elapsed, err)
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
