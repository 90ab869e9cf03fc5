// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	ObservationsReceived  prometheus.Counter
	ObservationsStored    prometheus.Counter
	ObservationsDuplicate prometheus.Counter
	ObservationsRejected  prometheus.Counter

	// Analysis metrics
	WellsAnalyzed      *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	ModelFits          *prometheus.CounterVec
	ModelFitDuration   *prometheus.HistogramVec
	TrendDirections    *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal  *prometheus.CounterVec
	PipelineDuration   *prometheus.HistogramVec
	SummariesComputed  prometheus.Counter
	CriticalGroups     *prometheus.GaugeVec
	ReportsGenerated   prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulPipeline  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "groundwater_lab"
	}

	return &Metrics{
		// Ingestion metrics
		ObservationsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_received_total",
			Help:      "Total number of observations received from sources",
		}),
		ObservationsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_stored_total",
			Help:      "Total number of observations stored to database",
		}),
		ObservationsDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_duplicate_total",
			Help:      "Total number of observations skipped as duplicates",
		}),
		ObservationsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "observations_rejected_total",
			Help:      "Total number of observations rejected as invalid",
		}),

		// Analysis metrics
		WellsAnalyzed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "wells_analyzed_total",
			Help:      "Total number of wells analyzed by outcome",
		}, []string{"outcome"}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "validation_failures_total",
			Help:      "Total number of series validation failures by reason",
		}, []string{"reason"}),
		ModelFits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "model_fits_total",
			Help:      "Total number of model fits by model and status",
		}, []string{"model", "status"}),
		ModelFitDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "model_fit_duration_seconds",
			Help:      "Model fit duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
		TrendDirections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "trend_directions_total",
			Help:      "Total number of trend test outcomes by direction",
		}, []string{"direction"}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by phase and status",
		}, []string{"phase", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline phase duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"phase"}),
		SummariesComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "summaries_computed_total",
			Help:      "Total number of group summaries computed",
		}),
		CriticalGroups: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "critical_groups",
			Help:      "Number of groups currently flagged critical, by level",
		}, []string{"level"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion commit",
		}),
		LastSuccessfulPipeline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordObservation records the outcome of one stored observation.
func RecordObservation(outcome string) {
	DefaultMetrics.ObservationsReceived.Inc()
	switch outcome {
	case "stored":
		DefaultMetrics.ObservationsStored.Inc()
	case "duplicate":
		DefaultMetrics.ObservationsDuplicate.Inc()
	case "rejected":
		DefaultMetrics.ObservationsRejected.Inc()
	}
}

// RecordWellAnalyzed increments the wells analyzed counter.
func RecordWellAnalyzed(outcome string) {
	DefaultMetrics.WellsAnalyzed.WithLabelValues(outcome).Inc()
}

// RecordValidationFailure records a series validation failure.
func RecordValidationFailure(reason string) {
	DefaultMetrics.ValidationFailures.WithLabelValues(reason).Inc()
}

// RecordModelFit records one model fit outcome and duration.
func RecordModelFit(model, status string, seconds float64) {
	DefaultMetrics.ModelFits.WithLabelValues(model, status).Inc()
	DefaultMetrics.ModelFitDuration.WithLabelValues(model).Observe(seconds)
}

// RecordTrendDirection records a trend test outcome.
func RecordTrendDirection(direction string) {
	DefaultMetrics.TrendDirections.WithLabelValues(direction).Inc()
}

// RecordPipelineRun records a pipeline run.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// UpdateCriticalGroups sets the critical group gauge for a level.
func UpdateCriticalGroups(level string, count int) {
	DefaultMetrics.CriticalGroups.WithLabelValues(level).Set(float64(count))
}
