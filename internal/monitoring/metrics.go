package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Analysis metrics
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_analyses_total",
			Help: "Total number of completed analysis runs",
		},
		[]string{"symbol", "outcome"},
	)

	analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_analysis_duration_seconds",
			Help:    "Distribution of analysis run durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	analysisFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_analysis_failures_total",
			Help: "Total number of failed analysis runs by error kind",
		},
		[]string{"kind"},
	)

	// Scheduler metrics
	monitorsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_monitors_active",
			Help: "Number of monitors currently registered with the scheduler",
		},
	)

	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_total",
			Help: "Total number of alert events emitted",
		},
		[]string{"condition", "severity"},
	)

	alertsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_alerts_suppressed_total",
			Help: "Alert events suppressed by dedup or daily caps",
		},
		[]string{"reason"},
	)

	// Strategy metrics
	strategyConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_strategy_confidence",
			Help: "Latest strategy confidence per monitored symbol",
		},
		[]string{"symbol", "strategy"},
	)
)

func init() {
	prometheus.MustRegister(analysesTotal)
	prometheus.MustRegister(analysisDuration)
	prometheus.MustRegister(analysisFailures)
	prometheus.MustRegister(monitorsActive)
	prometheus.MustRegister(alertsTotal)
	prometheus.MustRegister(alertsSuppressed)
	prometheus.MustRegister(strategyConfidence)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordAnalysis records one completed analysis run.
func RecordAnalysis(symbol string, neutral bool, elapsed time.Duration) {
	outcome := "actionable"
	if neutral {
		outcome = "neutral"
	}
	analysesTotal.WithLabelValues(symbol, outcome).Inc()
	analysisDuration.WithLabelValues(symbol).Observe(elapsed.Seconds())
}

// RecordAnalysisFailure records a failed run by error kind.
func RecordAnalysisFailure(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	analysisFailures.WithLabelValues(kind).Inc()
}

// SetActiveMonitors updates the registered monitor gauge.
func SetActiveMonitors(n int) {
	monitorsActive.Set(float64(n))
}

// RecordAlert records an emitted alert event.
func RecordAlert(condition, severity string) {
	alertsTotal.WithLabelValues(condition, severity).Inc()
}

// RecordSuppressedAlert records a dedup/cap suppression.
func RecordSuppressedAlert(reason string) {
	alertsSuppressed.WithLabelValues(reason).Inc()
}

// UpdateStrategyConfidence updates the latest confidence gauge.
func UpdateStrategyConfidence(symbol, strategy string, confidence float64) {
	strategyConfidence.WithLabelValues(symbol, strategy).Set(confidence)
}
