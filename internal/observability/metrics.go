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
	// Penalty metrics
	PenaltiesTotal    *prometheus.CounterVec
	RejectionsTotal   *prometheus.CounterVec
	RollbacksTotal    *prometheus.CounterVec
	AmountPenalized   *prometheus.CounterVec
	InFlightPenalties prometheus.Gauge

	// Latency metrics
	PenaltyLatency  *prometheus.HistogramVec
	TransferLatency prometheus.Histogram
	RPCCallLatency  *prometheus.HistogramVec

	// API metrics
	HTTPRequestsTotal *prometheus.CounterVec
	StreamClients     prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	SchemaVersion   *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulPenalty prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "stakepool_custody"
	}

	return &Metrics{
		// Penalty metrics
		PenaltiesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "penalty",
			Name:      "requests_total",
			Help:      "Total number of penalty requests by action and outcome",
		}, []string{"action", "outcome"}),
		RejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "penalty",
			Name:      "rejections_total",
			Help:      "Total number of rejected requests by error kind",
		}, []string{"kind"}),
		RollbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "penalty",
			Name:      "rollbacks_total",
			Help:      "Total number of reward pool rollbacks by result",
		}, []string{"result"}),
		AmountPenalized: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "penalty",
			Name:      "amount_total",
			Help:      "Total token amount debited from forfeitable balances by action",
		}, []string{"action"}),
		InFlightPenalties: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "penalty",
			Name:      "in_flight",
			Help:      "Number of penalty requests currently being processed",
		}),

		// Latency metrics
		PenaltyLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "penalty",
			Name:      "latency_seconds",
			Help:      "End-to-end penalty request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		TransferLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transfer_latency_seconds",
			Help:      "Token transfer latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// API metrics
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "stream_clients",
			Help:      "Number of connected receipt stream clients",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		SchemaVersion: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "schema_version",
			Help:      "Latest applied migration version",
		}, []string{"database"}),

		// Health metrics
		LastSuccessfulPenalty: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_penalty_timestamp",
			Help:      "Unix timestamp of last accepted penalty request",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPenalty records a handled penalty request.
func RecordPenalty(action, outcome string, amount uint64, seconds float64) {
	DefaultMetrics.PenaltiesTotal.WithLabelValues(action, outcome).Inc()
	DefaultMetrics.PenaltyLatency.WithLabelValues(action).Observe(seconds)
	if outcome == "ACCEPTED" && amount > 0 {
		DefaultMetrics.AmountPenalized.WithLabelValues(action).Add(float64(amount))
	}
}

// RecordRejection increments the rejection counter for kind.
func RecordRejection(kind string) {
	DefaultMetrics.RejectionsTotal.WithLabelValues(kind).Inc()
}

// RecordRollback records a reward pool rollback attempt.
func RecordRollback(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	DefaultMetrics.RollbacksTotal.WithLabelValues(result).Inc()
}

// RecordTransferLatency records ledger transfer latency.
func RecordTransferLatency(seconds float64) {
	DefaultMetrics.TransferLatency.Observe(seconds)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route string, code int) {
	DefaultMetrics.HTTPRequestsTotal.WithLabelValues(route, httpCode(code)).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordSchemaVersion sets the latest applied migration version of database.
func RecordSchemaVersion(database string, version int) {
	DefaultMetrics.SchemaVersion.WithLabelValues(database).Set(float64(version))
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
