package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "camt053_"

	resultSuccess  = "success"
	resultRejected = "rejected"
	resultError    = "error"
)

var (
	registerOnce sync.Once

	statementGenerateTotal   *prometheus.CounterVec
	statementGenerateLatency *prometheus.HistogramVec
	statementExportTotal     *prometheus.CounterVec
	statementExportLatency   *prometheus.HistogramVec

	diagnosticsTotal       *prometheus.CounterVec
	reconciliationMismatch prometheus.Counter
	statementEntries       prometheus.Histogram
)

// Init registers statement metrics with the default registerer.
func Init() {
	InitWith(prometheus.DefaultRegisterer)
}

// InitWith registers statement metrics with reg. Only the first call registers.
func InitWith(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		statementGenerateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_generate_total",
				Help: "Total statement generate operations by result",
			},
			[]string{"result"},
		)
		statementGenerateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_generate_latency_seconds",
				Help:    "Statement generate latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		statementExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_export_total",
				Help: "Total statement export operations by format and result",
			},
			[]string{"format", "result"},
		)
		statementExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		diagnosticsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "diagnostics_total",
				Help: "Diagnostics raised during generation by code",
			},
			[]string{"code"},
		)
		reconciliationMismatch = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconciliation_mismatch_total",
				Help: "Statements whose balances do not reconcile within tolerance",
			},
		)
		statementEntries = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_entries",
				Help:    "Number of entries per generated statement",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		)

		reg.MustRegister(
			statementGenerateTotal,
			statementGenerateLatency,
			statementExportTotal,
			statementExportLatency,
			diagnosticsTotal,
			reconciliationMismatch,
			statementEntries,
		)
	})
}

// ObserveStatementGenerate records generate latency and result.
func ObserveStatementGenerate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if statementGenerateTotal != nil {
		statementGenerateTotal.WithLabelValues(result).Inc()
	}
	if statementGenerateLatency != nil {
		statementGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveStatementExport records export latency and result.
func ObserveStatementExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if statementExportTotal != nil {
		statementExportTotal.WithLabelValues(format, result).Inc()
	}
	if statementExportLatency != nil {
		statementExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncDiagnostic counts a diagnostic by code.
func IncDiagnostic(code string) {
	if code == "" {
		code = "unknown"
	}
	if diagnosticsTotal != nil {
		diagnosticsTotal.WithLabelValues(code).Inc()
	}
}

// IncReconciliationMismatch counts an unbalanced statement.
func IncReconciliationMismatch() {
	if reconciliationMismatch != nil {
		reconciliationMismatch.Inc()
	}
}

// ObserveEntries records the entry count of a produced statement.
func ObserveEntries(n int) {
	if statementEntries != nil {
		statementEntries.Observe(float64(n))
	}
}

// Exported constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultRejected = resultRejected
	ResultError    = resultError
)
