// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"multichain-token-lab/internal/storage"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Reconciliation metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	MultichainTokens  prometheus.Gauge
	DiscardedTokens   prometheus.Gauge
	UnresolvedIDs     prometheus.Counter
	OverrideWarnings  *prometheus.CounterVec
	ClusterMerges     prometheus.Counter
	TokensReconciled  prometheus.Gauge
	LastSuccessfulRun prometheus.Gauge

	// Indexer metrics
	IndexerRequestLatency *prometheus.HistogramVec
	IndexerErrors         *prometheus.CounterVec
	TokensFetched         *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "multichain_token_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Total number of reconciliation runs by status",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "run_duration_seconds",
			Help:      "End-to-end reconciliation run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		MultichainTokens: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "multichain_tokens",
			Help:      "Number of multichain tokens produced by the last run",
		}),
		DiscardedTokens: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "discarded_tokens",
			Help:      "Number of discarded tokens produced by the last run",
		}),
		UnresolvedIDs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "unresolved_ids_total",
			Help:      "Total number of referenced token ids without a record",
		}),
		OverrideWarnings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "overrides",
			Name:      "warnings_total",
			Help:      "Total number of override table warnings by kind",
		}, []string{"kind"}),
		ClusterMerges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "cluster_merges_total",
			Help:      "Total number of cluster merges forced by overrides",
		}),
		TokensReconciled: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "tokens",
			Help:      "Number of token records fed into the last run",
		}),
		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful reconciliation run",
		}),

		IndexerRequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "request_latency_seconds",
			Help:      "Indexer GraphQL request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain_id"}),
		IndexerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "errors_total",
			Help:      "Total number of failed indexer requests",
		}, []string{"chain_id"}),
		TokensFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "tokens_fetched_total",
			Help:      "Total number of token records fetched by chain",
		}, []string{"chain_id"}),

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
	}
}

// HandlerFor returns an HTTP handler serving the metrics of g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RunStats is the summary of one reconciliation run.
type RunStats struct {
	Tokens        int
	Multichain    int
	Discarded     int
	UnresolvedIDs int
	Merges        int
}

// RecordRun records a reconciliation run. Safe on a nil receiver.
func (m *Metrics) RecordRun(status string, durationSeconds float64, stats RunStats, finishedUnix int64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(durationSeconds)
	if status != "success" {
		return
	}
	m.TokensReconciled.Set(float64(stats.Tokens))
	m.MultichainTokens.Set(float64(stats.Multichain))
	m.DiscardedTokens.Set(float64(stats.Discarded))
	m.UnresolvedIDs.Add(float64(stats.UnresolvedIDs))
	m.ClusterMerges.Add(float64(stats.Merges))
	m.LastSuccessfulRun.Set(float64(finishedUnix))
}

// RecordOverrideWarning counts one override table warning.
func (m *Metrics) RecordOverrideWarning(kind string) {
	if m == nil {
		return
	}
	m.OverrideWarnings.WithLabelValues(kind).Inc()
}

// RecordIndexerRequest records indexer request latency and outcome.
func (m *Metrics) RecordIndexerRequest(chainID string, seconds float64, tokens int, err error) {
	if m == nil {
		return
	}
	m.IndexerRequestLatency.WithLabelValues(chainID).Observe(seconds)
	if err != nil {
		m.IndexerErrors.WithLabelValues(chainID).Inc()
		return
	}
	m.TokensFetched.WithLabelValues(chainID).Add(float64(tokens))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// DBObserver adapts RecordDBQuery to a store observer for database.
// ErrNotFound is an answer, not a failure, and is not counted as an error.
func (m *Metrics) DBObserver(database string) storage.QueryObserver {
	return storage.QueryObserverFunc(func(operation string, elapsed time.Duration, err error) {
		if errors.Is(err, storage.ErrNotFound) {
			err = nil
		}
		m.RecordDBQuery(database, operation, elapsed.Seconds(), err)
	})
}
