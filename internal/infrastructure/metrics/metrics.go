package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Posting metrics
	TransactionsPosted   prometheus.Counter
	TransactionsReversed prometheus.Counter
	PostDuration         prometheus.Histogram
	PostErrors           *prometheus.CounterVec

	// Account metrics
	AccountsCreated   prometheus.Counter
	AccountOperations *prometheus.CounterVec

	// Balance metrics
	BalanceQueries  prometheus.Counter
	BalanceDuration prometheus.Histogram

	// Snapshot metrics
	SnapshotsCreated prometheus.Counter
	SnapshotFailures prometheus.Counter

	// Outbox metrics
	OutboxPending     prometheus.Gauge
	OutboxFailed      prometheus.Gauge
	OutboxPublishes   *prometheus.CounterVec
	PublishDuration   prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		TransactionsPosted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_transactions_posted_total",
			Help: "Total number of transactions posted",
		}),
		TransactionsReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_transactions_reversed_total",
			Help: "Total number of transactions reversed",
		}),
		PostDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankledger_post_duration_seconds",
			Help:    "Duration of posting operations",
			Buckets: prometheus.DefBuckets,
		}),
		PostErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_post_errors_total",
				Help: "Total number of posting errors by kind",
			},
			[]string{"kind"},
		),

		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		AccountOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_account_operations_total",
				Help: "Total account admin operations by type",
			},
			[]string{"operation"},
		),

		BalanceQueries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_balance_queries_total",
			Help: "Total number of balance queries",
		}),
		BalanceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankledger_balance_duration_seconds",
			Help:    "Duration of balance queries",
			Buckets: prometheus.DefBuckets,
		}),

		SnapshotsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_snapshots_created_total",
			Help: "Total number of balance snapshots created",
		}),
		SnapshotFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bankledger_snapshot_failures_total",
			Help: "Total number of per-account snapshot failures",
		}),

		OutboxPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bankledger_outbox_pending",
			Help: "Outbox records currently pending delivery",
		}),
		OutboxFailed: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bankledger_outbox_failed",
			Help: "Outbox records that exhausted their delivery attempts",
		}),
		OutboxPublishes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bankledger_outbox_publishes_total",
				Help: "Outbox publish attempts by result",
			},
			[]string{"result"},
		),
		PublishDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bankledger_outbox_publish_duration_seconds",
			Help:    "Duration of single bus publish attempts",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
