package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseConnectionsGauge tracks database connection pool state
	DatabaseConnectionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rabot_database_connections",
		Help: "Database connection pool state",
	}, []string{"state"})

	// WebhookNotificationsTotal counts inbound transfer notifications by outcome
	WebhookNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rabot_webhook_notifications_total",
		Help: "Inbound transfer notifications by outcome",
	}, []string{"outcome"})

	// DepositBatchesTotal counts submitted deposit batches by bot type
	DepositBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rabot_deposit_batches_total",
		Help: "Submitted deposit batches by bot type",
	}, []string{"bot_type"})

	// WithdrawBatchesTotal counts submitted withdrawal batches by bot type
	WithdrawBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rabot_withdraw_batches_total",
		Help: "Submitted withdrawal batches by bot type",
	}, []string{"bot_type"})

	// LedgerEntriesTotal counts persisted ledger entries by step type
	LedgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rabot_ledger_entries_total",
		Help: "Persisted ledger entries by step type",
	}, []string{"step_type"})

	// SweeperRecoveredTotal counts queued transfers recovered by the ledger sweeper
	SweeperRecoveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rabot_sweeper_recovered_total",
		Help: "Queued transfers recovered by the ledger sweeper",
	}, []string{"outcome"})

	// BatchSubmissionDuration observes account-abstraction batch submission latency
	BatchSubmissionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rabot_batch_submission_duration_seconds",
		Help:    "Account-abstraction batch submission latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"bot_type", "direction"})
)
