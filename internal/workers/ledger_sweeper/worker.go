package ledger_sweeper

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/rabot-service/rabot_service/internal/domain/entities"
	"github.com/rabot-service/rabot_service/internal/infrastructure/chain"
	"github.com/rabot-service/rabot_service/pkg/logger"
	"github.com/rabot-service/rabot_service/pkg/metrics"
)

// TxRepository provides the unsettled-transfer scan for the sweeper.
type TxRepository interface {
	ListUnsettledTransfers(ctx context.Context, cutoff time.Time) ([]*entities.Tx, error)
}

// Ledger completes transfer entries and exposes batch membership so the
// sweeper can tell whether a transfer's deposit steps were ever recorded.
type Ledger interface {
	Complete(ctx context.Context, id uuid.UUID) error
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*entities.Tx, error)
}

// Depositor runs the deposit flow for a binding under an existing batch ID.
type Depositor interface {
	Deposit(ctx context.Context, bindingID, batchID uuid.UUID, amount decimal.Decimal, currency, network *string) error
}

// Worker periodically scans TRANSFER ledger entries that never settled: rows
// stuck in QUEUED, and rows whose batch has no deposit steps because the
// trigger died between recording the transfer and running the deposit. Rows
// whose transaction confirmed on-chain are completed and their deposit is
// re-driven under the original batch ID.
type Worker struct {
	txRepo    TxRepository
	ledger    Ledger
	depositor Depositor
	providers *chain.Providers
	schedule  string
	minAge    time.Duration
	cron      *cron.Cron
	logger    *logger.Logger
}

// Config holds sweeper configuration.
type Config struct {
	Schedule string
	MinAge   time.Duration
}

// DefaultConfig returns default sweeper configuration.
func DefaultConfig() *Config {
	return &Config{
		Schedule: "*/5 * * * *",
		MinAge:   10 * time.Minute,
	}
}

// NewWorker creates a new ledger sweeper worker.
func NewWorker(
	txRepo TxRepository,
	ledger Ledger,
	depositor Depositor,
	providers *chain.Providers,
	config *Config,
	logger *logger.Logger,
) *Worker {
	if config == nil {
		config = DefaultConfig()
	}
	return &Worker{
		txRepo:    txRepo,
		ledger:    ledger,
		depositor: depositor,
		providers: providers,
		schedule:  config.Schedule,
		minAge:    config.MinAge,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start schedules the sweep.
func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		w.sweep(ctx)
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("Ledger sweeper started",
		"schedule", w.schedule,
		"min_age", w.minAge.String())
	return nil
}

// Stop stops the worker.
func (w *Worker) Stop() {
	w.cron.Stop()
	w.logger.Info("Ledger sweeper stopped")
}

// RunOnce runs a single sweep (for testing or manual trigger).
func (w *Worker) RunOnce(ctx context.Context) {
	w.sweep(ctx)
}

func (w *Worker) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.minAge)

	rows, err := w.txRepo.ListUnsettledTransfers(ctx, cutoff)
	if err != nil {
		w.logger.Error("Failed to list unsettled transfers", "error", err)
		return
	}
	if len(rows) == 0 {
		w.logger.Debug("No unsettled transfers found")
		return
	}

	w.logger.Info("Found unsettled transfers", "count", len(rows))

	recovered := 0
	for _, row := range rows {
		ok, err := w.reconcile(ctx, row)
		if err != nil {
			metrics.SweeperRecoveredTotal.WithLabelValues("error").Inc()
			w.logger.Error("Failed to reconcile unsettled transfer",
				"tx_id", row.ID,
				"tx_hash", row.TxHash,
				"error", err)
			continue
		}
		if ok {
			recovered++
		}
	}

	w.logger.Info("Ledger sweep completed",
		"scanned", len(rows),
		"recovered", recovered)
}

// reconcile settles a single transfer: verify the transaction confirmed on
// its network, complete the row if still QUEUED, and re-run the deposit flow
// unless the batch already carries deposit steps.
func (w *Worker) reconcile(ctx context.Context, row *entities.Tx) (bool, error) {
	if row.Network == nil {
		metrics.SweeperRecoveredTotal.WithLabelValues("skipped").Inc()
		w.logger.Warn("Unsettled transfer has no network, skipping", "tx_id", row.ID)
		return false, nil
	}

	client, err := w.providers.ForNetwork(entities.Network(*row.Network))
	if err != nil {
		return false, err
	}

	confirmed, err := chain.TransactionConfirmed(ctx, client, common.HexToHash(row.TxHash))
	if err != nil {
		return false, err
	}
	if !confirmed {
		metrics.SweeperRecoveredTotal.WithLabelValues("unconfirmed").Inc()
		w.logger.Debug("Unsettled transfer not yet confirmed",
			"tx_hash", row.TxHash,
			"network", *row.Network)
		return false, nil
	}

	if row.Status == entities.TxStatusQueued {
		if err := w.ledger.Complete(ctx, row.ID); err != nil {
			return false, err
		}
	}

	batchRows, err := w.ledger.ListByBatch(ctx, row.BatchID)
	if err != nil {
		return false, err
	}
	if len(batchRows) > 1 {
		// Deposit steps already landed under this batch, nothing to re-drive
		metrics.SweeperRecoveredTotal.WithLabelValues("settled").Inc()
		return false, nil
	}

	if err := w.depositor.Deposit(ctx, row.BindingID, row.BatchID, row.Amount, row.Currency, row.Network); err != nil {
		return false, err
	}

	metrics.SweeperRecoveredTotal.WithLabelValues("recovered").Inc()
	w.logger.Info("Recovered unsettled transfer",
		"tx_hash", row.TxHash,
		"binding_id", row.BindingID,
		"batch_id", row.BatchID,
		"network", *row.Network)
	return true, nil
}
