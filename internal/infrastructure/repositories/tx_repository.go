package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
)

// TxRepository persists ledger entries. The ledger is append-only: rows are
// inserted once and only their status ever changes, QUEUED to COMPLETED.
type TxRepository struct {
	db *sqlx.DB
}

// NewTxRepository creates a new tx repository
func NewTxRepository(db *sqlx.DB) *TxRepository {
	return &TxRepository{db: db}
}

const txColumns = `id, binding_id, batch_id, tx_hash, step_type, step_index, from_role, to_role,
	from_address, to_address, status, amount, gas, currency, network,
	created_at, updated_at`

// CreateMany inserts a batch of ledger entries in order within one database
// transaction. Either all rows land or none do.
func (r *TxRepository) CreateMany(ctx context.Context, txs []*entities.Tx) error {
	if len(txs) == 0 {
		return nil
	}

	dbTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `
		INSERT INTO txs (
			id, binding_id, batch_id, tx_hash, step_type, step_index, from_role, to_role,
			from_address, to_address, status, amount, gas, currency, network,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
	`

	for _, tx := range txs {
		_, err := dbTx.ExecContext(ctx, query,
			tx.ID,
			tx.BindingID,
			tx.BatchID,
			tx.TxHash,
			tx.StepType,
			tx.StepIndex,
			tx.FromRole,
			tx.ToRole,
			tx.FromAddress,
			tx.ToAddress,
			tx.Status,
			tx.Amount,
			tx.Gas,
			tx.Currency,
			tx.Network,
			tx.CreatedAt,
			tx.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert ledger entry %s: %w", tx.StepType, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger entries: %w", err)
	}

	return nil
}

// FindByTxHash looks up a ledger entry by on-chain transaction hash. Returns
// (nil, nil) when no entry exists so callers can distinguish "never seen"
// from a lookup failure.
func (r *TxRepository) FindByTxHash(ctx context.Context, txHash string) (*entities.Tx, error) {
	query := `SELECT ` + txColumns + ` FROM txs WHERE tx_hash = $1 ORDER BY created_at ASC, step_index ASC LIMIT 1`

	var tx entities.Tx
	err := r.db.GetContext(ctx, &tx, query, txHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ledger entry by tx hash: %w", err)
	}

	return &tx, nil
}

// UpdateStatus moves a ledger entry to the given status. The transition is
// forward-only and idempotent: a row already at the target status is left
// untouched and no error is returned.
func (r *TxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.TxStatus) error {
	query := `
		UPDATE txs
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status != $2
	`

	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("failed to update ledger entry status: %w", err)
	}

	return nil
}

// ListByBindingID retrieves all ledger entries for a binding, oldest first
func (r *TxRepository) ListByBindingID(ctx context.Context, bindingID uuid.UUID) ([]*entities.Tx, error) {
	query := `SELECT ` + txColumns + ` FROM txs WHERE binding_id = $1 ORDER BY created_at ASC`

	var txs []*entities.Tx
	if err := r.db.SelectContext(ctx, &txs, query, bindingID); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return txs, nil
}

// ListByBatchID retrieves all ledger entries sharing a batch, in canonical
// step order
func (r *TxRepository) ListByBatchID(ctx context.Context, batchID uuid.UUID) ([]*entities.Tx, error) {
	query := `SELECT ` + txColumns + ` FROM txs WHERE batch_id = $1 ORDER BY step_index ASC`

	var txs []*entities.Tx
	if err := r.db.SelectContext(ctx, &txs, query, batchID); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries by batch: %w", err)
	}

	return txs, nil
}

// ListUnsettledTransfers returns transfer entries created before the cutoff
// that still need work: rows stuck in QUEUED, and rows whose batch never got
// its deposit-step siblings because the deposit trigger died mid-flight.
func (r *TxRepository) ListUnsettledTransfers(ctx context.Context, cutoff time.Time) ([]*entities.Tx, error) {
	query := `
		SELECT ` + txColumns + `
		FROM txs t
		WHERE t.step_type = $1
		  AND t.created_at < $2
		  AND (t.status = $3
		    OR NOT EXISTS (
		      SELECT 1 FROM txs s WHERE s.batch_id = t.batch_id AND s.id != t.id
		    ))
		ORDER BY t.created_at ASC
	`

	var txs []*entities.Tx
	if err := r.db.SelectContext(ctx, &txs, query, entities.StepTransfer, cutoff, entities.TxStatusQueued); err != nil {
		return nil, fmt.Errorf("failed to list unsettled transfers: %w", err)
	}

	return txs, nil
}
