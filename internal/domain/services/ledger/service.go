package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
	"github.com/rabot-service/rabot_service/pkg/logger"
	"github.com/rabot-service/rabot_service/pkg/metrics"
)

// TxRepository is the persistence surface of the ledger
type TxRepository interface {
	CreateMany(ctx context.Context, txs []*entities.Tx) error
	FindByTxHash(ctx context.Context, txHash string) (*entities.Tx, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.TxStatus) error
	ListByBindingID(ctx context.Context, bindingID uuid.UUID) ([]*entities.Tx, error)
	ListByBatchID(ctx context.Context, batchID uuid.UUID) ([]*entities.Tx, error)
}

// Service owns the append-only transaction ledger. Every on-chain batch the
// engine submits lands here as one ordered run of entries sharing a batch ID
// and the batch's transaction hash.
type Service struct {
	txRepo TxRepository
	logger *logger.Logger
}

// NewService creates a new ledger service
func NewService(txRepo TxRepository, logger *logger.Logger) *Service {
	return &Service{
		txRepo: txRepo,
		logger: logger,
	}
}

// AppendBatchRequest describes one run of ledger entries to append
type AppendBatchRequest struct {
	BindingID uuid.UUID
	BatchID   uuid.UUID
	TxHash    string
	Status    entities.TxStatus
	Steps     []entities.BatchStep
}

// AppendBatch appends one entry per step, in step order, all sharing the
// batch ID and tx hash. The append is all-or-nothing.
func (s *Service) AppendBatch(ctx context.Context, req *AppendBatchRequest) ([]*entities.Tx, error) {
	if len(req.Steps) == 0 {
		return nil, fmt.Errorf("append batch: no steps")
	}

	now := time.Now()
	txs := make([]*entities.Tx, len(req.Steps))
	for i, step := range req.Steps {
		txs[i] = &entities.Tx{
			ID:          uuid.New(),
			BindingID:   req.BindingID,
			BatchID:     req.BatchID,
			TxHash:      req.TxHash,
			StepType:    step.StepType,
			StepIndex:   i,
			FromRole:    step.FromRole,
			ToRole:      step.ToRole,
			FromAddress: step.FromAddress,
			ToAddress:   step.ToAddress,
			Status:      req.Status,
			Amount:      step.Amount,
			Currency:    step.Currency,
			Network:     step.Network,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	if err := s.txRepo.CreateMany(ctx, txs); err != nil {
		return nil, fmt.Errorf("append batch: %w", err)
	}

	for _, tx := range txs {
		metrics.LedgerEntriesTotal.WithLabelValues(tx.StepType).Inc()
	}

	s.logger.Info("Ledger batch appended",
		"batch_id", req.BatchID,
		"binding_id", req.BindingID,
		"tx_hash", req.TxHash,
		"entries", len(txs),
		"status", req.Status)

	return txs, nil
}

// FindByTxHash returns the earliest ledger entry recorded under a
// transaction hash, or (nil, nil) when the hash has never been seen
func (s *Service) FindByTxHash(ctx context.Context, txHash string) (*entities.Tx, error) {
	tx, err := s.txRepo.FindByTxHash(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("find by tx hash: %w", err)
	}
	return tx, nil
}

// Complete moves an entry to COMPLETED. Completing an already-completed
// entry is a no-op.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	if err := s.txRepo.UpdateStatus(ctx, id, entities.TxStatusCompleted); err != nil {
		return fmt.Errorf("complete ledger entry: %w", err)
	}
	return nil
}

// ListByBinding returns a binding's full ledger history, oldest first
func (s *Service) ListByBinding(ctx context.Context, bindingID uuid.UUID) ([]*entities.Tx, error) {
	txs, err := s.txRepo.ListByBindingID(ctx, bindingID)
	if err != nil {
		return nil, fmt.Errorf("list by binding: %w", err)
	}
	return txs, nil
}

// ListByBatch returns all entries of one batch in step order
func (s *Service) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*entities.Tx, error) {
	txs, err := s.txRepo.ListByBatchID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list by batch: %w", err)
	}
	return txs, nil
}
