package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
	domainerrors "github.com/rabot-service/rabot_service/internal/domain/errors"
	"github.com/rabot-service/rabot_service/internal/domain/services/ledger"
	"github.com/rabot-service/rabot_service/internal/infrastructure/cache"
	"github.com/rabot-service/rabot_service/internal/infrastructure/chain"
	"github.com/rabot-service/rabot_service/pkg/logger"
	"github.com/rabot-service/rabot_service/pkg/metrics"
)

const dedupKeyTTL = 24 * time.Hour

// BindingRepository is the binding lookup surface the reconciler needs
type BindingRepository interface {
	IsUserWalletAddress(ctx context.Context, address string) (bool, error)
	IsSmartWalletAddress(ctx context.Context, address string) (bool, error)
	FindByWalletPair(ctx context.Context, userWalletAddress, smartWalletAddress string) (*entities.BotBinding, error)
}

// LedgerService resolves and records transfer ledger entries
type LedgerService interface {
	FindByTxHash(ctx context.Context, txHash string) (*entities.Tx, error)
	Complete(ctx context.Context, id uuid.UUID) error
	AppendBatch(ctx context.Context, req *ledger.AppendBatchRequest) ([]*entities.Tx, error)
}

// Depositor triggers the deposit flow for a binding
type Depositor interface {
	Deposit(ctx context.Context, bindingID, batchID uuid.UUID, amount decimal.Decimal, currency, network *string) error
}

// Service reconciles inbound transfer notifications into ledger state and
// triggers the deposit flow at most once per detected transfer. Redelivery
// of an already-processed tx hash is a discard, never an error.
type Service struct {
	bindingRepo BindingRepository
	ledgerSvc   LedgerService
	depositor   Depositor
	cache       cache.RedisClient
	logger      *logger.Logger
}

// NewService creates a new webhook reconciler. cache may be nil; the redis
// fast path is an optimization in front of the ledger dedup, never a
// correctness dependency.
func NewService(
	bindingRepo BindingRepository,
	ledgerSvc LedgerService,
	depositor Depositor,
	cache cache.RedisClient,
	logger *logger.Logger,
) *Service {
	return &Service{
		bindingRepo: bindingRepo,
		ledgerSvc:   ledgerSvc,
		depositor:   depositor,
		cache:       cache,
		logger:      logger,
	}
}

// HandleTransfer runs the reconciliation state machine for one notification.
// Notifications that do not belong to a known (user wallet, bot smart
// wallet) pair are silently discarded.
func (s *Service) HandleTransfer(ctx context.Context, n *entities.TransferNotification) error {
	fromAddress := chain.ChecksumAddress(n.FromAddress)
	toAddress := chain.ChecksumAddress(n.ToAddress)

	if s.seenRecently(ctx, n.TxHash) {
		metrics.WebhookNotificationsTotal.WithLabelValues("duplicate").Inc()
		s.logger.Debug("Transfer already processed (cache)", "tx_hash", n.TxHash)
		return nil
	}

	known, err := s.isKnownPair(ctx, fromAddress, toAddress)
	if err != nil {
		return err
	}
	if !known {
		metrics.WebhookNotificationsTotal.WithLabelValues("unbound").Inc()
		s.logger.Debug("Transfer does not belong to a bot binding",
			"from", fromAddress, "to", toAddress, "tx_hash", n.TxHash)
		return nil
	}

	binding, err := s.bindingRepo.FindByWalletPair(ctx, fromAddress, toAddress)
	if err != nil {
		if errors.Is(err, domainerrors.ErrBindingNotFound) {
			metrics.WebhookNotificationsTotal.WithLabelValues("unbound").Inc()
			return nil
		}
		return err
	}

	batchID, triggered, err := s.resolveBatch(ctx, binding, fromAddress, toAddress, n)
	if err != nil {
		return err
	}
	if !triggered {
		metrics.WebhookNotificationsTotal.WithLabelValues("duplicate").Inc()
		s.markSeen(ctx, n.TxHash)
		return nil
	}

	network := n.Network
	if err := s.depositor.Deposit(ctx, binding.ID, batchID, n.Amount, &n.Asset, &network); err != nil {
		return fmt.Errorf("trigger deposit for binding %s: %w", binding.ID, err)
	}

	s.markSeen(ctx, n.TxHash)
	metrics.WebhookNotificationsTotal.WithLabelValues("processed").Inc()
	s.logger.Info("Transfer reconciled",
		"binding_id", binding.ID, "batch_id", batchID, "tx_hash", n.TxHash, "amount", n.Amount.String())

	return nil
}

// isKnownPair checks both sides of the transfer against known bindings; the
// two lookups are independent and run concurrently
func (s *Service) isKnownPair(ctx context.Context, fromAddress, toAddress string) (bool, error) {
	var isUserWallet, isSmartWallet bool
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		isUserWallet, err = s.bindingRepo.IsUserWalletAddress(gctx, fromAddress)
		return err
	})
	g.Go(func() error {
		var err error
		isSmartWallet, err = s.bindingRepo.IsSmartWalletAddress(gctx, toAddress)
		return err
	})

	if err := g.Wait(); err != nil {
		return false, fmt.Errorf("validate transfer pair: %w", err)
	}
	return isUserWallet && isSmartWallet, nil
}

// resolveBatch dedupes the notification by tx hash against the ledger.
// Three cases: a COMPLETED entry means a duplicate delivery (no trigger); a
// QUEUED entry is completed and its batch reused; an unseen hash gets a new
// batch with a COMPLETED transfer row.
func (s *Service) resolveBatch(ctx context.Context, binding *entities.BotBinding, fromAddress, toAddress string, n *entities.TransferNotification) (uuid.UUID, bool, error) {
	existing, err := s.ledgerSvc.FindByTxHash(ctx, n.TxHash)
	if err != nil {
		return uuid.Nil, false, err
	}

	if existing != nil {
		if existing.Status == entities.TxStatusCompleted {
			return uuid.Nil, false, nil
		}
		if err := s.ledgerSvc.Complete(ctx, existing.ID); err != nil {
			return uuid.Nil, false, err
		}
		return existing.BatchID, true, nil
	}

	batchID := uuid.New()
	network := n.Network
	_, err = s.ledgerSvc.AppendBatch(ctx, &ledger.AppendBatchRequest{
		BindingID: binding.ID,
		BatchID:   batchID,
		TxHash:    n.TxHash,
		Status:    entities.TxStatusCompleted,
		Steps: []entities.BatchStep{{
			StepType:    entities.StepTransfer,
			FromRole:    entities.TxOwnerUser,
			ToRole:      entities.TxOwnerBot,
			FromAddress: fromAddress,
			ToAddress:   toAddress,
			Amount:      n.Amount,
			Currency:    &n.Asset,
			Network:     &network,
		}},
	})
	if err != nil {
		return uuid.Nil, false, err
	}

	return batchID, true, nil
}

func (s *Service) seenRecently(ctx context.Context, txHash string) bool {
	if s.cache == nil {
		return false
	}
	exists, err := s.cache.Exists(ctx, dedupKey(txHash))
	if err != nil {
		s.logger.Warn("Webhook dedup cache read failed", "error", err)
		return false
	}
	return exists
}

func (s *Service) markSeen(ctx context.Context, txHash string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.SetNX(ctx, dedupKey(txHash), "1", dedupKeyTTL); err != nil {
		s.logger.Warn("Webhook dedup cache write failed", "error", err)
	}
}

func dedupKey(txHash string) string {
	return "webhook:transfer:" + txHash
}
