package bots

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/rabot-service/rabot_service/internal/adapters/biconomy"
	"github.com/rabot-service/rabot_service/internal/adapters/turnkey"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
	domainerrors "github.com/rabot-service/rabot_service/internal/domain/errors"
	"github.com/rabot-service/rabot_service/internal/domain/services/ledger"
	"github.com/rabot-service/rabot_service/internal/domain/services/strategy"
	"github.com/rabot-service/rabot_service/internal/infrastructure/chain"
	"github.com/rabot-service/rabot_service/pkg/logger"
	"github.com/rabot-service/rabot_service/pkg/metrics"
)

// BindingRepository is the persistence surface the service needs
type BindingRepository interface {
	Create(ctx context.Context, binding *entities.BotBinding) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.BotBinding, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.BotBinding, error)
	IncrementAmountDeposited(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	DecrementBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
}

// LedgerService appends batch rows to the transaction ledger
type LedgerService interface {
	AppendBatch(ctx context.Context, req *ledger.AppendBatchRequest) ([]*entities.Tx, error)
}

// Orchestrator dispatches to the protocol strategy registered for a bot type
type Orchestrator interface {
	Deposit(ctx context.Context, botType entities.BotType, signer biconomy.Signer, amount decimal.Decimal) (string, error)
	Withdraw(ctx context.Context, botType entities.BotType, signer biconomy.Signer, destination common.Address, amount *big.Int) (string, error)
	StakedBalance(ctx context.Context, botType entities.BotType, signer biconomy.Signer) (*big.Int, error)
	ContractAddress(botType entities.BotType) (common.Address, error)
	Network(botType entities.BotType) (entities.Network, error)
	DepositStepOrder(botType entities.BotType) ([]string, error)
	WithdrawStepOrder(botType entities.BotType) ([]string, error)
}

// SigningService provisions custodial wallets and hands out signers
type SigningService interface {
	CreateWallet(ctx context.Context, name string) (*turnkey.Wallet, error)
	NewSigner(address string) biconomy.Signer
}

// AccountResolver derives the counterfactual smart wallet address for an
// owner on a given network
type AccountResolver interface {
	SmartWalletAddress(ctx context.Context, network entities.Network, owner string) (string, error)
}

// WebhookRegistrar registers addresses on the transfer-activity webhook
type WebhookRegistrar interface {
	WatchAddresses(ctx context.Context, addresses ...string) error
}

// Service owns bot bindings: provisioning, deposit execution with ledger
// accounting, percentage-based withdrawal, and staked-balance queries
type Service struct {
	bindingRepo  BindingRepository
	ledgerSvc    LedgerService
	orchestrator Orchestrator
	signing      SigningService
	accounts     AccountResolver
	webhooks     WebhookRegistrar
	logger       *logger.Logger
}

// NewService creates a new bots service
func NewService(
	bindingRepo BindingRepository,
	ledgerSvc LedgerService,
	orchestrator Orchestrator,
	signing SigningService,
	accounts AccountResolver,
	webhooks WebhookRegistrar,
	logger *logger.Logger,
) *Service {
	return &Service{
		bindingRepo:  bindingRepo,
		ledgerSvc:    ledgerSvc,
		orchestrator: orchestrator,
		signing:      signing,
		accounts:     accounts,
		webhooks:     webhooks,
		logger:       logger,
	}
}

// CreateBindingRequest is the input for provisioning a new bot binding
type CreateBindingRequest struct {
	UserID            uuid.UUID
	BotType           entities.BotType
	UserWalletAddress string
}

// Create provisions a bot binding: a fresh custodial wallet, its derived
// smart wallet, and registration of that smart wallet on the transfer
// webhook so inbound deposits are detected
func (s *Service) Create(ctx context.Context, req *CreateBindingRequest) (*entities.BotBinding, error) {
	if !req.BotType.Valid() {
		return nil, fmt.Errorf("%w: unknown bot type %q", domainerrors.ErrInvalidInput, req.BotType)
	}

	network, err := s.orchestrator.Network(req.BotType)
	if err != nil {
		return nil, err
	}

	wallet, err := s.signing.CreateWallet(ctx, uuid.New().String())
	if err != nil {
		return nil, fmt.Errorf("provision custodial wallet: %w", err)
	}

	smartWalletAddress, err := s.accounts.SmartWalletAddress(ctx, network, wallet.Address)
	if err != nil {
		return nil, fmt.Errorf("derive smart wallet: %w", err)
	}

	if err := s.webhooks.WatchAddresses(ctx, smartWalletAddress); err != nil {
		return nil, fmt.Errorf("register transfer webhook: %w", err)
	}

	now := time.Now()
	binding := &entities.BotBinding{
		ID:               uuid.New(),
		UserID:           req.UserID,
		BotType:          req.BotType,
		BotWalletID:      wallet.WalletID,
		BotWalletAddress: wallet.Address,
		// Stored in checksum form so inbound transfer notifications, which
		// are checksummed before lookup, match the persisted pair
		UserWalletAddress:  chain.ChecksumAddress(req.UserWalletAddress),
		SmartWalletAddress: smartWalletAddress,
		Balance:            decimal.Zero,
		AmountDeposited:    decimal.Zero,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.bindingRepo.Create(ctx, binding); err != nil {
		return nil, err
	}

	s.logger.Info("Bot binding created",
		"binding_id", binding.ID,
		"user_id", req.UserID,
		"bot_type", req.BotType,
		"smart_wallet", smartWalletAddress)

	return binding, nil
}

// Get returns one binding by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entities.BotBinding, error) {
	return s.bindingRepo.GetByID(ctx, id)
}

// ListByUser returns all bindings of one user
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entities.BotBinding, error) {
	return s.bindingRepo.ListByUserID(ctx, userID)
}

// Deposit runs the deposit flow for a binding: dispatches the strategy
// batch, appends one COMPLETED ledger row per deposit step under the given
// batch ID, and increments the deposited-amount counter. amount is in whole
// native units.
func (s *Service) Deposit(ctx context.Context, bindingID, batchID uuid.UUID, amount decimal.Decimal, currency, network *string) error {
	binding, err := s.bindingRepo.GetByID(ctx, bindingID)
	if err != nil {
		return err
	}

	signer := s.signing.NewSigner(binding.BotWalletAddress)

	start := time.Now()
	txHash, err := s.orchestrator.Deposit(ctx, binding.BotType, signer, amount)
	if err != nil {
		return fmt.Errorf("deposit for binding %s: %w", bindingID, err)
	}
	metrics.BatchSubmissionDuration.WithLabelValues(string(binding.BotType), "deposit").Observe(time.Since(start).Seconds())

	contract, err := s.orchestrator.ContractAddress(binding.BotType)
	if err != nil {
		return err
	}
	stepOrder, err := s.orchestrator.DepositStepOrder(binding.BotType)
	if err != nil {
		return err
	}

	steps := buildSteps(stepOrder, entities.TxOwnerBot, entities.TxOwnerContract,
		binding.BotWalletAddress, contract.Hex(), amount, currency, network)

	if _, err := s.ledgerSvc.AppendBatch(ctx, &ledger.AppendBatchRequest{
		BindingID: bindingID,
		BatchID:   batchID,
		TxHash:    txHash,
		Status:    entities.TxStatusCompleted,
		Steps:     steps,
	}); err != nil {
		return err
	}

	if err := s.bindingRepo.IncrementAmountDeposited(ctx, bindingID, amount); err != nil {
		return err
	}

	metrics.DepositBatchesTotal.WithLabelValues(string(binding.BotType)).Inc()
	s.logger.Info("Deposit completed",
		"binding_id", bindingID, "batch_id", batchID, "tx_hash", txHash, "amount", amount.String())

	return nil
}

// Withdraw converts a percentage of the binding's staked balance into base
// units, runs the strategy's withdrawal batch to the user's wallet, and
// appends one COMPLETED ledger row per withdraw step. Returns the batch's
// transaction hash.
func (s *Service) Withdraw(ctx context.Context, bindingID uuid.UUID, percentage int64, currency, network *string) (string, error) {
	// Bounds are checked before any chain call is made
	if percentage < 1 || percentage > 100 {
		return "", domainerrors.ErrInvalidPercentage
	}

	binding, err := s.bindingRepo.GetByID(ctx, bindingID)
	if err != nil {
		return "", err
	}

	signer := s.signing.NewSigner(binding.BotWalletAddress)

	stakedBalance, err := s.orchestrator.StakedBalance(ctx, binding.BotType, signer)
	if err != nil {
		return "", fmt.Errorf("read staked balance for binding %s: %w", bindingID, err)
	}

	amount, err := strategy.WithdrawalAmount(stakedBalance, percentage)
	if err != nil {
		return "", err
	}

	destination := common.HexToAddress(binding.UserWalletAddress)

	start := time.Now()
	txHash, err := s.orchestrator.Withdraw(ctx, binding.BotType, signer, destination, amount)
	if err != nil {
		return "", fmt.Errorf("withdraw for binding %s: %w", bindingID, err)
	}
	metrics.BatchSubmissionDuration.WithLabelValues(string(binding.BotType), "withdraw").Observe(time.Since(start).Seconds())

	contract, err := s.orchestrator.ContractAddress(binding.BotType)
	if err != nil {
		return "", err
	}
	stepOrder, err := s.orchestrator.WithdrawStepOrder(binding.BotType)
	if err != nil {
		return "", err
	}

	withdrawnLP := decimal.NewFromBigInt(amount, 0)
	steps := buildSteps(stepOrder, entities.TxOwnerContract, entities.TxOwnerUser,
		contract.Hex(), binding.UserWalletAddress, withdrawnLP, currency, network)

	batchID := uuid.New()
	if _, err := s.ledgerSvc.AppendBatch(ctx, &ledger.AppendBatchRequest{
		BindingID: bindingID,
		BatchID:   batchID,
		TxHash:    txHash,
		Status:    entities.TxStatusCompleted,
		Steps:     steps,
	}); err != nil {
		return "", err
	}

	withdrawnShare := binding.Balance.Mul(decimal.NewFromInt(percentage)).Div(decimal.NewFromInt(100))
	if err := s.bindingRepo.DecrementBalance(ctx, bindingID, withdrawnShare); err != nil {
		return "", err
	}

	metrics.WithdrawBatchesTotal.WithLabelValues(string(binding.BotType)).Inc()
	s.logger.Info("Withdrawal completed",
		"binding_id", bindingID, "batch_id", batchID, "tx_hash", txHash,
		"percentage", percentage, "lp_amount", amount.String())

	return txHash, nil
}

// StakedBalance reads the protocol-tracked position of a binding's smart
// wallet, in base units
func (s *Service) StakedBalance(ctx context.Context, bindingID uuid.UUID) (*big.Int, error) {
	binding, err := s.bindingRepo.GetByID(ctx, bindingID)
	if err != nil {
		return nil, err
	}

	signer := s.signing.NewSigner(binding.BotWalletAddress)
	return s.orchestrator.StakedBalance(ctx, binding.BotType, signer)
}

// buildSteps expands a canonical step order into ledger step inputs, one per
// label, all sharing the same endpoints and amount
func buildSteps(order []string, fromRole, toRole entities.TxOwner, fromAddress, toAddress string, amount decimal.Decimal, currency, network *string) []entities.BatchStep {
	steps := make([]entities.BatchStep, len(order))
	for i, label := range order {
		steps[i] = entities.BatchStep{
			StepType:    label,
			FromRole:    fromRole,
			ToRole:      toRole,
			FromAddress: fromAddress,
			ToAddress:   toAddress,
			Amount:      amount,
			Currency:    currency,
			Network:     network,
		}
	}
	return steps
}
