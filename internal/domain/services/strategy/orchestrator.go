package strategy

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/rabot-service/rabot_service/internal/adapters/biconomy"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
	domainerrors "github.com/rabot-service/rabot_service/internal/domain/errors"
	"github.com/rabot-service/rabot_service/pkg/logger"
)

// Orchestrator dispatches deposit, withdraw and query calls to the strategy
// registered for a bot type. The registry is built once at startup from the
// fixed strategy list and never mutated afterwards; an unknown bot type is a
// configuration error, not a retryable condition.
type Orchestrator struct {
	strategies map[entities.BotType]Strategy
	logger     *logger.Logger
}

// NewOrchestrator builds the registry, keyed by each strategy's
// self-reported bot type
func NewOrchestrator(logger *logger.Logger, strategies ...Strategy) *Orchestrator {
	registry := make(map[entities.BotType]Strategy, len(strategies))
	for _, s := range strategies {
		registry[s.BotType()] = s
	}
	return &Orchestrator{
		strategies: registry,
		logger:     logger,
	}
}

// Get resolves the strategy for a bot type
func (o *Orchestrator) Get(botType entities.BotType) (Strategy, error) {
	s, ok := o.strategies[botType]
	if !ok {
		return nil, domainerrors.StrategyNotFound(string(botType))
	}
	return s, nil
}

// Deposit dispatches a deposit to the bot type's strategy
func (o *Orchestrator) Deposit(ctx context.Context, botType entities.BotType, signer biconomy.Signer, amount decimal.Decimal) (string, error) {
	s, err := o.Get(botType)
	if err != nil {
		return "", err
	}
	return s.Deposit(ctx, signer, amount)
}

// Withdraw dispatches a withdrawal to the bot type's strategy
func (o *Orchestrator) Withdraw(ctx context.Context, botType entities.BotType, signer biconomy.Signer, destination common.Address, amount *big.Int) (string, error) {
	s, err := o.Get(botType)
	if err != nil {
		return "", err
	}
	return s.Withdraw(ctx, signer, destination, amount)
}

// StakedBalance dispatches a staked-balance query
func (o *Orchestrator) StakedBalance(ctx context.Context, botType entities.BotType, signer biconomy.Signer) (*big.Int, error) {
	s, err := o.Get(botType)
	if err != nil {
		return nil, err
	}
	return s.StakedBalance(ctx, signer)
}

// ContractAddress returns the bot type's primary protocol contract
func (o *Orchestrator) ContractAddress(botType entities.BotType) (common.Address, error) {
	s, err := o.Get(botType)
	if err != nil {
		return common.Address{}, err
	}
	return s.ContractAddress(), nil
}

// Network returns the chain the bot type operates on
func (o *Orchestrator) Network(botType entities.BotType) (entities.Network, error) {
	s, err := o.Get(botType)
	if err != nil {
		return "", err
	}
	return s.Network(), nil
}

// DepositStepOrder returns the bot type's canonical deposit step labels
func (o *Orchestrator) DepositStepOrder(botType entities.BotType) ([]string, error) {
	s, err := o.Get(botType)
	if err != nil {
		return nil, err
	}
	return s.DepositStepOrder(), nil
}

// WithdrawStepOrder returns the bot type's canonical withdrawal step labels
func (o *Orchestrator) WithdrawStepOrder(botType entities.BotType) ([]string, error) {
	s, err := o.Get(botType)
	if err != nil {
		return nil, err
	}
	return s.WithdrawStepOrder(), nil
}
