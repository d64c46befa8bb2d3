package strategy

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rabot-service/rabot_service/internal/adapters/biconomy"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
	domainerrors "github.com/rabot-service/rabot_service/internal/domain/errors"
	"github.com/rabot-service/rabot_service/pkg/logger"
)

// stubStrategy records calls without touching any chain
type stubStrategy struct {
	botType      entities.BotType
	network      entities.Network
	contract     common.Address
	depositCalls int
	txHash       string
}

func (s *stubStrategy) BotType() entities.BotType     { return s.botType }
func (s *stubStrategy) Network() entities.Network     { return s.network }
func (s *stubStrategy) ContractAddress() common.Address { return s.contract }
func (s *stubStrategy) DepositStepOrder() []string    { return []string{entities.StepSwap} }
func (s *stubStrategy) WithdrawStepOrder() []string   { return []string{entities.StepWithdraw} }

func (s *stubStrategy) Deposit(ctx context.Context, signer biconomy.Signer, amount decimal.Decimal) (string, error) {
	s.depositCalls++
	return s.txHash, nil
}

func (s *stubStrategy) Withdraw(ctx context.Context, signer biconomy.Signer, destination common.Address, amount *big.Int) (string, error) {
	return s.txHash, nil
}

func (s *stubStrategy) StakedBalance(ctx context.Context, signer biconomy.Signer) (*big.Int, error) {
	return big.NewInt(42), nil
}

func TestOrchestrator_DispatchesByBotType(t *testing.T) {
	aerodrome := &stubStrategy{
		botType:  entities.BotTypeAerodromeWethUsdc,
		network:  entities.NetworkBase,
		contract: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		txHash:   "0xaero",
	}
	quickswap := &stubStrategy{
		botType:  entities.BotTypeQuickswapWmaticUsdt,
		network:  entities.NetworkPolygon,
		contract: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		txHash:   "0xquick",
	}

	o := NewOrchestrator(logger.NewNop(), aerodrome, quickswap)

	txHash, err := o.Deposit(context.Background(), entities.BotTypeAerodromeWethUsdc, nil, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "0xaero", txHash)
	assert.Equal(t, 1, aerodrome.depositCalls)
	assert.Equal(t, 0, quickswap.depositCalls)

	network, err := o.Network(entities.BotTypeQuickswapWmaticUsdt)
	require.NoError(t, err)
	assert.Equal(t, entities.NetworkPolygon, network)

	contract, err := o.ContractAddress(entities.BotTypeAerodromeWethUsdc)
	require.NoError(t, err)
	assert.Equal(t, aerodrome.contract, contract)
}

func TestOrchestrator_UnknownBotType(t *testing.T) {
	o := NewOrchestrator(logger.NewNop(), &stubStrategy{
		botType: entities.BotTypeAerodromeWethUsdc,
		network: entities.NetworkBase,
	})

	aerodrome := o.strategies[entities.BotTypeAerodromeWethUsdc].(*stubStrategy)

	_, err := o.Deposit(context.Background(), entities.BotType("UNKNOWN_BOT"), nil, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domainerrors.ErrStrategyNotFound)
	assert.Contains(t, err.Error(), "UNKNOWN_BOT")
	// No strategy was touched
	assert.Equal(t, 0, aerodrome.depositCalls)

	_, err = o.Withdraw(context.Background(), "UNKNOWN_BOT", nil, common.Address{}, big.NewInt(1))
	assert.ErrorIs(t, err, domainerrors.ErrStrategyNotFound)

	_, err = o.StakedBalance(context.Background(), "UNKNOWN_BOT", nil)
	assert.ErrorIs(t, err, domainerrors.ErrStrategyNotFound)

	_, err = o.Network("UNKNOWN_BOT")
	assert.ErrorIs(t, err, domainerrors.ErrStrategyNotFound)
}

func TestOrchestrator_StepOrders(t *testing.T) {
	o := NewOrchestrator(logger.NewNop(), &stubStrategy{
		botType: entities.BotTypeAerodromeWethUsdc,
		network: entities.NetworkBase,
	})

	depositOrder, err := o.DepositStepOrder(entities.BotTypeAerodromeWethUsdc)
	require.NoError(t, err)
	assert.Equal(t, []string{entities.StepSwap}, depositOrder)

	withdrawOrder, err := o.WithdrawStepOrder(entities.BotTypeAerodromeWethUsdc)
	require.NoError(t, err)
	assert.Equal(t, []string{entities.StepWithdraw}, withdrawOrder)
}
