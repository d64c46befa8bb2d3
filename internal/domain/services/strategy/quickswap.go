package strategy

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/rabot-service/rabot_service/internal/adapters/biconomy"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
	domainerrors "github.com/rabot-service/rabot_service/internal/domain/errors"
	"github.com/rabot-service/rabot_service/internal/infrastructure/chain"
	"github.com/rabot-service/rabot_service/pkg/logger"
)

// QuickswapStrategy operates the WMATIC/USDT pool on Polygon. It is the
// simple AMM variant: no staking gauge, the position is just the LP token
// balance held by the smart wallet.
type QuickswapStrategy struct {
	backend *ethclient.Client
	bundler *biconomy.Client
	chainID int64
	logger  *logger.Logger
}

// NewQuickswapStrategy creates the Quickswap WMATIC/USDT strategy
func NewQuickswapStrategy(backend *ethclient.Client, bundler *biconomy.Client, chainID int64, logger *logger.Logger) *QuickswapStrategy {
	return &QuickswapStrategy{
		backend: backend,
		bundler: bundler,
		chainID: chainID,
		logger:  logger,
	}
}

func (s *QuickswapStrategy) BotType() entities.BotType {
	return entities.BotTypeQuickswapWmaticUsdt
}

func (s *QuickswapStrategy) Network() entities.Network {
	return entities.NetworkPolygon
}

// ContractAddress is the WMATIC/USDT LP token
func (s *QuickswapStrategy) ContractAddress() common.Address {
	return chain.QuickswapWmaticUsdtLP
}

func (s *QuickswapStrategy) DepositStepOrder() []string {
	return []string{
		entities.StepSwap,
		entities.StepApprove,
		entities.StepLiquidityAdd,
	}
}

func (s *QuickswapStrategy) WithdrawStepOrder() []string {
	return []string{
		entities.StepApproveWithdrawLPToken,
		entities.StepRemoveLiquidity,
	}
}

// Deposit splits the native amount in half, swaps one half into USDT at the
// current price and adds both halves as liquidity
func (s *QuickswapStrategy) Deposit(ctx context.Context, signer biconomy.Signer, amount decimal.Decimal) (string, error) {
	sender, err := biconomy.SmartAccountAddress(ctx, s.backend, signer.Address())
	if err != nil {
		return "", fmt.Errorf("resolve smart wallet: %w", err)
	}

	amountWei := EtherToWei(amount)
	balance, err := chain.NativeBalance(ctx, s.backend, sender)
	if err != nil {
		return "", fmt.Errorf("read wallet balance: %w", err)
	}
	if balance.Cmp(amountWei) < 0 {
		return "", domainerrors.ErrInsufficientBalance
	}

	swapWei := new(big.Int).Div(amountWei, big.NewInt(2))
	swapDeadline := deadline(depositDeadlineWindow)
	wmaticUsdtPath := []common.Address{chain.PolygonWMATIC, chain.PolygonUSDT}

	amountsOut, err := chain.ReadUints(ctx, s.backend, chain.UniswapV2RouterABI,
		chain.PolygonUniswapV2Router, "getAmountsOut", swapWei, wmaticUsdtPath)
	if err != nil {
		return "", fmt.Errorf("quote swap output: %w", err)
	}
	minUsdtOut := amountsOut[len(amountsOut)-1]

	swap, err := chain.Pack(chain.UniswapV2RouterABI, chain.PolygonUniswapV2Router, swapWei,
		"swapExactETHForTokens", minUsdtOut, wmaticUsdtPath, sender, swapDeadline)
	if err != nil {
		return "", err
	}

	approveUsdt, err := chain.Pack(chain.ERC20ABI, chain.PolygonUSDT, nil,
		"approve", chain.QuickswapRouter, maxUint256)
	if err != nil {
		return "", err
	}

	addLiquidity, err := chain.Pack(chain.UniswapV2RouterABI, chain.QuickswapRouter, swapWei,
		"addLiquidityETH", chain.PolygonUSDT, minUsdtOut, big.NewInt(0), big.NewInt(0), sender, swapDeadline)
	if err != nil {
		return "", err
	}

	txHash, err := s.bundler.PerformBatch(ctx, s.chainID, s.backend, signer,
		[]chain.Call{swap, approveUsdt, addLiquidity})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrBatchSubmissionFailed, err)
	}

	s.logger.Info("Quickswap deposit batch submitted",
		"tx_hash", txHash, "smart_wallet", sender.Hex(), "amount", amount.String())

	return txHash, nil
}

// Withdraw approves the router and removes the given LP amount; proceeds
// land in the destination wallet
func (s *QuickswapStrategy) Withdraw(ctx context.Context, signer biconomy.Signer, destination common.Address, amount *big.Int) (string, error) {
	sender, err := biconomy.SmartAccountAddress(ctx, s.backend, signer.Address())
	if err != nil {
		return "", fmt.Errorf("resolve smart wallet: %w", err)
	}

	removeDeadline := deadline(withdrawDeadlineWindow)

	approveLP, err := chain.Pack(chain.ERC20ABI, chain.QuickswapWmaticUsdtLP, nil,
		"approve", chain.QuickswapRouter, maxUint256)
	if err != nil {
		return "", err
	}

	removeLiquidity, err := chain.Pack(chain.UniswapV2RouterABI, chain.QuickswapRouter, nil,
		"removeLiquidity", chain.PolygonWMATIC, chain.PolygonUSDT, amount,
		big.NewInt(0), big.NewInt(0), destination, removeDeadline)
	if err != nil {
		return "", err
	}

	txHash, err := s.bundler.PerformBatch(ctx, s.chainID, s.backend, signer,
		[]chain.Call{approveLP, removeLiquidity})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrBatchSubmissionFailed, err)
	}

	s.logger.Info("Quickswap withdraw batch submitted",
		"tx_hash", txHash, "smart_wallet", sender.Hex(), "destination", destination.Hex(), "lp_amount", amount.String())

	return txHash, nil
}

// StakedBalance is the smart wallet's LP token balance; there is no staking
// contract on this variant
func (s *QuickswapStrategy) StakedBalance(ctx context.Context, signer biconomy.Signer) (*big.Int, error) {
	sender, err := biconomy.SmartAccountAddress(ctx, s.backend, signer.Address())
	if err != nil {
		return nil, fmt.Errorf("resolve smart wallet: %w", err)
	}

	balance, err := chain.ReadUint(ctx, s.backend, chain.ERC20ABI,
		chain.QuickswapWmaticUsdtLP, "balanceOf", sender)
	if err != nil {
		return nil, fmt.Errorf("read LP balance: %w", err)
	}
	return balance, nil
}
