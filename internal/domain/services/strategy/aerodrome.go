package strategy

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"github.com/rabot-service/rabot_service/internal/adapters/biconomy"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
	domainerrors "github.com/rabot-service/rabot_service/internal/domain/errors"
	"github.com/rabot-service/rabot_service/internal/infrastructure/chain"
	"github.com/rabot-service/rabot_service/pkg/logger"
)

const (
	depositDeadlineWindow  = 20 * time.Minute
	withdrawDeadlineWindow = 10 * time.Minute
)

// AerodromeStrategy operates the WETH/USDC volatile pool on Base with gauge
// staking: deposits end staked in the gauge, withdrawals unwind the stake,
// claim rewards and trading fees, and return everything as native ETH.
type AerodromeStrategy struct {
	backend *ethclient.Client
	bundler *biconomy.Client
	chainID int64
	logger  *logger.Logger
}

// NewAerodromeStrategy creates the Aerodrome WETH/USDC strategy
func NewAerodromeStrategy(backend *ethclient.Client, bundler *biconomy.Client, chainID int64, logger *logger.Logger) *AerodromeStrategy {
	return &AerodromeStrategy{
		backend: backend,
		bundler: bundler,
		chainID: chainID,
		logger:  logger,
	}
}

func (s *AerodromeStrategy) BotType() entities.BotType {
	return entities.BotTypeAerodromeWethUsdc
}

func (s *AerodromeStrategy) Network() entities.Network {
	return entities.NetworkBase
}

// ContractAddress is the staking gauge: the contract that ultimately holds
// the position
func (s *AerodromeStrategy) ContractAddress() common.Address {
	return chain.AerodromeWethUsdcPool
}

func (s *AerodromeStrategy) DepositStepOrder() []string {
	return []string{
		entities.StepSwap,
		entities.StepApprove,
		entities.StepLiquidityAdd,
		entities.StepApproveLPToken,
		entities.StepDeposit,
	}
}

func (s *AerodromeStrategy) WithdrawStepOrder() []string {
	return []string{
		entities.StepWithdraw,
		entities.StepApproveWithdrawLPToken,
		entities.StepRemoveLiquidity,
		entities.StepClaimReward,
		entities.StepTransferAerodrome,
		entities.StepClaimTradingFee,
		entities.StepUsdcApprove,
		entities.StepSwapUsdcToEth,
		entities.StepSwapWethToEth,
		entities.StepTransferEth,
	}
}

// Deposit splits the native amount in half, swaps one half into USDC at the
// current pool price, adds both halves as liquidity and stakes the resulting
// LP tokens in the gauge, all as one atomic batch.
func (s *AerodromeStrategy) Deposit(ctx context.Context, signer biconomy.Signer, amount decimal.Decimal) (string, error) {
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
	wethUsdcPath := []common.Address{chain.BaseWETH, chain.BaseUSDC}

	// Price the swap half and the resulting LP amount once, up front; every
	// later step uses this snapshot instead of re-reading chain state.
	amountsOut, err := chain.SimulateAmountsOut(ctx, s.backend, chain.UniswapV2RouterABI,
		chain.BaseUniswapV2Router, sender, swapWei,
		"swapExactETHForTokens", big.NewInt(0), wethUsdcPath, sender, swapDeadline)
	if err != nil {
		return "", fmt.Errorf("quote swap output: %w", err)
	}
	minUsdcOut := amountsOut[len(amountsOut)-1]

	liquidityQuote, err := chain.ReadUints(ctx, s.backend, chain.AerodromeRouterABI,
		chain.AerodromeRouter, "quoteAddLiquidity",
		chain.BaseWETH, chain.BaseUSDC, false, chain.AerodromeDefaultFactory, swapWei, minUsdcOut)
	if err != nil {
		return "", fmt.Errorf("quote liquidity output: %w", err)
	}
	liquidityOut := liquidityQuote[2]

	swap, err := chain.Pack(chain.UniswapV2RouterABI, chain.BaseUniswapV2Router, swapWei,
		"swapExactETHForTokens", minUsdcOut, wethUsdcPath, sender, swapDeadline)
	if err != nil {
		return "", err
	}

	approveUsdc, err := chain.Pack(chain.ERC20ABI, chain.BaseUSDC, nil,
		"approve", chain.AerodromeRouter, maxUint256)
	if err != nil {
		return "", err
	}

	// Minimum-out sides are zero: the batch is a best-effort composition
	// whose overall atomicity comes from the bundler
	addLiquidity, err := chain.Pack(chain.AerodromeRouterABI, chain.AerodromeRouter, swapWei,
		"addLiquidityETH", chain.BaseUSDC, false, minUsdcOut, big.NewInt(0), big.NewInt(0), sender, swapDeadline)
	if err != nil {
		return "", err
	}

	approveLP, err := chain.Pack(chain.ERC20ABI, chain.AerodromeWethUsdcLPToken, nil,
		"approve", chain.AerodromeWethUsdcPool, maxUint256)
	if err != nil {
		return "", err
	}

	stake, err := chain.Pack(chain.AerodromeGaugeABI, chain.AerodromeWethUsdcPool, nil,
		"deposit", liquidityOut)
	if err != nil {
		return "", err
	}

	txHash, err := s.bundler.PerformBatch(ctx, s.chainID, s.backend, signer,
		[]chain.Call{swap, approveUsdc, addLiquidity, approveLP, stake})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrBatchSubmissionFailed, err)
	}

	s.logger.Info("Aerodrome deposit batch submitted",
		"tx_hash", txHash, "smart_wallet", sender.Hex(), "amount", amount.String())

	return txHash, nil
}

// Withdraw unstakes the given LP amount, removes liquidity, claims gauge
// rewards and trading fees, swaps everything back to native ETH and sends
// the proceeds to destination
func (s *AerodromeStrategy) Withdraw(ctx context.Context, signer biconomy.Signer, destination common.Address, amount *big.Int) (string, error) {
	sender, err := biconomy.SmartAccountAddress(ctx, s.backend, signer.Address())
	if err != nil {
		return "", fmt.Errorf("resolve smart wallet: %w", err)
	}

	snapshot, err := s.snapshotWithdrawState(ctx, sender, amount)
	if err != nil {
		return "", err
	}

	removeDeadline := deadline(withdrawDeadlineWindow)
	usdcWethPath := []common.Address{chain.BaseUSDC, chain.BaseWETH}

	unstake, err := chain.Pack(chain.AerodromeGaugeABI, chain.AerodromeWethUsdcPool, nil,
		"withdraw", amount)
	if err != nil {
		return "", err
	}

	approveLP, err := chain.Pack(chain.ERC20ABI, chain.AerodromeWethUsdcLPToken, nil,
		"approve", chain.AerodromeRouter, maxUint256)
	if err != nil {
		return "", err
	}

	removeLiquidity, err := chain.Pack(chain.AerodromeRouterABI, chain.AerodromeRouter, nil,
		"removeLiquidity", chain.BaseWETH, chain.BaseUSDC, false, amount,
		big.NewInt(0), big.NewInt(0), sender, removeDeadline)
	if err != nil {
		return "", err
	}

	claimReward, err := chain.Pack(chain.AerodromeGaugeABI, chain.AerodromeWethUsdcPool, nil,
		"getReward", sender)
	if err != nil {
		return "", err
	}

	transferAero, err := chain.Pack(chain.ERC20ABI, chain.BaseAerodrome, nil,
		"transfer", destination, snapshot.rewardAmount)
	if err != nil {
		return "", err
	}

	claimFees, err := chain.Pack(chain.AerodromePoolABI, chain.AerodromeWethUsdcLPToken, nil,
		"claimFees")
	if err != nil {
		return "", err
	}

	totalUsdc := new(big.Int).Add(snapshot.usdcOut, snapshot.claimableUsdc)
	approveUsdc, err := chain.Pack(chain.ERC20ABI, chain.BaseUSDC, nil,
		"approve", chain.BaseUniswapV2Router, totalUsdc)
	if err != nil {
		return "", err
	}

	swapUsdc, err := chain.Pack(chain.UniswapV2RouterABI, chain.BaseUniswapV2Router, nil,
		"swapExactTokensForETHSupportingFeeOnTransferTokens",
		totalUsdc, big.NewInt(0), usdcWethPath, destination, removeDeadline)
	if err != nil {
		return "", err
	}

	totalWeth := new(big.Int).Add(snapshot.wethOut, snapshot.claimableWeth)
	unwrapWeth, err := chain.Pack(chain.WETH9ABI, chain.BaseWETH, nil,
		"withdraw", totalWeth)
	if err != nil {
		return "", err
	}

	transferEth := chain.NativeTransfer(destination, snapshot.wethOut)

	txHash, err := s.bundler.PerformBatch(ctx, s.chainID, s.backend, signer, []chain.Call{
		unstake, approveLP, removeLiquidity, claimReward, transferAero,
		claimFees, approveUsdc, swapUsdc, unwrapWeth, transferEth,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainerrors.ErrBatchSubmissionFailed, err)
	}

	s.logger.Info("Aerodrome withdraw batch submitted",
		"tx_hash", txHash, "smart_wallet", sender.Hex(), "destination", destination.Hex(), "lp_amount", amount.String())

	return txHash, nil
}

// StakedBalance reads the smart wallet's gauge position
func (s *AerodromeStrategy) StakedBalance(ctx context.Context, signer biconomy.Signer) (*big.Int, error) {
	sender, err := biconomy.SmartAccountAddress(ctx, s.backend, signer.Address())
	if err != nil {
		return nil, fmt.Errorf("resolve smart wallet: %w", err)
	}

	balance, err := chain.ReadUint(ctx, s.backend, chain.AerodromeGaugeABI,
		chain.AerodromeWethUsdcPool, "balanceOf", sender)
	if err != nil {
		return nil, fmt.Errorf("read staked balance: %w", err)
	}
	return balance, nil
}

// withdrawSnapshot holds every chain read a withdrawal batch depends on,
// taken once before any step is built so all steps see the same state
type withdrawSnapshot struct {
	wethOut       *big.Int
	usdcOut       *big.Int
	rewardAmount  *big.Int
	claimableWeth *big.Int
	claimableUsdc *big.Int
}

// The four reads are independent of each other, so they run concurrently;
// nothing is built until all of them have landed.
func (s *AerodromeStrategy) snapshotWithdrawState(ctx context.Context, sender common.Address, amount *big.Int) (*withdrawSnapshot, error) {
	var snapshot withdrawSnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		removeQuote, err := chain.ReadUints(gctx, s.backend, chain.AerodromeRouterABI,
			chain.AerodromeRouter, "quoteRemoveLiquidity",
			chain.BaseWETH, chain.BaseUSDC, false, chain.AerodromeDefaultFactory, amount)
		if err != nil {
			return fmt.Errorf("quote liquidity removal: %w", err)
		}
		snapshot.wethOut = removeQuote[0]
		snapshot.usdcOut = removeQuote[1]
		return nil
	})

	g.Go(func() error {
		reward, err := chain.ReadUint(gctx, s.backend, chain.AerodromeGaugeABI,
			chain.AerodromeWethUsdcPool, "rewards", sender)
		if err != nil {
			return fmt.Errorf("read gauge rewards: %w", err)
		}
		snapshot.rewardAmount = reward
		return nil
	})

	g.Go(func() error {
		claimable, err := chain.ReadUint(gctx, s.backend, chain.AerodromePoolABI,
			chain.AerodromeWethUsdcLPToken, "claimable0", sender)
		if err != nil {
			return fmt.Errorf("read claimable fees: %w", err)
		}
		snapshot.claimableWeth = claimable
		return nil
	})

	g.Go(func() error {
		claimable, err := chain.ReadUint(gctx, s.backend, chain.AerodromePoolABI,
			chain.AerodromeWethUsdcLPToken, "claimable1", sender)
		if err != nil {
			return fmt.Errorf("read claimable fees: %w", err)
		}
		snapshot.claimableUsdc = claimable
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
