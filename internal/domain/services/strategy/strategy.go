package strategy

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/rabot-service/rabot_service/internal/adapters/biconomy"
	"github.com/rabot-service/rabot_service/internal/domain/entities"
)

// Strategy is the contract every protocol implementation provides. A
// strategy is a stateless value: it holds chain handles and addresses fixed
// at construction, never a live signer. Deposit and Withdraw build the full
// ordered call batch, submit it as one atomic user operation and return the
// shared transaction hash.
type Strategy interface {
	// BotType is the self-identifying registry key
	BotType() entities.BotType

	// Network names the chain this strategy operates on
	Network() entities.Network

	// ContractAddress is the primary protocol contract, recorded as the
	// CONTRACT side of ledger entries
	ContractAddress() common.Address

	// DepositStepOrder and WithdrawStepOrder are the canonical step labels;
	// ledger rows for one batch are appended in exactly this order
	DepositStepOrder() []string
	WithdrawStepOrder() []string

	// Deposit swaps half the native amount into the paired asset, adds
	// liquidity and stakes where the protocol supports it. amount is in
	// whole native units (ether).
	Deposit(ctx context.Context, signer biconomy.Signer, amount decimal.Decimal) (string, error)

	// Withdraw unwinds amount base units of the position and sends the
	// proceeds to destination
	Withdraw(ctx context.Context, signer biconomy.Signer, destination common.Address, amount *big.Int) (string, error)

	// StakedBalance reads the protocol-tracked position size of the
	// signer's smart wallet, in base units
	StakedBalance(ctx context.Context, signer biconomy.Signer) (*big.Int, error)
}
