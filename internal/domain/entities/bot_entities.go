package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BotType identifies which liquidity protocol a binding operates against.
// The set is closed; each value maps to exactly one registered strategy.
type BotType string

const (
	BotTypeAerodromeWethUsdc   BotType = "AERODROME_WETH_USDC"
	BotTypeQuickswapWmaticUsdt BotType = "QUICKSWAP_WMATIC_USDT"
)

// AllBotTypes lists every supported bot type
var AllBotTypes = []BotType{
	BotTypeAerodromeWethUsdc,
	BotTypeQuickswapWmaticUsdt,
}

// Valid reports whether the bot type is a known value
func (t BotType) Valid() bool {
	for _, known := range AllBotTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Network identifies a supported chain
type Network string

const (
	NetworkBase    Network = "base"
	NetworkPolygon Network = "polygon"
)

// BotBinding is one user's instance of a bot: the custodial wallet that
// signs for it, the smart wallet that executes its batches, and the
// running deposit accounting.
//
// amount_deposited is monotonically non-decreasing and is only ever moved
// by an atomic increment at the storage layer. smart_wallet_address is
// written once at provisioning and never reassigned.
type BotBinding struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	UserID             uuid.UUID       `db:"user_id" json:"user_id"`
	BotType            BotType         `db:"bot_type" json:"bot_type"`
	BotWalletID        string          `db:"bot_wallet_id" json:"bot_wallet_id"`
	BotWalletAddress   string          `db:"bot_wallet_address" json:"bot_wallet_address"`
	UserWalletAddress  string          `db:"user_wallet_address" json:"user_wallet_address"`
	SmartWalletAddress string          `db:"smart_wallet_address" json:"smart_wallet_address"`
	Balance            decimal.Decimal `db:"balance" json:"balance"`
	AmountDeposited    decimal.Decimal `db:"amount_deposited" json:"amount_deposited"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}
