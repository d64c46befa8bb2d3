package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxStatus is the status of a ledger entry. Entries only ever move
// QUEUED -> COMPLETED; there is no backward transition and no FAILED state
// (a batch that fails before submission produces no entries at all).
type TxStatus string

const (
	TxStatusQueued    TxStatus = "QUEUED"
	TxStatusCompleted TxStatus = "COMPLETED"
)

// TxOwner is the role on either side of a ledger entry
type TxOwner string

const (
	TxOwnerUser     TxOwner = "USER"
	TxOwnerBot      TxOwner = "BOT"
	TxOwnerContract TxOwner = "CONTRACT"
)

// Step labels recorded in the ledger. Strategies declare their canonical
// ordering over these; the labels themselves are free-form text.
const (
	StepSwap                   = "SWAP"
	StepApprove                = "APPROVE"
	StepLiquidityAdd           = "LIQUIDITY_ADD"
	StepApproveLPToken         = "APPROVE_LP_TOKEN"
	StepDeposit                = "DEPOSIT"
	StepWithdraw               = "WITHDRAW"
	StepApproveWithdrawLPToken = "APPROVE_WITHDRAW_LP_TOKEN"
	StepRemoveLiquidity        = "REMOVE_LIQUIDITY"
	StepClaimReward            = "CLAIM_REWARD"
	StepTransferAerodrome      = "TRANSFER_AERODROME"
	StepClaimTradingFee        = "CLAIM_TRADING_FEE"
	StepUsdcApprove            = "USDC_APPROVE"
	StepSwapUsdcToEth          = "SWAP_USDC_TO_ETH"
	StepSwapWethToEth          = "SWAP_WETH_TO_ETH"
	StepTransferEth            = "TRANSFER_ETH"
	StepTransfer               = "TRANSFER"
)

// Tx is one persisted ledger entry: a single logical step within an
// atomically-submitted batch. All entries of one batch share batch_id and
// tx_hash; their order follows the strategy's canonical step ordering.
type Tx struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	BindingID   uuid.UUID       `db:"binding_id" json:"binding_id"`
	BatchID     uuid.UUID       `db:"batch_id" json:"batch_id"`
	TxHash      string          `db:"tx_hash" json:"tx_hash"`
	StepType    string          `db:"step_type" json:"step_type"`
	StepIndex   int             `db:"step_index" json:"step_index"`
	FromRole    TxOwner         `db:"from_role" json:"from"`
	ToRole      TxOwner         `db:"to_role" json:"to"`
	FromAddress string          `db:"from_address" json:"from_address"`
	ToAddress   string          `db:"to_address" json:"to_address"`
	Status      TxStatus        `db:"status" json:"status"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Gas         decimal.Decimal `db:"gas" json:"gas"`
	Currency    *string         `db:"currency" json:"currency,omitempty"`
	Network     *string         `db:"network" json:"network,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// BatchStep is the input shape for one ledger entry of a batch append
type BatchStep struct {
	StepType    string
	FromRole    TxOwner
	ToRole      TxOwner
	FromAddress string
	ToAddress   string
	Amount      decimal.Decimal
	Currency    *string
	Network     *string
}
