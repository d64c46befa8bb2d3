package entities

import "github.com/shopspring/decimal"

// TransferNotification is an inbound on-chain transfer event delivered by
// the webhook provider. Addresses arrive in arbitrary casing and must be
// checksum-normalized before any lookup.
type TransferNotification struct {
	FromAddress string          `json:"from_address"`
	ToAddress   string          `json:"to_address"`
	TxHash      string          `json:"transaction_hash"`
	Amount      decimal.Decimal `json:"value"`
	Asset       string          `json:"asset"`
	Network     string          `json:"network,omitempty"`
}
