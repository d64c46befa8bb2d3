package strategy

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	domainerrors "github.com/rabot-service/rabot_service/internal/domain/errors"
)

// maxUint256 is the unlimited-allowance value used by the approval steps
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

var weiPerEther = decimal.New(1, 18)

// EtherToWei converts a whole-unit native amount into base units, truncating
// anything below one wei
func EtherToWei(amount decimal.Decimal) *big.Int {
	return amount.Mul(weiPerEther).BigInt()
}

// WithdrawalAmount converts a percentage of a staked balance into base
// units: floor(balance * percentage / 100). Percentages outside 1..100 are
// rejected before any chain call is made.
func WithdrawalAmount(stakedBalance *big.Int, percentage int64) (*big.Int, error) {
	if percentage < 1 || percentage > 100 {
		return nil, domainerrors.ErrInvalidPercentage
	}

	amount := new(big.Int).Mul(stakedBalance, big.NewInt(percentage))
	return amount.Div(amount, big.NewInt(100)), nil
}

// deadline returns a unix-seconds deadline the given duration from now
func deadline(d time.Duration) *big.Int {
	return big.NewInt(time.Now().Add(d).Unix())
}
