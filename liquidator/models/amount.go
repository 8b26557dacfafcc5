package models

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatUnits renders a base-unit amount as a decimal string for the given
// token decimals. Used for log and event readability only; all execution
// math stays in integer base units.
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// BoundRatio reports minOut/expected as a decimal with four places, the
// effective tightness of a swap's slippage bound.
func BoundRatio(minOut, expected *big.Int) string {
	if expected == nil || expected.Sign() == 0 {
		return "0"
	}
	return decimal.NewFromBigInt(minOut, 0).
		DivRound(decimal.NewFromBigInt(expected, 0), 4).
		String()
}
