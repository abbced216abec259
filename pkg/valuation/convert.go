package valuation

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/migalabs/valscore/pkg/model"
)

// rateFixed expresses rate with the token's own fixed point precision.
func rateFixed(rate float64, decimals uint8) *big.Int {
	return decimal.NewFromFloat(rate).Shift(int32(decimals)).Truncate(0).BigInt()
}

// usdValue multiplies the raw amount by the fixed point rate on integers and scales the product
// down by both the token and the rate precision.
func usdValue(amount *big.Int, meta model.TokenMeta) decimal.Decimal {
	if amount == nil || amount.Sign() == 0 {
		return decimal.Zero
	}
	product := new(big.Int).Mul(amount, rateFixed(meta.Rate, meta.Decimals))
	return decimal.NewFromBigInt(product, -2*int32(meta.Decimals))
}

// ToUSD converts a raw token amount to USD. Only the returned figure is a float.
func ToUSD(amount *big.Int, meta model.TokenMeta) float64 {
	return usdValue(amount, meta).InexactFloat64()
}

// HumanAmount scales a raw amount down by the token decimals.
func HumanAmount(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}
