// Package commission computes the platform fee. Rounding is always up:
// the platform never loses a fractional minor unit to rounding.
package commission

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrRateOutOfRange   = errors.New("commission rate out of range")
	ErrNegativeSubtotal = errors.New("subtotal must not be negative")
)

var (
	// Allowed tenant commission rate range, percent.
	minRate = decimal.NewFromFloat(0.5)
	maxRate = decimal.NewFromInt(50)

	hundred = decimal.NewFromInt(100)
)

// Fee returns ceil(subtotal * rate / 100) in minor units. Rate bounds are
// validated at the tenant-configuration boundary too; the re-check here
// rejects rather than clamps.
func Fee(subtotalMinor int64, ratePercent decimal.Decimal) (int64, error) {
	if ratePercent.LessThan(minRate) || ratePercent.GreaterThan(maxRate) {
		return 0, ErrRateOutOfRange
	}
	if subtotalMinor < 0 {
		return 0, ErrNegativeSubtotal
	}
	if subtotalMinor == 0 {
		return 0, nil
	}

	fee := decimal.NewFromInt(subtotalMinor).Mul(ratePercent).Div(hundred).Ceil()
	return fee.IntPart(), nil
}
