package wallet

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorExp is the exponent of minor units. Every supported currency uses two decimals.
const minorExp = -2

// FormatMinor renders an amount in minor units as a fixed two-decimal string ("10.00").
func FormatMinor(amount int64) string {
	return decimal.New(amount, minorExp).StringFixed(2)
}

// ParseAmount converts a major-unit decimal string ("12.5") into minor units.
// It rejects non-positive values and more precision than the currency allows.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	minor := d.Shift(-minorExp)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: more than 2 decimal places", ErrInvalidAmount)
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return minor.IntPart(), nil
}
