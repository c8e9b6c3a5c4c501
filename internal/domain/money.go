package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Balances are stored as BIGINT cents (10^-2) to avoid floating point
// errors. shopspring/decimal is used only at the API boundary.

var ErrAmountPrecision = errors.New("amount has more than two fraction digits")

// CentsFromDecimal converts an API amount to cents. It rejects values with
// more than two fraction digits rather than silently rounding.
func CentsFromDecimal(d decimal.Decimal) (int64, error) {
	if d.Exponent() < -2 && !d.Equal(d.Truncate(2)) {
		return 0, ErrAmountPrecision
	}
	return d.Mul(decimal.NewFromInt(100)).IntPart(), nil
}

// DecimalFromCents converts cents back to a two-digit decimal.
func DecimalFromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// FormatCents renders cents as a fixed two-digit string, e.g. "150.00".
func FormatCents(cents int64) string {
	return DecimalFromCents(cents).StringFixed(2)
}
