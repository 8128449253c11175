// Package money converts between the decimal amounts used by the service
// layer and the integer cents persisted by the ledger store.
package money

import (
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places carried by every amount.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// FromCents converts a stored integer amount to a decimal.
func FromCents(cents int64) decimal.Decimal { return decimal.New(cents, -Scale) }

// ToCents converts a decimal to integer cents, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 { return d.Round(Scale).Shift(Scale).IntPart() }

// HasValidScale reports whether d carries no more than two decimal places.
func HasValidScale(d decimal.Decimal) bool { return d.Equal(d.Round(Scale)) }

// Percent returns d × pct / 100 without rounding.
func Percent(d, pct decimal.Decimal) decimal.Decimal { return d.Mul(pct).Div(hundred) }
