// Package commission computes the platform/seller split of a sale amount.
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/formation-market/internal/money"
)

// Split is the result of applying the platform percentage to one seller's
// gross amount.  PlatformShare + SellerShare == Gross always holds.
type Split struct {
	Gross         decimal.Decimal `json:"gross"`
	Percent       decimal.Decimal `json:"percent"`
	PlatformShare decimal.Decimal `json:"platformShare"`
	SellerShare   decimal.Decimal `json:"sellerShare"`
}

// Compute splits gross under the given platform percentage.  The platform
// share is truncated to two decimals so that any rounding remainder stays
// with the seller.  Callers validate gross >= 0.
func Compute(gross, percent decimal.Decimal) Split {
	platform := money.Percent(gross, percent).Truncate(money.Scale)
	return Split{
		Gross:         gross,
		Percent:       percent,
		PlatformShare: platform,
		SellerShare:   gross.Sub(platform),
	}
}

// ComputeCents is Compute over integer cents, as stored by the ledger.
func ComputeCents(grossCents int64, percent decimal.Decimal) (platformCents, sellerCents int64) {
	s := Compute(money.FromCents(grossCents), percent)
	platformCents = money.ToCents(s.PlatformShare)
	return platformCents, grossCents - platformCents
}
