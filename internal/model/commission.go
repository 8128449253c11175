package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionStatus is the lifecycle state of a commission row.
type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "pending"
	CommissionPaid      CommissionStatus = "paid"
	CommissionCancelled CommissionStatus = "cancelled"
	CommissionWithdrawn CommissionStatus = "withdrawn"
)

// Commission is one seller's share of one sale.  There is exactly one
// row per (sale, seller).
//
// Fields:
//
//	GrossCents             – subtotal of the seller's items in the sale.
//	SellerShareCents       – amount credited to the seller.
//	PlatformShareCents     – amount retained by the platform operator.
//	Percent                – platform percentage applied.
//	WithdrawnCents         – part of the seller share already paid out.
//	PlatformWithdrawnCents – part of the platform share already paid out.
//	WithdrawalID           – last withdrawal that consumed this row.
type Commission struct {
	ID                     string           // commissions.id
	SaleID                 string           // commissions.sale_id
	SellerID               string           // commissions.seller_id
	GrossCents             int64            // commissions.gross_cents
	SellerShareCents       int64            // commissions.seller_share_cents
	PlatformShareCents     int64            // commissions.platform_share_cents
	Percent                decimal.Decimal  // commissions.commission_percent
	Status                 CommissionStatus // commissions.status
	WithdrawnCents         int64            // commissions.withdrawn_cents
	PlatformWithdrawnCents int64            // commissions.platform_withdrawn_cents
	WithdrawalID           *string          // commissions.withdrawal_id (nullable)
	CreatedAt              time.Time        // commissions.created_at
	ProcessedAt            *time.Time       // commissions.processed_at (nullable)
}

// AvailableSellerCents is the part of the seller share still withdrawable.
func (c Commission) AvailableSellerCents() int64 {
	if c.Status != CommissionPaid {
		return 0
	}
	if left := c.SellerShareCents - c.WithdrawnCents; left > 0 {
		return left
	}
	return 0
}

// AvailablePlatformCents is the part of the platform share still withdrawable.
func (c Commission) AvailablePlatformCents() int64 {
	if c.Status != CommissionPaid && c.Status != CommissionWithdrawn {
		return 0
	}
	if left := c.PlatformShareCents - c.PlatformWithdrawnCents; left > 0 {
		return left
	}
	return 0
}
