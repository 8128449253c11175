package model

import "time"

// SaleStatus is the lifecycle state of a sale.
type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SalePaid      SaleStatus = "paid"
	SaleCancelled SaleStatus = "cancelled"
	SaleFailed    SaleStatus = "failed"
)

// saleTransitions is the sale state machine.  A sale starts pending and
// can be paid once, cancelled once (from pending or paid) or failed
// (from pending).  cancelled and failed are terminal.
var saleTransitions = map[SaleStatus][]SaleStatus{
	SalePending: {SalePaid, SaleCancelled, SaleFailed},
	SalePaid:    {SaleCancelled},
}

// CanTransitionTo reports whether a sale in status s may move to next.
// Legacy rows with an empty status are treated as pending.
func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	if s == "" {
		s = SalePending
	}
	for _, allowed := range saleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s SaleStatus) Terminal() bool { return s == SaleCancelled || s == SaleFailed }

// PaymentMode enumerates the checkout payment channels.
type PaymentMode string

const (
	PaymentMobileMoney PaymentMode = "mobile_money"
	PaymentCard        PaymentMode = "card"
)

// Valid reports whether m is a supported payment mode.
func (m PaymentMode) Valid() bool { return m == PaymentMobileMoney || m == PaymentCard }

// Sale records one checkout transaction.  It may span several sellers;
// the per-seller split lives in Commission rows.
//
// Fields:
//
//	ID             – primary key (UUID).
//	BuyerID        – user who paid.
//	TotalCents     – gross total, equal to the sum of item line totals.
//	PaymentMode    – channel used for the payment attempt.
//	Country        – buyer country code sent with the checkout.
//	TransactionRef – globally unique reference; the idempotency key.
//	GatewayRef     – reference assigned by the payment gateway, if any.
//	Status         – pending, paid, cancelled or failed.
//	FailureReason  – gateway message when the attempt was rejected.
//	CancelReason   – reason given by the buyer on cancellation.
type Sale struct {
	ID             string     // sales.id
	BuyerID        string     // sales.buyer_id
	TotalCents     int64      // sales.total_cents
	PaymentMode    string     // sales.payment_mode
	Country        string     // sales.country
	TransactionRef string     // sales.transaction_ref
	GatewayRef     *string    // sales.gateway_ref (nullable)
	Status         SaleStatus // sales.status
	FailureReason  *string    // sales.failure_reason (nullable)
	CancelReason   *string    // sales.cancel_reason (nullable)
	CreatedAt      time.Time  // sales.created_at
	ConfirmedAt    *time.Time // sales.confirmed_at (nullable)
	CancelledAt    *time.Time // sales.cancelled_at (nullable)
}

// SaleItem is one product line of a sale.  SellerID is a snapshot of the
// product owner at checkout time.
type SaleItem struct {
	ID             string // sale_items.id
	SaleID         string // sale_items.sale_id
	ProductID      string // sale_items.product_id
	SellerID       string // sale_items.seller_id
	Quantity       int64  // sale_items.quantity
	UnitPriceCents int64  // sale_items.unit_price_cents
	Delivered      bool   // sale_items.delivered
}

// LineTotalCents returns unit price × quantity.
func (i SaleItem) LineTotalCents() int64 { return i.UnitPriceCents * i.Quantity }

// Refund is created when a sale is cancelled.  ProductID and SellerID are
// set only for single-item sales.
type Refund struct {
	ID              string    // refunds.id
	SaleID          string    // refunds.sale_id
	ProductID       *string   // refunds.product_id (nullable)
	BuyerID         string    // refunds.buyer_id
	SellerID        *string   // refunds.seller_id (nullable)
	AmountCents     int64     // refunds.amount_cents
	Reason          string    // refunds.reason
	ConsumedPercent int       // refunds.consumed_percent
	Status          string    // refunds.status
	CreatedAt       time.Time // refunds.created_at
}

// RefundRequested is the only refund status produced by the reversal flow.
const RefundRequested = "requested"
