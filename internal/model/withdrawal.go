package model

import "time"

// Withdrawal request statuses.  The immediate-payout flow only produces
// WithdrawalPaid; pending and rejected exist for manual review tooling.
const (
	WithdrawalPending  = "pending"
	WithdrawalPaid     = "paid"
	WithdrawalRejected = "rejected"
)

// WithdrawalRequest is a payout of accumulated balance to an external
// account.
type WithdrawalRequest struct {
	ID            string     // withdrawal_requests.id
	UserID        string     // withdrawal_requests.user_id
	AmountCents   int64      // withdrawal_requests.amount_cents
	FeeCents      int64      // withdrawal_requests.fee_cents
	PaymentMethod string     // withdrawal_requests.payment_method
	AccountNumber string     // withdrawal_requests.account_number
	Status        string     // withdrawal_requests.status
	Note          string     // withdrawal_requests.note
	RequestedAt   time.Time  // withdrawal_requests.requested_at
	ProcessedAt   *time.Time // withdrawal_requests.processed_at (nullable)
}
