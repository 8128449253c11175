// Package queue defines the settlement notification events and their
// RabbitMQ publisher and consumer.
package queue

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultQueue is the durable queue carrying settlement notifications.
const DefaultQueue = "notifications.settlement"

// EventType names a settlement notification.
type EventType string

const (
	EventPaymentConfirmed EventType = "paiement_confirme"
	EventRefund           EventType = "remboursement"
	EventCancellation     EventType = "annulation"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventPaymentConfirmed, EventRefund, EventCancellation:
		return true
	}
	return false
}

// NotificationEvent is published after a settlement, cancellation or
// refund commits.  It carries enough for the notification service to
// address buyer and sellers without querying the ledger.
type NotificationEvent struct {
	TransactionID string          `json:"transactionId"`
	EventType     EventType       `json:"eventType"`
	SaleID        string          `json:"saleId"`
	BuyerID       string          `json:"buyerId"`
	SellerIDs     []string        `json:"sellerIds"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// Validate rejects events the consumer cannot route.
func (e NotificationEvent) Validate() error {
	if !e.EventType.Valid() {
		return errors.New("unknown event type")
	}
	if e.TransactionID == "" {
		return errors.New("missing transaction id")
	}
	return nil
}
