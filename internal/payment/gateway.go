// Package payment defines the payment gateway strategy used by checkout.
// The strategy is picked once at startup from PAYMENT_MODE.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/formation-market/internal/config"
)

// Status is the normalised outcome of a charge attempt.
type Status string

const (
	// StatusSucceeded means the money was captured.
	StatusSucceeded Status = "succeeded"
	// StatusPending means the gateway will confirm later through the callback.
	StatusPending Status = "pending"
	// StatusFailed means the gateway rejected the charge.
	StatusFailed Status = "failed"
)

// ErrUnsupportedMode is returned by New for an unknown PAYMENT_MODE.
var ErrUnsupportedMode = errors.New("payment: unsupported mode")

// ChargeRequest is one payment attempt for a sale.  TransactionRef doubles
// as the gateway idempotency key.
type ChargeRequest struct {
	TransactionRef string
	AmountCents    int64
	PaymentMode    string
	Country        string
	Phone          string
	Email          string
}

// ChargeResult is the gateway's answer to a ChargeRequest.
type ChargeResult struct {
	Status     Status
	GatewayRef string
	Message    string
}

// Gateway charges buyers.  Implementations must be safe for concurrent use
// and honour ctx cancellation.
type Gateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// New returns the gateway selected by cfg.Mode.
func New(cfg config.PaymentConfig) (Gateway, error) {
	switch strings.ToLower(cfg.Mode) {
	case config.PaymentSandbox, "":
		return Sandbox{}, nil
	case config.PaymentLive:
		return NewHTTPGateway(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, cfg.Mode)
	}
}

// Sandbox accepts every charge immediately.
type Sandbox struct{}

func (Sandbox) Name() string { return config.PaymentSandbox }

func (Sandbox) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	return ChargeResult{Status: StatusSucceeded, GatewayRef: "sandbox-" + req.TransactionRef}, nil
}

// NormalizeStatus maps provider vocabularies onto Status.  Unknown values
// are treated as failures.
func NormalizeStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "succeeded", "success", "successful", "paid", "completed", "accepted":
		return StatusSucceeded
	case "pending", "processing", "initiated", "created":
		return StatusPending
	default:
		return StatusFailed
	}
}
