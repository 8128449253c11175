package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/formation-market/internal/apperr"
	"github.com/iliyamo/formation-market/internal/model"
	"github.com/iliyamo/formation-market/internal/money"
	"github.com/iliyamo/formation-market/internal/queue"
	"github.com/iliyamo/formation-market/internal/repository"
)

// CancelInput is a buyer's cancellation request.
type CancelInput struct {
	TransactionRef string
	Reason         string
	RequesterID    string
}

// CancelResult is the outcome of Cancel.
type CancelResult struct {
	TransactionID  string `json:"transactionId"`
	RefundID       string `json:"refundId"`
	SellersDebited int    `json:"sellersDebited"`
}

// ReversalEngine cancels sales and undoes their commissions.
type ReversalEngine struct {
	ledger *repository.Ledger
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewReversalEngine wires the engine.
func NewReversalEngine(l *repository.Ledger, events EventPublisher, logger *zap.Logger) *ReversalEngine {
	return &ReversalEngine{ledger: l, events: events, logger: logger.Named("reversal"), now: utcNow}
}

// errCommissionMoved aborts a reversal when a commission row changed
// between the read and the conditional update inside the transaction.
var errCommissionMoved = errors.New("commission changed concurrently")

// errSaleMoved aborts a reversal when the conditional cancel matched no row.
var errSaleMoved = errors.New("sale changed concurrently")

// Cancel cancels the sale, debits every credited seller by what is still
// held for them and records a refund.  A second call for the same sale
// fails with an invalid state error and writes nothing.
func (e *ReversalEngine) Cancel(ctx context.Context, in CancelInput) (CancelResult, error) {
	ref := strings.TrimSpace(in.TransactionRef)
	reason := strings.TrimSpace(in.Reason)
	if ref == "" {
		return CancelResult{}, apperr.Validation("transactionId is required")
	}
	if reason == "" {
		return CancelResult{}, apperr.Validation("motif is required")
	}
	log := e.logger.With(zap.String("transaction_id", ref))

	sale, err := e.ledger.Sales.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			return CancelResult{}, apperr.NotFound("sale %s not found", ref)
		}
		return CancelResult{}, apperr.Settlement(err, "load sale")
	}
	if sale.BuyerID != in.RequesterID {
		reversalsTotal.WithLabelValues("forbidden").Inc()
		return CancelResult{}, apperr.Permission("only the buyer can cancel this sale")
	}
	if !sale.Status.CanTransitionTo(model.SaleCancelled) {
		reversalsTotal.WithLabelValues("rejected").Inc()
		return CancelResult{}, apperr.InvalidState("sale is %s", sale.Status).WithDetail("transactionId", ref)
	}
	refunded, err := e.ledger.Refunds.ExistsForSaleTx(ctx, e.ledger.DB, sale.ID)
	if err != nil {
		return CancelResult{}, apperr.Settlement(err, "check refunds")
	}
	if refunded {
		reversalsTotal.WithLabelValues("rejected").Inc()
		return CancelResult{}, apperr.InvalidState("sale already refunded").WithDetail("transactionId", ref)
	}

	var (
		refund  model.Refund
		debited int
		sellers []string
	)
	err = e.ledger.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		debited, sellers = 0, nil
		now := e.now()
		ok, err := e.ledger.Sales.CancelTx(ctx, tx, sale.ID, reason, now)
		if err != nil {
			return err
		}
		if !ok {
			return errSaleMoved
		}
		items, err := e.ledger.Sales.ItemsBySaleTx(ctx, tx, sale.ID)
		if err != nil {
			return err
		}
		if err := e.ledger.Sales.SetDeliveredTx(ctx, tx, sale.ID, false); err != nil {
			return err
		}

		rows, err := e.ledger.Commissions.BySaleTx(ctx, tx, sale.ID)
		if err != nil {
			return err
		}
		for _, c := range rows {
			if c.Status == model.CommissionCancelled {
				continue
			}
			ok, err := e.ledger.Commissions.CancelTx(ctx, tx, c.ID, c.Status, c.WithdrawnCents, now)
			if err != nil {
				return err
			}
			if !ok {
				return errCommissionMoved
			}
			sellers = append(sellers, c.SellerID)
			switch c.Status {
			case model.CommissionPaid:
				if err := e.ledger.Users.AdjustBalanceTx(ctx, tx, c.SellerID, -c.AvailableSellerCents(), -1); err != nil {
					return err
				}
				debited++
			case model.CommissionWithdrawn:
				if err := e.ledger.Users.AdjustBalanceTx(ctx, tx, c.SellerID, 0, -1); err != nil {
					return err
				}
			}
		}

		refund = model.Refund{
			SaleID:      sale.ID,
			BuyerID:     sale.BuyerID,
			AmountCents: sale.TotalCents,
			Reason:      reason,
			Status:      model.RefundRequested,
		}
		if len(items) == 1 {
			productID, sellerID := items[0].ProductID, items[0].SellerID
			refund.ProductID, refund.SellerID = &productID, &sellerID
		}
		return e.ledger.Refunds.CreateTx(ctx, tx, &refund)
	})
	switch {
	case errors.Is(err, errSaleMoved):
		reversalsTotal.WithLabelValues("rejected").Inc()
		return CancelResult{}, apperr.InvalidState("sale is no longer cancellable").WithDetail("transactionId", ref)
	case err != nil:
		reversalsTotal.WithLabelValues("error").Inc()
		log.Error("reversal rolled back", zap.Error(err))
		return CancelResult{}, apperr.Settlement(err, "cancel sale").WithDetail("transactionId", ref)
	}

	reversalsTotal.WithLabelValues("cancelled").Inc()
	log.Info("sale cancelled", zap.String("sale_id", sale.ID), zap.Int("sellers_debited", debited), zap.String("refund_id", refund.ID))

	now := e.now()
	amount := money.FromCents(sale.TotalCents)
	publishAll(ctx, e.events, log,
		queue.NotificationEvent{
			TransactionID: ref, EventType: queue.EventCancellation, SaleID: sale.ID, BuyerID: sale.BuyerID,
			SellerIDs: sellers, Amount: amount, Reason: reason, OccurredAt: now,
		},
		queue.NotificationEvent{
			TransactionID: ref, EventType: queue.EventRefund, SaleID: sale.ID, BuyerID: sale.BuyerID,
			SellerIDs: sellers, Amount: amount, Reason: reason, OccurredAt: now,
		},
	)

	return CancelResult{TransactionID: ref, RefundID: refund.ID, SellersDebited: debited}, nil
}
