package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/formation-market/internal/apperr"
	"github.com/iliyamo/formation-market/internal/commission"
	"github.com/iliyamo/formation-market/internal/config"
	"github.com/iliyamo/formation-market/internal/model"
	"github.com/iliyamo/formation-market/internal/money"
	"github.com/iliyamo/formation-market/internal/queue"
	"github.com/iliyamo/formation-market/internal/repository"
)

// failureStatuses are gateway/buyer status strings that mean the payment
// did not go through.
var failureStatuses = map[string]bool{
	"failed":    true,
	"rejected":  true,
	"cancelled": true,
	"canceled":  true,
	"echec":     true,
	"échec":     true,
}

// IsFailureStatus reports whether a confirmation status signals a failed payment.
func IsFailureStatus(s string) bool {
	return failureStatuses[strings.ToLower(strings.TrimSpace(s))]
}

// SettleInput identifies the sale to settle.  Status is the optional
// status reported by the gateway callback; GatewayRef is recorded when set.
type SettleInput struct {
	TransactionRef string
	Status         string
	GatewayRef     string
}

// SettlementResult is the outcome of Settle.
type SettlementResult struct {
	SaleID           string           `json:"saleId"`
	TransactionID    string           `json:"transactionId"`
	Status           model.SaleStatus `json:"status"`
	CommissionsPaid  int              `json:"commissionsPaid"`
	TotalDistributed decimal.Decimal  `json:"totalDistributed"`
	AlreadyPaid      bool             `json:"alreadyPaid"`
}

// SettlementEngine moves a pending sale to paid and credits every seller
// exactly once.  It is the only code path that pays commissions.
type SettlementEngine struct {
	ledger *repository.Ledger
	policy config.SettlementPolicy
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

// NewSettlementEngine wires the engine.
func NewSettlementEngine(l *repository.Ledger, policy config.SettlementPolicy, events EventPublisher, logger *zap.Logger) *SettlementEngine {
	return &SettlementEngine{ledger: l, policy: policy, events: events, logger: logger.Named("settlement"), now: utcNow}
}

func utcNow() time.Time { return time.Now().UTC() }

// errNotPending aborts the settlement transaction when the conditional
// pending→paid update matched no row.
var errNotPending = errors.New("sale is no longer pending")

// Settle confirms the sale identified by in.TransactionRef.  Repeated
// calls for a paid sale succeed with AlreadyPaid set and change nothing.
func (e *SettlementEngine) Settle(ctx context.Context, in SettleInput) (SettlementResult, error) {
	ref := strings.TrimSpace(in.TransactionRef)
	if ref == "" {
		return SettlementResult{}, apperr.Validation("transactionId is required")
	}
	log := e.logger.With(zap.String("transaction_id", ref))

	sale, err := e.ledger.Sales.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			return SettlementResult{}, apperr.NotFound("sale %s not found", ref)
		}
		settlementsTotal.WithLabelValues("error").Inc()
		return SettlementResult{}, apperr.Settlement(err, "load sale")
	}

	switch sale.Status {
	case model.SalePaid:
		return e.alreadyPaid(ctx, sale)
	case model.SaleCancelled, model.SaleFailed:
		settlementsTotal.WithLabelValues("rejected").Inc()
		return SettlementResult{}, apperr.InvalidState("sale is %s", sale.Status).WithDetail("transactionId", ref)
	}

	if IsFailureStatus(in.Status) {
		return e.fail(ctx, sale, "payment reported as "+strings.ToLower(strings.TrimSpace(in.Status)))
	}

	var (
		paid    int
		total   int64
		sellers []string
	)
	err = e.ledger.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		paid, total = 0, 0
		items, err := e.ledger.Sales.ItemsBySaleTx(ctx, tx, sale.ID)
		if err != nil {
			return err
		}
		groups := groupBySeller(items)
		sellers = sellerIDs(groups)
		ok, err := e.ledger.Sales.MarkPaidTx(ctx, tx, sale.ID, in.GatewayRef, e.now())
		if err != nil {
			return err
		}
		if !ok {
			return errNotPending
		}
		if err := e.ledger.Sales.SetDeliveredTx(ctx, tx, sale.ID, true); err != nil {
			return err
		}

		existing, err := e.ledger.Commissions.BySaleTx(ctx, tx, sale.ID)
		if err != nil {
			return err
		}
		bySeller := make(map[string]model.Commission, len(existing))
		for _, c := range existing {
			bySeller[c.SellerID] = c
		}

		for _, g := range groups {
			share, credited, err := e.payCommission(ctx, tx, sale.ID, g, bySeller)
			if err != nil {
				return err
			}
			if !credited {
				continue
			}
			if err := e.ledger.Users.AdjustBalanceTx(ctx, tx, g.SellerID, share, 1); err != nil {
				return err
			}
			paid++
			total += share
		}
		return nil
	})
	if errors.Is(err, errNotPending) {
		return e.afterLostRace(ctx, ref)
	}
	if err != nil {
		settlementsTotal.WithLabelValues("error").Inc()
		log.Error("settlement rolled back", zap.Error(err))
		return SettlementResult{}, apperr.Settlement(err, "settle sale").WithDetail("transactionId", ref)
	}

	settlementsTotal.WithLabelValues("settled").Inc()
	distributedCents.Add(float64(total))
	log.Info("sale settled", zap.String("sale_id", sale.ID), zap.Int("commissions_paid", paid), zap.Int64("distributed_cents", total))

	publishAll(ctx, e.events, log, queue.NotificationEvent{
		TransactionID: ref,
		EventType:     queue.EventPaymentConfirmed,
		SaleID:        sale.ID,
		BuyerID:       sale.BuyerID,
		SellerIDs:     sellers,
		Amount:        money.FromCents(sale.TotalCents),
		OccurredAt:    e.now(),
	})

	return SettlementResult{
		SaleID:           sale.ID,
		TransactionID:    ref,
		Status:           model.SalePaid,
		CommissionsPaid:  paid,
		TotalDistributed: money.FromCents(total),
	}, nil
}

// payCommission makes the (sale, seller) commission paid.  It returns the
// seller share to credit and whether this call is the one that paid it.
func (e *SettlementEngine) payCommission(ctx context.Context, tx *sql.Tx, saleID string, g sellerGross, existing map[string]model.Commission) (int64, bool, error) {
	now := e.now()
	if c, ok := existing[g.SellerID]; ok {
		if c.Status != model.CommissionPending {
			e.logger.Warn("commission already settled", zap.String("commission_id", c.ID), zap.String("status", string(c.Status)))
			return 0, false, nil
		}
		won, err := e.ledger.Commissions.MarkPaidTx(ctx, tx, c.ID, now)
		return c.SellerShareCents, won, err
	}
	platform, seller := commission.ComputeCents(g.GrossCents, e.policy.CommissionPercent)
	row := model.Commission{
		SaleID:             saleID,
		SellerID:           g.SellerID,
		GrossCents:         g.GrossCents,
		SellerShareCents:   seller,
		PlatformShareCents: platform,
		Percent:            e.policy.CommissionPercent,
		Status:             model.CommissionPaid,
		ProcessedAt:        &now,
	}
	if err := e.ledger.Commissions.InsertTx(ctx, tx, &row); err != nil {
		return 0, false, err
	}
	return seller, true, nil
}

// alreadyPaid reports a settled sale without mutating anything.
func (e *SettlementEngine) alreadyPaid(ctx context.Context, sale model.Sale) (SettlementResult, error) {
	rows, err := e.ledger.Commissions.BySale(ctx, sale.ID)
	if err != nil {
		return SettlementResult{}, apperr.Settlement(err, "load commissions")
	}
	var (
		n     int
		total int64
	)
	for _, c := range rows {
		if c.Status == model.CommissionPaid || c.Status == model.CommissionWithdrawn {
			n++
			total += c.SellerShareCents
		}
	}
	settlementsTotal.WithLabelValues("already_paid").Inc()
	return SettlementResult{
		SaleID:           sale.ID,
		TransactionID:    sale.TransactionRef,
		Status:           model.SalePaid,
		CommissionsPaid:  n,
		TotalDistributed: money.FromCents(total),
		AlreadyPaid:      true,
	}, nil
}

// afterLostRace re-reads a sale whose conditional update matched nothing.
func (e *SettlementEngine) afterLostRace(ctx context.Context, ref string) (SettlementResult, error) {
	sale, err := e.ledger.Sales.GetByRef(ctx, ref)
	if err != nil {
		return SettlementResult{}, apperr.Settlement(err, "reload sale")
	}
	if sale.Status == model.SalePaid {
		e.logger.Info("concurrent settlement detected", zap.String("transaction_id", ref))
		return e.alreadyPaid(ctx, sale)
	}
	settlementsTotal.WithLabelValues("rejected").Inc()
	return SettlementResult{}, apperr.InvalidState("sale is %s", sale.Status).WithDetail("transactionId", ref)
}

// fail moves a pending sale to failed and reports the payment error.
func (e *SettlementEngine) fail(ctx context.Context, sale model.Sale, reason string) (SettlementResult, error) {
	ok, err := e.ledger.Sales.MarkFailed(ctx, e.ledger.DB, sale.ID, reason)
	if err != nil {
		return SettlementResult{}, apperr.Settlement(err, "mark sale failed")
	}
	if !ok {
		return e.afterLostRace(ctx, sale.TransactionRef)
	}
	settlementsTotal.WithLabelValues("failed").Inc()
	e.logger.Info("sale failed", zap.String("transaction_id", sale.TransactionRef), zap.String("reason", reason))
	return SettlementResult{}, apperr.Payment(nil, "%s", reason).WithDetail("transactionId", sale.TransactionRef)
}

// sellerGross is one seller's subtotal within a sale.
type sellerGross struct {
	SellerID   string
	GrossCents int64
}

// groupBySeller sums line totals per seller, ordered by seller id so
// that concurrent transactions touch user rows in the same order.
func groupBySeller(items []model.SaleItem) []sellerGross {
	sums := make(map[string]int64)
	for _, it := range items {
		sums[it.SellerID] += it.LineTotalCents()
	}
	out := make([]sellerGross, 0, len(sums))
	for id, g := range sums {
		out = append(out, sellerGross{SellerID: id, GrossCents: g})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SellerID < out[j].SellerID })
	return out
}

func sellerIDs(groups []sellerGross) []string {
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.SellerID
	}
	return ids
}
