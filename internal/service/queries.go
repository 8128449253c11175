package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/formation-market/internal/apperr"
	"github.com/iliyamo/formation-market/internal/model"
	"github.com/iliyamo/formation-market/internal/money"
	"github.com/iliyamo/formation-market/internal/repository"
)

// Ledger read models returned by Queries.

type SaleItemView struct {
	ProductID string          `json:"productId"`
	SellerID  string          `json:"sellerId"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Delivered bool            `json:"delivered"`
}

type CommissionView struct {
	ID            string                 `json:"id"`
	SaleID        string                 `json:"saleId"`
	SellerID      string                 `json:"sellerId"`
	Gross         decimal.Decimal        `json:"gross"`
	Percent       decimal.Decimal        `json:"percent"`
	PlatformShare decimal.Decimal        `json:"platformShare"`
	SellerShare   decimal.Decimal        `json:"sellerShare"`
	Withdrawn     decimal.Decimal        `json:"withdrawn"`
	Status        model.CommissionStatus `json:"status"`
	CreatedAt     time.Time              `json:"createdAt"`
	ProcessedAt   *time.Time             `json:"processedAt,omitempty"`
}

type RefundView struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}

type SaleView struct {
	SaleID        string           `json:"saleId"`
	TransactionID string           `json:"transactionId"`
	BuyerID       string           `json:"buyerId"`
	Total         decimal.Decimal  `json:"total"`
	PaymentMode   string           `json:"paymentMode"`
	Country       string           `json:"country"`
	Status        model.SaleStatus `json:"status"`
	FailureReason *string          `json:"failureReason,omitempty"`
	CancelReason  *string          `json:"cancelReason,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	ConfirmedAt   *time.Time       `json:"confirmedAt,omitempty"`
	CancelledAt   *time.Time       `json:"cancelledAt,omitempty"`
	Items         []SaleItemView   `json:"items"`
	Commissions   []CommissionView `json:"commissions"`
	Refund        *RefundView      `json:"refund,omitempty"`
}

// BalanceView compares the cached balance projection with the balance
// recomputed from commissions.  Consistent is false when they diverge.
type BalanceView struct {
	SellerID         string          `json:"sellerId"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
	SaleCount        int64           `json:"saleCount"`
	Consistent       bool            `json:"consistent"`
	Totals           []StatusTotal   `json:"totals"`
}

type StatusTotal struct {
	Status      model.CommissionStatus `json:"status"`
	Count       int64                  `json:"count"`
	SellerShare decimal.Decimal        `json:"sellerShare"`
	Withdrawn   decimal.Decimal        `json:"withdrawn"`
}

type WithdrawalView struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	PaymentMethod string          `json:"paymentMethod"`
	AccountNumber string          `json:"accountNumber"`
	Status        string          `json:"status"`
	Note          string          `json:"note"`
	RequestedAt   time.Time       `json:"requestedAt"`
	ProcessedAt   *time.Time      `json:"processedAt,omitempty"`
}

// Queries serves the read side: sale lookup, seller dashboard and
// withdrawal history.
type Queries struct {
	ledger *repository.Ledger
	logger *zap.Logger
}

func NewQueries(l *repository.Ledger, logger *zap.Logger) *Queries {
	return &Queries{ledger: l, logger: logger.Named("queries")}
}

// Sale returns the sale identified by ref.  Only the buyer, a seller
// with items in the sale, or an admin may read it.
func (q *Queries) Sale(ctx context.Context, ref, requesterID string, admin bool) (SaleView, error) {
	ref = strings.TrimSpace(ref)
	sale, err := q.ledger.Sales.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			return SaleView{}, apperr.NotFound("sale %s not found", ref)
		}
		return SaleView{}, apperr.Settlement(err, "load sale")
	}
	items, err := q.ledger.Sales.ItemsBySale(ctx, sale.ID)
	if err != nil {
		return SaleView{}, apperr.Settlement(err, "load items")
	}
	allowed := admin || sale.BuyerID == requesterID
	for _, it := range items {
		if it.SellerID == requesterID {
			allowed = true
		}
	}
	if !allowed {
		return SaleView{}, apperr.Permission("not allowed to view this sale")
	}
	rows, err := q.ledger.Commissions.BySale(ctx, sale.ID)
	if err != nil {
		return SaleView{}, apperr.Settlement(err, "load commissions")
	}
	refund, err := q.ledger.Refunds.GetBySale(ctx, sale.ID)
	if err != nil {
		return SaleView{}, apperr.Settlement(err, "load refund")
	}

	v := SaleView{
		SaleID:        sale.ID,
		TransactionID: sale.TransactionRef,
		BuyerID:       sale.BuyerID,
		Total:         money.FromCents(sale.TotalCents),
		PaymentMode:   sale.PaymentMode,
		Country:       sale.Country,
		Status:        sale.Status,
		FailureReason: sale.FailureReason,
		CancelReason:  sale.CancelReason,
		CreatedAt:     sale.CreatedAt,
		ConfirmedAt:   sale.ConfirmedAt,
		CancelledAt:   sale.CancelledAt,
		Items:         make([]SaleItemView, 0, len(items)),
		Commissions:   commissionViews(rows),
	}
	for _, it := range items {
		v.Items = append(v.Items, SaleItemView{
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			Quantity:  it.Quantity,
			UnitPrice: money.FromCents(it.UnitPriceCents),
			Delivered: it.Delivered,
		})
	}
	if refund != nil {
		v.Refund = &RefundView{
			ID:        refund.ID,
			Amount:    money.FromCents(refund.AmountCents),
			Reason:    refund.Reason,
			Status:    refund.Status,
			CreatedAt: refund.CreatedAt,
		}
	}
	return v, nil
}

func commissionViews(rows []model.Commission) []CommissionView {
	out := make([]CommissionView, 0, len(rows))
	for _, c := range rows {
		out = append(out, CommissionView{
			ID:            c.ID,
			SaleID:        c.SaleID,
			SellerID:      c.SellerID,
			Gross:         money.FromCents(c.GrossCents),
			Percent:       c.Percent,
			PlatformShare: money.FromCents(c.PlatformShareCents),
			SellerShare:   money.FromCents(c.SellerShareCents),
			Withdrawn:     money.FromCents(c.WithdrawnCents),
			Status:        c.Status,
			CreatedAt:     c.CreatedAt,
			ProcessedAt:   c.ProcessedAt,
		})
	}
	return out
}

// Balance returns the seller dashboard figures.
func (q *Queries) Balance(ctx context.Context, sellerID string) (BalanceView, error) {
	cached, sales, err := q.ledger.Users.BalanceTx(ctx, q.ledger.DB, sellerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return BalanceView{}, apperr.NotFound("user %s not found", sellerID)
		}
		return BalanceView{}, apperr.Settlement(err, "load balance")
	}
	available, err := q.ledger.Commissions.AvailableForSeller(ctx, q.ledger.DB, sellerID)
	if err != nil {
		return BalanceView{}, apperr.Settlement(err, "compute balance")
	}
	totals, err := q.ledger.Commissions.TotalsBySeller(ctx, sellerID)
	if err != nil {
		return BalanceView{}, apperr.Settlement(err, "load totals")
	}
	v := BalanceView{
		SellerID:         sellerID,
		Balance:          money.FromCents(cached),
		AvailableBalance: money.FromCents(available),
		SaleCount:        sales,
		Consistent:       cached == available,
		Totals:           make([]StatusTotal, 0, len(totals)),
	}
	for _, t := range totals {
		v.Totals = append(v.Totals, StatusTotal{
			Status:      t.Status,
			Count:       t.Count,
			SellerShare: money.FromCents(t.SellerShareCents),
			Withdrawn:   money.FromCents(t.WithdrawnCents),
		})
	}
	if !v.Consistent {
		q.logger.Warn("balance projection drift",
			zap.String("seller_id", sellerID), zap.Int64("cached_cents", cached), zap.Int64("available_cents", available))
	}
	return v, nil
}

// Commissions pages through a seller's commissions.
func (q *Queries) Commissions(ctx context.Context, sellerID string, status model.CommissionStatus, limit, offset int) ([]CommissionView, error) {
	switch status {
	case "", model.CommissionPending, model.CommissionPaid, model.CommissionCancelled, model.CommissionWithdrawn:
	default:
		return nil, apperr.Validation("unknown commission status %q", status)
	}
	rows, err := q.ledger.Commissions.ListBySeller(ctx, sellerID, status, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, apperr.Settlement(err, "list commissions")
	}
	return commissionViews(rows), nil
}

// Withdrawals pages through a user's withdrawal history.
func (q *Queries) Withdrawals(ctx context.Context, userID string, limit, offset int) ([]WithdrawalView, error) {
	rows, err := q.ledger.Withdrawals.ListByUser(ctx, userID, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, apperr.Settlement(err, "list withdrawals")
	}
	out := make([]WithdrawalView, 0, len(rows))
	for _, w := range rows {
		out = append(out, WithdrawalView{
			ID:            w.ID,
			Amount:        money.FromCents(w.AmountCents),
			Fee:           money.FromCents(w.FeeCents),
			PaymentMethod: w.PaymentMethod,
			AccountNumber: w.AccountNumber,
			Status:        w.Status,
			Note:          w.Note,
			RequestedAt:   w.RequestedAt,
			ProcessedAt:   w.ProcessedAt,
		})
	}
	return out, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > 100:
		return 100
	}
	return limit
}
