package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/formation-market/internal/apperr"
	"github.com/iliyamo/formation-market/internal/commission"
	"github.com/iliyamo/formation-market/internal/config"
	"github.com/iliyamo/formation-market/internal/model"
	"github.com/iliyamo/formation-market/internal/money"
	"github.com/iliyamo/formation-market/internal/payment"
	"github.com/iliyamo/formation-market/internal/repository"
)

// CheckoutItem is one requested line.
type CheckoutItem struct {
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// CheckoutInput is a buyer's checkout request.
type CheckoutInput struct {
	BuyerID     string
	Total       decimal.Decimal
	Items       []CheckoutItem
	PaymentMode string
	Country     string
}

// SellerCommission is the split of one seller's subtotal in a sale.
type SellerCommission struct {
	SellerID      string                 `json:"sellerId"`
	Gross         decimal.Decimal        `json:"gross"`
	Percent       decimal.Decimal        `json:"percent"`
	PlatformShare decimal.Decimal        `json:"platformShare"`
	SellerShare   decimal.Decimal        `json:"sellerShare"`
	Status        model.CommissionStatus `json:"status"`
}

// CheckoutResult is the outcome of Checkout.
type CheckoutResult struct {
	TransactionID string             `json:"transactionId"`
	SaleID        string             `json:"saleId"`
	Status        model.SaleStatus   `json:"status"`
	Commissions   []SellerCommission `json:"commissions"`
}

// SaleRecorder validates a checkout, persists the pending sale, charges
// the buyer and hands successful payments to the settlement engine.
type SaleRecorder struct {
	ledger     *repository.Ledger
	gateway    payment.Gateway
	settlement *SettlementEngine
	policy     config.SettlementPolicy
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewSaleRecorder wires the recorder.  timeout bounds each gateway call.
func NewSaleRecorder(l *repository.Ledger, gw payment.Gateway, settlement *SettlementEngine, policy config.SettlementPolicy, timeout time.Duration, logger *zap.Logger) *SaleRecorder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SaleRecorder{
		ledger:     l,
		gateway:    gw,
		settlement: settlement,
		policy:     policy,
		timeout:    timeout,
		logger:     logger.Named("checkout"),
		now:        utcNow,
	}
}

// validate checks everything that does not need the database.
func (r *SaleRecorder) validate(in CheckoutInput) error {
	p := r.policy
	if !money.HasValidScale(in.Total) {
		return apperr.Validation("total must have at most two decimals")
	}
	if in.Total.LessThan(p.SaleMinTotal) || in.Total.GreaterThan(p.SaleMaxTotal) {
		return apperr.Validation("total must be between %s and %s", p.SaleMinTotal.StringFixed(2), p.SaleMaxTotal.StringFixed(2))
	}
	if strings.TrimSpace(in.BuyerID) == "" {
		return apperr.Validation("buyerId is required")
	}
	if len(in.Items) == 0 {
		return apperr.Validation("at least one item is required")
	}
	sum := decimal.Zero
	for i, it := range in.Items {
		switch {
		case strings.TrimSpace(it.ProductID) == "":
			return apperr.Validation("items[%d].productId is required", i)
		case it.Quantity < 1:
			return apperr.Validation("items[%d].quantity must be at least 1", i)
		case it.UnitPrice.IsNegative():
			return apperr.Validation("items[%d].unitPrice must not be negative", i)
		case !money.HasValidScale(it.UnitPrice):
			return apperr.Validation("items[%d].unitPrice must have at most two decimals", i)
		}
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}
	if sum.Sub(in.Total).Abs().GreaterThan(p.TotalTolerance) {
		return apperr.Validation("inconsistent total").
			WithDetail("total", in.Total).
			WithDetail("itemsTotal", sum)
	}
	if !model.PaymentMode(in.PaymentMode).Valid() {
		return apperr.Validation("unsupported payment mode %q", in.PaymentMode)
	}
	return nil
}

// Checkout records the sale and attempts the payment.  Validation
// failures write nothing.  A rejected payment leaves a failed sale behind
// for audit and returns a payment error carrying the transactionId.
func (r *SaleRecorder) Checkout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	if err := r.validate(in); err != nil {
		checkoutsTotal.WithLabelValues("invalid").Inc()
		return CheckoutResult{}, err
	}

	buyer, err := r.ledger.Users.GetByID(ctx, in.BuyerID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return CheckoutResult{}, apperr.NotFound("buyer %s not found", in.BuyerID)
		}
		return CheckoutResult{}, apperr.Settlement(err, "load buyer")
	}
	switch model.PaymentMode(in.PaymentMode) {
	case model.PaymentMobileMoney:
		if buyer.Phone == "" {
			return CheckoutResult{}, apperr.Validation("mobile money payment requires a phone number on the account")
		}
	case model.PaymentCard:
		if buyer.Email == "" {
			return CheckoutResult{}, apperr.Validation("card payment requires an email on the account")
		}
	}

	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := r.ledger.Products.GetByIDs(ctx, ids)
	if err != nil {
		return CheckoutResult{}, apperr.Settlement(err, "load products")
	}
	now := r.now()
	items := make([]model.SaleItem, 0, len(in.Items))
	var grossCents int64
	for _, it := range in.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return CheckoutResult{}, apperr.NotFound("product %s not found", it.ProductID)
		}
		unit := money.ToCents(it.UnitPrice)
		if unit != p.EffectivePriceCents(now) {
			return CheckoutResult{}, apperr.Validation("price of product %s changed", it.ProductID).
				WithDetail("productId", it.ProductID).
				WithDetail("currentPrice", money.FromCents(p.EffectivePriceCents(now)))
		}
		item := model.SaleItem{
			ProductID:      p.ID,
			SellerID:       p.SellerID,
			Quantity:       it.Quantity,
			UnitPriceCents: unit,
		}
		grossCents += item.LineTotalCents()
		items = append(items, item)
	}

	// The declared total only passes validation; the ledger and the
	// gateway always see the item sum.
	sale := model.Sale{
		BuyerID:        buyer.ID,
		TotalCents:     grossCents,
		PaymentMode:    in.PaymentMode,
		Country:        strings.ToUpper(strings.TrimSpace(in.Country)),
		TransactionRef: uuid.NewString(),
	}
	err = r.ledger.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := r.ledger.Sales.CreateTx(ctx, tx, &sale); err != nil {
			return err
		}
		for i := range items {
			items[i].SaleID = sale.ID
		}
		return r.ledger.Sales.CreateItemsBulkTx(ctx, tx, items)
	})
	if err != nil {
		checkoutsTotal.WithLabelValues("error").Inc()
		return CheckoutResult{}, apperr.Settlement(err, "record sale")
	}
	log := r.logger.With(zap.String("transaction_id", sale.TransactionRef), zap.String("sale_id", sale.ID))
	log.Info("sale recorded", zap.Int64("total_cents", sale.TotalCents), zap.Int("items", len(items)))

	res, chargeErr := r.charge(ctx, sale, buyer)
	if chargeErr != nil || res.Status == payment.StatusFailed {
		reason := res.Message
		if chargeErr != nil {
			reason = chargeErr.Error()
		}
		if reason == "" {
			reason = "payment rejected"
		}
		if _, err := r.ledger.Sales.MarkFailed(ctx, r.ledger.DB, sale.ID, reason); err != nil {
			log.Error("mark sale failed", zap.Error(err))
		}
		checkoutsTotal.WithLabelValues("payment_failed").Inc()
		log.Info("payment failed", zap.String("reason", reason))
		return CheckoutResult{}, apperr.Payment(chargeErr, "payment failed: %s", reason).
			WithDetail("transactionId", sale.TransactionRef)
	}

	out := CheckoutResult{
		TransactionID: sale.TransactionRef,
		SaleID:        sale.ID,
		Status:        model.SalePending,
	}
	if res.Status == payment.StatusPending {
		if res.GatewayRef != "" {
			if err := r.ledger.Sales.SetGatewayRef(ctx, sale.ID, res.GatewayRef); err != nil {
				log.Warn("store gateway ref", zap.Error(err))
			}
		}
		checkoutsTotal.WithLabelValues("pending").Inc()
		out.Commissions = r.preview(items, model.CommissionPending)
		return out, nil
	}

	if _, err := r.settlement.Settle(ctx, SettleInput{TransactionRef: sale.TransactionRef, GatewayRef: res.GatewayRef}); err != nil {
		checkoutsTotal.WithLabelValues("settlement_failed").Inc()
		return CheckoutResult{}, err
	}
	checkoutsTotal.WithLabelValues("paid").Inc()
	out.Status = model.SalePaid
	out.Commissions = r.preview(items, model.CommissionPaid)
	return out, nil
}

func (r *SaleRecorder) charge(ctx context.Context, sale model.Sale, buyer model.User) (payment.ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	start := time.Now()
	res, err := r.gateway.Charge(ctx, payment.ChargeRequest{
		TransactionRef: sale.TransactionRef,
		AmountCents:    sale.TotalCents,
		PaymentMode:    sale.PaymentMode,
		Country:        sale.Country,
		Phone:          buyer.Phone,
		Email:          buyer.Email,
	})
	status := string(res.Status)
	if err != nil {
		status = "error"
	}
	gatewayDuration.WithLabelValues(r.gateway.Name(), status).Observe(time.Since(start).Seconds())
	return res, err
}

// preview computes the per-seller split the settlement engine applies.
func (r *SaleRecorder) preview(items []model.SaleItem, status model.CommissionStatus) []SellerCommission {
	groups := groupBySeller(items)
	out := make([]SellerCommission, 0, len(groups))
	for _, g := range groups {
		s := commission.Compute(money.FromCents(g.GrossCents), r.policy.CommissionPercent)
		out = append(out, SellerCommission{
			SellerID:      g.SellerID,
			Gross:         s.Gross,
			Percent:       s.Percent,
			PlatformShare: s.PlatformShare,
			SellerShare:   s.SellerShare,
			Status:        status,
		})
	}
	return out
}
