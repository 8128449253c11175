package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/formation-market/internal/model"
	"github.com/iliyamo/formation-market/internal/service"
)

// SalesHandler exposes checkout, confirmation, cancellation and lookup.
type SalesHandler struct {
	Recorder   *service.SaleRecorder
	Settlement *service.SettlementEngine
	Reversal   *service.ReversalEngine
	Queries    *service.Queries
}

func NewSalesHandler(r *service.SaleRecorder, s *service.SettlementEngine, rev *service.ReversalEngine, q *service.Queries) *SalesHandler {
	return &SalesHandler{Recorder: r, Settlement: s, Reversal: rev, Queries: q}
}

type checkoutItemReq struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  int64           `json:"quantity" validate:"min=1"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type checkoutReq struct {
	BuyerID     string            `json:"buyerId"`
	Total       decimal.Decimal   `json:"total"`
	Items       []checkoutItemReq `json:"items" validate:"required,min=1,dive"`
	PaymentMode string            `json:"paymentMode" validate:"required"`
	Country     string            `json:"country"`
}

type confirmReq struct {
	TransactionID string `json:"transactionId" validate:"required"`
	Status        string `json:"status"`
	GatewayRef    string `json:"gatewayRef"`
}

type cancelReq struct {
	TransactionID string `json:"transactionId" validate:"required"`
	Motif         string `json:"motif" validate:"required"`
	UserID        string `json:"userId"`
}

// Checkout records a sale for the caller and attempts the payment.
func (h *SalesHandler) Checkout(c echo.Context) error {
	var req checkoutReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	buyer, err := actingAs(c, req.BuyerID)
	if err != nil {
		return err
	}
	in := service.CheckoutInput{
		BuyerID:     buyer,
		Total:       req.Total,
		PaymentMode: req.PaymentMode,
		Country:     req.Country,
		Items:       make([]service.CheckoutItem, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.CheckoutItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	res, err := h.Recorder.Checkout(c.Request().Context(), in)
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if res.Status != model.SalePaid {
		status = http.StatusAccepted
	}
	return c.JSON(status, struct {
		Success bool `json:"success"`
		service.CheckoutResult
	}{true, res})
}

// Confirm is the gateway callback that settles a pending sale.  Repeated
// confirmations answer 200 with alreadyPaid set.
func (h *SalesHandler) Confirm(c echo.Context) error {
	var req confirmReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.Settlement.Settle(c.Request().Context(), service.SettleInput{
		TransactionRef: req.TransactionID,
		Status:         req.Status,
		GatewayRef:     req.GatewayRef,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		service.SettlementResult
	}{true, res})
}

// Cancel reverses a sale on behalf of its buyer.
func (h *SalesHandler) Cancel(c echo.Context) error {
	var req cancelReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	requester, err := actingAs(c, req.UserID)
	if err != nil {
		return err
	}
	res, err := h.Reversal.Cancel(c.Request().Context(), service.CancelInput{
		TransactionRef: req.TransactionID,
		Reason:         req.Motif,
		RequesterID:    requester,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		service.CancelResult
	}{true, res})
}

// GetSale returns one sale with its items, commissions and refund.
func (h *SalesHandler) GetSale(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return err
	}
	v, err := h.Queries.Sale(c.Request().Context(), c.Param("transactionId"), uid, isAdmin(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "sale": v})
}
