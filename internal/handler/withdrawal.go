package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/formation-market/internal/service"
)

// WithdrawalHandler exposes payouts and their history.
type WithdrawalHandler struct {
	Payout  *service.PayoutEngine
	Queries *service.Queries
}

func NewWithdrawalHandler(p *service.PayoutEngine, q *service.Queries) *WithdrawalHandler {
	return &WithdrawalHandler{Payout: p, Queries: q}
}

type withdrawReq struct {
	UserID        string          `json:"userId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" validate:"required"`
	AccountNumber string          `json:"accountNumber" validate:"required"`
}

// Create pays out part of the caller's balance.
func (h *WithdrawalHandler) Create(c echo.Context) error {
	var req withdrawReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	uid, err := actingAs(c, req.UserID)
	if err != nil {
		return err
	}
	res, err := h.Payout.Withdraw(c.Request().Context(), service.WithdrawInput{
		UserID:        uid,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, struct {
		Success bool `json:"success"`
		service.WithdrawResult
	}{true, res})
}

// List returns the caller's withdrawals, newest first.
func (h *WithdrawalHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return err
	}
	limit, offset, err := page(c)
	if err != nil {
		return err
	}
	rows, err := h.Queries.Withdrawals(c.Request().Context(), uid, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "withdrawals": rows})
}
