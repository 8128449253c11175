package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/formation-market/internal/model"
	"github.com/iliyamo/formation-market/internal/service"
)

// DashboardHandler serves the seller's own figures.
type DashboardHandler struct {
	Queries *service.Queries
}

func NewDashboardHandler(q *service.Queries) *DashboardHandler {
	return &DashboardHandler{Queries: q}
}

func (h *DashboardHandler) Balance(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return err
	}
	v, err := h.Queries.Balance(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		service.BalanceView
	}{true, v})
}

// Commissions lists the caller's commissions, optionally by ?status=.
func (h *DashboardHandler) Commissions(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return err
	}
	limit, offset, err := page(c)
	if err != nil {
		return err
	}
	rows, err := h.Queries.Commissions(c.Request().Context(), uid, model.CommissionStatus(c.QueryParam("status")), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "commissions": rows})
}
