package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/formation-market/internal/handler"
	"github.com/iliyamo/formation-market/internal/middleware"
)

// RegisterSales registers checkout, confirmation, cancellation and sale
// lookup.  limit wraps the money-moving endpoints.  The confirmation
// callback is unauthenticated and guarded by callbackToken instead.
func RegisterSales(e *echo.Echo, h *handler.SalesHandler, jwtSecret, callbackToken string, limit echo.MiddlewareFunc) {
	e.POST("/v1/payments/confirm", h.Confirm, middleware.CallbackToken(callbackToken))

	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(anyRole...),
	)
	g.POST("/checkout", h.Checkout, limit)
	g.POST("/sales/cancel", h.Cancel, limit)
	g.GET("/sales/:transactionId", h.GetSale)
}
