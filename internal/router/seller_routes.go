package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/formation-market/internal/handler"
	"github.com/iliyamo/formation-market/internal/middleware"
	"github.com/iliyamo/formation-market/internal/model"
)

// SellerHandlers groups the seller-facing handlers.
type SellerHandlers struct {
	Products    *handler.ProductHandler
	Dashboard   *handler.DashboardHandler
	Withdrawals *handler.WithdrawalHandler
}

// RegisterSeller registers listings, the dashboard and withdrawals.  All
// routes except the public product read require SELLER or ADMIN.  cache
// wraps the dashboard reads; limit wraps withdrawal creation.
func RegisterSeller(e *echo.Echo, h SellerHandlers, jwtSecret string, limit, cache echo.MiddlewareFunc) {
	e.GET("/v1/products/:id", h.Products.Get)

	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleSeller, model.RoleAdmin),
	)

	// ---- Listings ----
	g.POST("/products", h.Products.Create)

	// ---- Dashboard ----
	g.GET("/sellers/me/balance", h.Dashboard.Balance, cache)
	g.GET("/sellers/me/commissions", h.Dashboard.Commissions, cache)

	// ---- Withdrawals ----
	g.POST("/withdrawals", h.Withdrawals.Create, limit)
	g.GET("/withdrawals", h.Withdrawals.List)
}
