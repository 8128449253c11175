package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/formation-market/internal/handler"
	"github.com/iliyamo/formation-market/internal/middleware"
	"github.com/iliyamo/formation-market/internal/model"
)

// anyRole admits every authenticated account.
var anyRole = []string{model.RoleBuyer, model.RoleSeller, model.RoleAdmin}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the account endpoints.  register, login, refresh
// and logout live under /v1/auth without a session; /v1/me needs one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(anyRole...))
	auth.GET("/me", a.Me)
}
