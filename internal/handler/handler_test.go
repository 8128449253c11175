package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/formation-market/internal/config"
	"github.com/iliyamo/formation-market/internal/middleware"
	"github.com/iliyamo/formation-market/internal/payment"
	"github.com/iliyamo/formation-market/internal/queue"
	"github.com/iliyamo/formation-market/internal/repository"
	"github.com/iliyamo/formation-market/internal/service"
	"github.com/iliyamo/formation-market/internal/testutil"
)

const jwtSecret = "handler-test-secret"

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	db := testutil.NewDB(t)
	l := repository.NewLedger(db)
	log := zaptest.NewLogger(t)

	cfg := config.Config{JWTSecret: jwtSecret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4}
	settlementPolicy := config.SettlementPolicy{
		CommissionPercent: decimal.NewFromInt(15),
		SaleMinTotal:      decimal.NewFromInt(100),
		SaleMaxTotal:      decimal.NewFromInt(5000000),
		TotalTolerance:    decimal.RequireFromString("0.01"),
	}
	withdrawalPolicy := config.WithdrawalPolicy{
		MinAmount:   decimal.NewFromInt(500),
		FeePercent:  decimal.NewFromInt(2),
		FixedFee:    decimal.NewFromInt(100),
		Consumption: config.PolicyWholeRow,
	}
	events := queue.NopPublisher{}
	settlement := service.NewSettlementEngine(l, settlementPolicy, events, log)
	queries := service.NewQueries(l, log)
	sales := NewSalesHandler(
		service.NewSaleRecorder(l, payment.Sandbox{}, settlement, settlementPolicy, time.Second, log),
		settlement,
		service.NewReversalEngine(l, events, log),
		queries,
	)
	auth := NewAuthHandler(cfg, l.Users, repository.NewTokenRepo(db))
	products := NewProductHandler(service.NewCatalog(l))
	dashboard := NewDashboardHandler(queries)
	withdrawals := NewWithdrawalHandler(service.NewPayoutEngine(l, withdrawalPolicy, log), queries)

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(log)

	e.POST("/v1/auth/register", auth.Register)
	e.POST("/v1/auth/login", auth.Login)
	e.POST("/v1/auth/refresh", auth.Refresh)
	e.POST("/v1/auth/logout", auth.Logout)
	e.POST("/v1/payments/confirm", sales.Confirm, middleware.CallbackToken("cb-token"))
	e.GET("/v1/products/:id", products.Get)

	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.GET("/me", auth.Me)
	g.POST("/checkout", sales.Checkout)
	g.POST("/sales/cancel", sales.Cancel)
	g.GET("/sales/:transactionId", sales.GetSale)
	g.POST("/products", products.Create)
	g.GET("/sellers/me/balance", dashboard.Balance)
	g.GET("/sellers/me/commissions", dashboard.Commissions)
	g.POST("/withdrawals", withdrawals.Create)
	g.GET("/withdrawals", withdrawals.List)
	return e
}

func call(t *testing.T, e *echo.Echo, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

// register creates an account and returns its id and access token.
func register(t *testing.T, e *echo.Echo, email, phone, role string) (string, string) {
	t.Helper()
	code, out := call(t, e, http.MethodPost, "/v1/auth/register", "", echo.Map{
		"email": email, "password": "password123", "phone": phone, "role": role,
	})
	require.Equal(t, http.StatusCreated, code, out)
	user := out["user"].(map[string]any)
	access := out["access"].(map[string]any)
	return user["id"].(string), access["token"].(string)
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	e := newServer(t)
	_, sellerTok := register(t, e, "seller@example.com", "", "SELLER")
	_, buyerTok := register(t, e, "buyer@example.com", "+22990000000", "BUYER")

	code, out := call(t, e, http.MethodPost, "/v1/products", sellerTok, echo.Map{"title": "Go en production", "price": 10000})
	require.Equal(t, http.StatusCreated, code, out)
	productID := out["product"].(map[string]any)["id"].(string)

	code, out = call(t, e, http.MethodGet, "/v1/products/"+productID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "10000", out["product"].(map[string]any)["effectivePrice"])

	code, out = call(t, e, http.MethodPost, "/v1/checkout", buyerTok, echo.Map{
		"total":       10000,
		"items":       []echo.Map{{"productId": productID, "quantity": 1, "unitPrice": 10000}},
		"paymentMode": "mobile_money",
		"country":     "BJ",
	})
	require.Equal(t, http.StatusCreated, code, out)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "paid", out["status"])
	ref := out["transactionId"].(string)
	commissions := out["commissions"].([]any)
	require.Len(t, commissions, 1)
	assert.Equal(t, "8500", commissions[0].(map[string]any)["sellerShare"])
	assert.Equal(t, "1500", commissions[0].(map[string]any)["platformShare"])

	code, out = call(t, e, http.MethodPost, "/v1/payments/confirm", "", echo.Map{"transactionId": ref})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, out = call(t, e, http.MethodGet, "/v1/sellers/me/balance", sellerTok, nil)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "8500", out["balance"])
	assert.Equal(t, true, out["consistent"])

	code, out = call(t, e, http.MethodPost, "/v1/withdrawals", sellerTok, echo.Map{
		"amount": 5000, "paymentMethod": "mtn", "accountNumber": "22990000001",
	})
	require.Equal(t, http.StatusCreated, code, out)
	assert.Equal(t, "200", out["fee"])
	assert.Equal(t, "0", out["newBalance"])

	code, out = call(t, e, http.MethodGet, "/v1/withdrawals", sellerTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["withdrawals"], 1)

	code, out = call(t, e, http.MethodPost, "/v1/sales/cancel", sellerTok, echo.Map{"transactionId": ref, "motif": "x"})
	assert.Equal(t, http.StatusForbidden, code, out)

	code, out = call(t, e, http.MethodPost, "/v1/sales/cancel", buyerTok, echo.Map{"transactionId": ref, "motif": "client request"})
	require.Equal(t, http.StatusOK, code, out)
	assert.NotEmpty(t, out["refundId"])

	code, out = call(t, e, http.MethodPost, "/v1/sales/cancel", buyerTok, echo.Map{"transactionId": ref, "motif": "again"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state", out["error"])

	code, out = call(t, e, http.MethodGet, "/v1/sales/"+ref, buyerTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cancelled", out["sale"].(map[string]any)["status"])
}

func TestCheckoutErrorsOverHTTP(t *testing.T) {
	e := newServer(t)
	_, sellerTok := register(t, e, "seller@example.com", "", "SELLER")
	_, buyerTok := register(t, e, "buyer@example.com", "+22990000000", "BUYER")
	otherID, _ := register(t, e, "other@example.com", "+22990000001", "BUYER")

	_, out := call(t, e, http.MethodPost, "/v1/products", sellerTok, echo.Map{"title": "Petit module", "price": 50})
	productID := out["product"].(map[string]any)["id"].(string)

	code, out := call(t, e, http.MethodPost, "/v1/checkout", buyerTok, echo.Map{
		"total": 50, "items": []echo.Map{{"productId": productID, "quantity": 1, "unitPrice": 50}}, "paymentMode": "card",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", out["error"])
	assert.Equal(t, false, out["success"])

	code, out = call(t, e, http.MethodPost, "/v1/checkout", buyerTok, echo.Map{
		"buyerId": otherID, "total": 50, "items": []echo.Map{{"productId": productID, "quantity": 1, "unitPrice": 50}}, "paymentMode": "card",
	})
	assert.Equal(t, http.StatusForbidden, code, out)

	code, out = call(t, e, http.MethodPost, "/v1/checkout", buyerTok, echo.Map{"total": 50, "paymentMode": "card"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "items", out["field"])

	code, _ = call(t, e, http.MethodPost, "/v1/checkout", "", echo.Map{})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestConfirmOverHTTP(t *testing.T) {
	e := newServer(t)
	req := func(body any) (int, map[string]any) {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		r := httptest.NewRequest(http.MethodPost, "/v1/payments/confirm", &buf)
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		r.Header.Set(middleware.CallbackTokenHeader, "cb-token")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, r)
		out := map[string]any{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return rec.Code, out
	}
	code, out := req(echo.Map{"transactionId": "unknown"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", out["error"])

	code, out = req(echo.Map{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "transactionId", out["field"])
}

func TestAuthFlow(t *testing.T) {
	e := newServer(t)
	id, tok := register(t, e, "user@example.com", "", "ADMIN")

	code, out := call(t, e, http.MethodGet, "/v1/me", tok, nil)
	require.Equal(t, http.StatusOK, code)
	user := out["user"].(map[string]any)
	assert.Equal(t, id, user["id"])
	assert.Equal(t, "BUYER", user["role"])

	code, _ = call(t, e, http.MethodPost, "/v1/auth/register", "", echo.Map{"email": "user@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, e, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "user@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, out = call(t, e, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "USER@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, code)
	refresh := out["refresh"].(map[string]any)["token"].(string)

	code, out = call(t, e, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, code)
	rotated := out["refresh"].(map[string]any)["token"].(string)

	code, _ = call(t, e, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, e, http.MethodPost, "/v1/auth/logout", "", echo.Map{"refresh_token": rotated})
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = call(t, e, http.MethodPost, "/v1/auth/register", "", echo.Map{"email": "not-an-email", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEnvelopeForUnknownErrors(t *testing.T) {
	status, body := envelope(echo.NewHTTPError(http.StatusNotFound, "Not Found"))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])

	status, body = envelope(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body["message"])
}
