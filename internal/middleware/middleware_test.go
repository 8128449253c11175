package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/formation-market/internal/config"
	"github.com/iliyamo/formation-market/internal/utils"
)

const secret = "test-secret"

func ok(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"user": UserID(c), "role": Role(c)})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/p", ok, JWTAuth(secret), RequireRole("SELLER"))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/p", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	tok, err := utils.NewAccessToken(secret, "u-1", "SELLER", 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec = serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"u-1","role":"SELLER"}`, rec.Body.String())

	buyer, err := utils.NewAccessToken(secret, "u-2", "BUYER", 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+buyer.Token)
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	other, err := utils.NewAccessToken("other-secret", "u-1", "SELLER", 5)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Authorization", "Bearer "+other.Token)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestCallbackToken(t *testing.T) {
	e := echo.New()
	e.POST("/guarded", ok, CallbackToken("s3cret"))
	e.POST("/open", ok, CallbackToken(""))

	assert.Equal(t, http.StatusUnauthorized, serve(e, httptest.NewRequest(http.MethodPost, "/guarded", nil)).Code)

	req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
	req.Header.Set(CallbackTokenHeader, "s3cret")
	assert.Equal(t, http.StatusOK, serve(e, req).Code)

	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodPost, "/open", nil)).Code)
}

func TestRedisMiddlewaresPassThroughWithoutClient(t *testing.T) {
	e := echo.New()
	log := zaptest.NewLogger(t)
	e.GET("/x", ok,
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, log),
		NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil, log),
	)
	for i := 0; i < 3; i++ {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestCacheKeySeparatesUsers(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "user_route_query"}
	key := func(uid, target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/sellers/me/balance")
		if uid != "" {
			c.Set(KeyUserID, uid)
		}
		return cacheKeyFrom(cfg, c)
	}
	assert.NotEqual(t, key("a", "/v1/sellers/me/balance"), key("b", "/v1/sellers/me/balance"))
	assert.Equal(t, key("a", "/v1/sellers/me/balance"), key("a", "/v1/sellers/me/balance"))
	assert.NotEqual(t, key("a", "/v1/sellers/me/balance?x=1"), key("a", "/v1/sellers/me/balance"))
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/withdrawals", nil), httptest.NewRecorder())
	c.SetPath("/v1/withdrawals")
	c.Set(KeyUserID, "u-9")
	assert.Equal(t, "rl:user:u-9:route:POST /v1/withdrawals",
		buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}, c))
	assert.Equal(t, "anon", currentUserID(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())))
}

func TestRequestLoggerAndMetrics(t *testing.T) {
	e := echo.New()
	e.Use(RequestLogger(zaptest.NewLogger(t)), Metrics())
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "nope") })
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
