package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := FromViper(newViper(map[string]any{
		"JWT_SECRET": "s",
		"DB_DRIVER":  "sqlite",
	}))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(15).Equal(cfg.Settlement.CommissionPercent))
	assert.True(t, decimal.NewFromInt(100).Equal(cfg.Settlement.SaleMinTotal))
	assert.True(t, decimal.NewFromInt(5000000).Equal(cfg.Settlement.SaleMaxTotal))
	assert.True(t, decimal.RequireFromString("0.01").Equal(cfg.Settlement.TotalTolerance))
	assert.True(t, decimal.NewFromInt(500).Equal(cfg.Withdrawal.MinAmount))
	assert.Equal(t, PolicyWholeRow, cfg.Withdrawal.Consumption)
	assert.Equal(t, PaymentSandbox, cfg.Payment.Mode)
	assert.Equal(t, 10*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, "notifications.settlement", cfg.AMQP.Queue)
}

func TestFromViperReportsAllProblems(t *testing.T) {
	_, err := FromViper(newViper(map[string]any{
		"COMMISSION_PERCENT": "150",
		"WITHDRAWAL_POLICY":  "fifo",
		"PAYMENT_MODE":       "live",
	}))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "JWT_SECRET")
	assert.Contains(t, msg, "DB_HOST")
	assert.Contains(t, msg, "COMMISSION_PERCENT")
	assert.Contains(t, msg, "WITHDRAWAL_POLICY")
	assert.Contains(t, msg, "PAYMENT_BASE_URL")
	assert.Contains(t, msg, "PAYMENT_CALLBACK_TOKEN")
}

func TestLivePaymentRequiresCallbackToken(t *testing.T) {
	base := map[string]any{
		"JWT_SECRET":       "s",
		"DB_DRIVER":        "sqlite",
		"PAYMENT_MODE":     "live",
		"PAYMENT_BASE_URL": "https://gateway.example.com",
	}
	_, err := FromViper(newViper(base))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYMENT_CALLBACK_TOKEN")

	base["PAYMENT_CALLBACK_TOKEN"] = "cb-secret"
	cfg, err := FromViper(newViper(base))
	require.NoError(t, err)
	assert.Equal(t, PaymentLive, cfg.Payment.Mode)
	assert.Equal(t, "cb-secret", cfg.Payment.CallbackToken)
}

func TestFromViperRejectsBadDecimal(t *testing.T) {
	_, err := FromViper(newViper(map[string]any{
		"JWT_SECRET":     "s",
		"DB_DRIVER":      "sqlite",
		"SALE_MIN_TOTAL": "ten",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SALE_MIN_TOTAL")
}

func TestRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 5*time.Minute, cfg.TTL)
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.Equal(t, "user_route_query", cfg.KeyStrategy)
}
