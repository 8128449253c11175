package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCentsRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "100", "999.99", "1000000", "0.01"} {
		d := decimal.RequireFromString(s)
		assert.True(t, FromCents(ToCents(d)).Equal(d), s)
	}
	assert.Equal(t, int64(99999), ToCents(decimal.RequireFromString("999.99")))
	assert.Equal(t, int64(1), ToCents(decimal.RequireFromString("0.005")))
}

func TestHasValidScale(t *testing.T) {
	assert.True(t, HasValidScale(decimal.RequireFromString("10.5")))
	assert.True(t, HasValidScale(decimal.RequireFromString("10.55")))
	assert.False(t, HasValidScale(decimal.RequireFromString("10.555")))
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.NewFromInt(5000), decimal.NewFromInt(2))
	assert.True(t, got.Equal(decimal.NewFromInt(100)), got.String())
}
