package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var fifteen = decimal.NewFromInt(15)

func TestComputeConservesGross(t *testing.T) {
	for _, g := range []string{"100", "999.99", "1000000", "0", "0.01", "33.33"} {
		gross := decimal.RequireFromString(g)
		s := Compute(gross, fifteen)
		assert.True(t, s.PlatformShare.Add(s.SellerShare).Equal(gross), "gross %s", g)
		assert.False(t, s.PlatformShare.IsNegative())
	}
}

func TestComputeSingleSeller(t *testing.T) {
	s := Compute(decimal.NewFromInt(10000), fifteen)
	assert.Equal(t, "1500", s.PlatformShare.String())
	assert.Equal(t, "8500", s.SellerShare.String())
}

func TestComputeTwoSellersIndependently(t *testing.T) {
	x := Compute(decimal.NewFromInt(5000), fifteen)
	y := Compute(decimal.NewFromInt(3000), fifteen)

	assert.Equal(t, "750", x.PlatformShare.String())
	assert.Equal(t, "4250", x.SellerShare.String())
	assert.Equal(t, "450", y.PlatformShare.String())
	assert.Equal(t, "2550", y.SellerShare.String())
	assert.Equal(t, "6800", x.SellerShare.Add(y.SellerShare).String())
}

func TestComputeRemainderGoesToSeller(t *testing.T) {
	// 999.99 * 15% = 149.9985
	s := Compute(decimal.RequireFromString("999.99"), fifteen)
	assert.Equal(t, "149.99", s.PlatformShare.String())
	assert.Equal(t, "850", s.SellerShare.String())
}

func TestComputeCents(t *testing.T) {
	platform, seller := ComputeCents(99999, fifteen)
	assert.Equal(t, int64(14999), platform)
	assert.Equal(t, int64(85000), seller)

	platform, seller = ComputeCents(1000000, fifteen)
	assert.Equal(t, int64(150000), platform)
	assert.Equal(t, int64(850000), seller)
}

func TestComputeTruncatesWhereRoundingWouldFavorPlatform(t *testing.T) {
	gross := decimal.RequireFromString("0.05")
	// 0.05 * 15% = 0.0075, which rounds to 0.01.
	assert.Equal(t, "0.01", gross.Mul(fifteen).Div(decimal.NewFromInt(100)).Round(2).String())

	s := Compute(gross, fifteen)
	assert.True(t, s.PlatformShare.IsZero(), "platform share %s", s.PlatformShare)
	assert.Equal(t, "0.05", s.SellerShare.String())

	platform, seller := ComputeCents(5, fifteen)
	assert.Equal(t, int64(0), platform)
	assert.Equal(t, int64(5), seller)
}
