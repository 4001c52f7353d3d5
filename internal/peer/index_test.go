package peer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	out, _ := decimal.NewFromString(v)
	return out
}

func TestGrowthFactor(t *testing.T) {
	assert.Equal(t, "1.1", GrowthFactor(d("1.1"), d("1.0")).String())
	assert.Equal(t, "1.05", GrowthFactor(d("2.1"), d("2.0")).String())
	// never accrued: factor one
	assert.Equal(t, "1", GrowthFactor(d("1.1"), decimal.Zero).String())
}

// the one non-obvious numerical contract: with half the p2p amount covered
// by delta, the index compounds half at the p2p rate, half at the pool rate
func TestP2PIndexBlend(t *testing.T) {
	got := P2PIndex(P2PIndexParams{
		PoolGrowth:    d("1.10"),
		P2PGrowth:     d("1.05"),
		LastP2PIndex:  d("1.0"),
		LastPoolIndex: d("1.0"),
		Delta:         d("10"),
		TotalP2P:      d("20"),
	})

	assert.Equal(t, "1.075", got.String())
}

func TestP2PIndexNoDelta(t *testing.T) {
	got := P2PIndex(P2PIndexParams{
		PoolGrowth:   d("1.10"),
		P2PGrowth:    d("1.05"),
		LastP2PIndex: d("2.0"),
		Delta:        decimal.Zero,
		TotalP2P:     d("20"),
	})

	assert.Equal(t, "2.1", got.String())
}

func TestShareOfDeltaClamped(t *testing.T) {
	// delta worth more underlying than the whole p2p amount
	share := ShareOfDelta(P2PIndexParams{
		LastPoolIndex: d("3.0"),
		LastP2PIndex:  d("1.0"),
		Delta:         d("10"),
		TotalP2P:      d("20"),
	})
	assert.Equal(t, "1", share.String())

	share = ShareOfDelta(P2PIndexParams{
		LastPoolIndex: d("1.0"),
		LastP2PIndex:  d("1.0"),
		Delta:         decimal.Zero,
		TotalP2P:      d("20"),
	})
	assert.True(t, share.IsZero())
}

func TestMidRateGrowth(t *testing.T) {
	// cursor 0.5, no reserve factor: both sides meet in the middle
	supply, borrow := MidRateGrowth(d("1.02"), d("1.06"), d("0.5"), decimal.Zero)
	assert.Equal(t, "1.04", supply.String())
	assert.Equal(t, "1.04", borrow.String())

	// reserve factor pulls each side back toward its pool rate
	supply, borrow = MidRateGrowth(d("1.02"), d("1.06"), d("0.5"), d("0.1"))
	assert.Equal(t, "1.038", supply.String())
	assert.Equal(t, "1.042", borrow.String())
	assert.True(t, supply.LessThan(borrow))
}

func TestConversionsTruncate(t *testing.T) {
	// 10 underlying at index 3: 3.333... scaled, floored at 16 digits
	scaled := ToScaled(d("10"), d("3"))
	assert.Equal(t, "3.3333333333333333", scaled.String())

	// converting back never exceeds the original
	back := ToUnderlying(scaled, d("3"))
	assert.True(t, back.LessThanOrEqual(d("10")))
	assert.True(t, d("10").Sub(back).LessThan(d("0.000000000000001")))
}

func TestToScaledZeroIndex(t *testing.T) {
	assert.True(t, ToScaled(d("10"), decimal.Zero).IsZero())
}
