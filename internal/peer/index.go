// Package peer holds the pure peer-to-peer index math: growth factors,
// the delta-weighted p2p index blend and the scaled-unit conversions.
// Nothing here mutates state; callers persist the results.
package peer

import (
	"github.com/shopspring/decimal"
)

var (
	// One unit index
	One = decimal.New(1, 0)
	// MaxPrecision max precision
	MaxPrecision int32 = 16
)

// GrowthFactor growth of an index since the last snapshot.
// growth = now/last; a non-positive last snapshot means the market was
// never accrued and the factor is 1.
func GrowthFactor(now, last decimal.Decimal) decimal.Decimal {
	if !last.IsPositive() {
		return One
	}

	return now.Div(last).Truncate(MaxPrecision)
}

// MidRateGrowth derives the p2p growth factors of both sides from the pool
// growth factors. The raw p2p rate sits at cursor between the pool supply
// and borrow rates; the reserve factor pulls each side back toward its own
// pool rate.
func MidRateGrowth(supplyGrowth, borrowGrowth, cursor, reserveFactor decimal.Decimal) (supplyP2P, borrowP2P decimal.Decimal) {
	mid := supplyGrowth.Add(cursor.Mul(borrowGrowth.Sub(supplyGrowth)))

	supplyP2P = mid.Sub(reserveFactor.Mul(mid.Sub(supplyGrowth))).Truncate(MaxPrecision)
	borrowP2P = mid.Add(reserveFactor.Mul(borrowGrowth.Sub(mid))).Truncate(MaxPrecision)
	return
}

// P2PIndexParams inputs of one side's p2p index update
type P2PIndexParams struct {
	// pool index growth since the last accrual
	PoolGrowth decimal.Decimal
	// compounded p2p rate over the same period
	P2PGrowth     decimal.Decimal
	LastP2PIndex  decimal.Decimal
	LastPoolIndex decimal.Decimal
	// outstanding unmatched delta, pool units
	Delta decimal.Decimal
	// total p2p amount, p2p units
	TotalP2P decimal.Decimal
}

// ShareOfDelta the share of p2p liquidity actually backed by the pool,
// clamped to [0, 1]: delta·lastPoolIndex / (lastP2PIndex·totalP2P)
func ShareOfDelta(p P2PIndexParams) decimal.Decimal {
	if !p.Delta.IsPositive() || !p.TotalP2P.IsPositive() || !p.LastP2PIndex.IsPositive() {
		return decimal.Zero
	}

	share := p.Delta.Mul(p.LastPoolIndex).Div(p.LastP2PIndex.Mul(p.TotalP2P)).Truncate(MaxPrecision)
	if share.GreaterThan(One) {
		return One
	}
	return share
}

// P2PIndex next p2p index: the delta-covered share of p2p liquidity grows at
// the pool rate, the rest at the p2p rate.
//
// new = old · (p2pGrowth·(1−share) + share·poolGrowth)
func P2PIndex(p P2PIndexParams) decimal.Decimal {
	last := p.LastP2PIndex
	if !last.IsPositive() {
		last = One
	}

	share := ShareOfDelta(p)
	blended := p.P2PGrowth.Mul(One.Sub(share)).Add(share.Mul(p.PoolGrowth))
	return last.Mul(blended).Truncate(MaxPrecision)
}

// ToScaled converts underlying to index units. Truncates, so a participant
// is never credited units worth more than the underlying supplied.
func ToScaled(underlying, index decimal.Decimal) decimal.Decimal {
	if !index.IsPositive() {
		return decimal.Zero
	}

	return underlying.Div(index).Truncate(MaxPrecision)
}

// ToUnderlying converts index units back to underlying. Truncates, so the
// protocol never pays out more than the position is worth.
func ToUnderlying(scaled, index decimal.Decimal) decimal.Decimal {
	return scaled.Mul(index).Truncate(MaxPrecision)
}
