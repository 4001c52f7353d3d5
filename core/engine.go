package core

import (
	"context"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// MatchResult outcome of one match/unmatch primitive.
// Moved may be less than requested; a shortfall is the caller's
// signal to grow the delta, never an error.
type MatchResult struct {
	Moved      decimal.Decimal `json:"moved"`
	Iterations int64           `json:"iterations"`
}

// IMatchingEngine owns the four sorted queues per market and is the only
// component allowed to move position balances between the pool bucket and
// the p2p bucket. Callers must accrue the market's indexes first.
type IMatchingEngine interface {
	// MatchSuppliers promotes the largest on-pool suppliers into p2p,
	// up to amount underlying, consuming at most budget iterations
	MatchSuppliers(ctx context.Context, tx *db.DB, market *Market, amount decimal.Decimal, budget int64) (*MatchResult, error)
	// UnmatchSuppliers demotes in-p2p suppliers back to the pool
	UnmatchSuppliers(ctx context.Context, tx *db.DB, market *Market, amount decimal.Decimal, budget int64) (*MatchResult, error)
	// MatchBorrowers promotes the largest on-pool borrowers into p2p
	MatchBorrowers(ctx context.Context, tx *db.DB, market *Market, amount decimal.Decimal, budget int64) (*MatchResult, error)
	// UnmatchBorrowers demotes in-p2p borrowers back to the pool
	UnmatchBorrowers(ctx context.Context, tx *db.DB, market *Market, amount decimal.Decimal, budget int64) (*MatchResult, error)

	// UpdateSupplier persists the supply position and resorts its queue
	// entries; the only legal write path for supply buckets
	UpdateSupplier(ctx context.Context, tx *db.DB, market *Market, supply *Supply) error
	// UpdateBorrower persists the borrow position and resorts its queue entries
	UpdateBorrower(ctx context.Context, tx *db.DB, market *Market, borrow *Borrow) error

	// GrowDelta records shortfall underlying that stays pool-backed on the side
	GrowDelta(ctx context.Context, market *Market, side Side, shortfall decimal.Decimal) error
	// ShrinkDelta offsets incoming underlying against the side's delta and
	// returns the amount actually absorbed, clamped at the outstanding delta
	ShrinkDelta(ctx context.Context, market *Market, side Side, amount decimal.Decimal) (decimal.Decimal, error)
}
