package position

import (
	"context"
	"time"

	"matchpool/core"
	"matchpool/internal/peer"
	"matchpool/pkg/number"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

type service struct {
	db            *db.DB
	property      property.Store
	marketStore   core.IMarketStore
	supplyStore   core.ISupplyStore
	borrowStore   core.IBorrowStore
	marketService core.IMarketService
	engine        core.IMatchingEngine
	pool          core.Pool
}

// New new position service
func New(
	database *db.DB,
	propertyStr property.Store,
	marketStr core.IMarketStore,
	supplyStr core.ISupplyStore,
	borrowStr core.IBorrowStore,
	marketSrv core.IMarketService,
	engine core.IMatchingEngine,
	pool core.Pool,
) core.IPositionService {
	return &service{
		db:            database,
		property:      propertyStr,
		marketStore:   marketStr,
		supplyStore:   supplyStr,
		borrowStore:   borrowStr,
		marketService: marketSrv,
		engine:        engine,
		pool:          pool,
	}
}

// Supply deposits underlying: offset the borrow delta first, then match
// waiting borrowers, park the rest on the pool.
func (s *service) Supply(ctx context.Context, userID, assetID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	market, err := s.marketStore.Find(ctx, assetID)
	if err != nil {
		return err
	}

	return s.tx(func(tx *db.DB) error {
		if err := s.marketService.AccrueInterest(ctx, tx, market, time.Now()); err != nil {
			return err
		}

		supply, err := s.supplyStore.Find(ctx, userID, assetID)
		if err != nil {
			return err
		}

		remaining := amount

		absorbed, err := s.engine.ShrinkDelta(ctx, market, core.SideBorrow, remaining)
		if err != nil {
			return err
		}
		if absorbed.IsPositive() {
			if err := s.pool.Repay(ctx, assetID, absorbed); err != nil {
				return err
			}
			supply.InP2P = supply.InP2P.Add(peer.ToScaled(absorbed, market.P2PSupplyIndex))
			market.SupplyP2PAmount = market.SupplyP2PAmount.Add(peer.ToScaled(absorbed, market.P2PSupplyIndex))
			remaining = remaining.Sub(absorbed)
		}

		if remaining.IsPositive() {
			result, err := s.engine.MatchBorrowers(ctx, tx, market, remaining, s.budget(ctx, market))
			if err != nil {
				return err
			}
			if result.Moved.IsPositive() {
				if err := s.pool.Repay(ctx, assetID, result.Moved); err != nil {
					return err
				}
				supply.InP2P = supply.InP2P.Add(peer.ToScaled(result.Moved, market.P2PSupplyIndex))
				market.SupplyP2PAmount = market.SupplyP2PAmount.Add(peer.ToScaled(result.Moved, market.P2PSupplyIndex))
				remaining = remaining.Sub(result.Moved)
			}
		}

		if remaining.IsPositive() {
			if err := s.pool.Supply(ctx, assetID, remaining); err != nil {
				return err
			}
			supply.OnPool = supply.OnPool.Add(peer.ToScaled(remaining, market.LastPoolSupplyIndex))
		}

		if err := s.engine.UpdateSupplier(ctx, tx, market, supply); err != nil {
			return err
		}

		return s.marketStore.Update(ctx, tx, market)
	})
}

// Withdraw pulls underlying out: own pool liquidity first, then the supply
// delta, then promote replacement suppliers, finally unmatch borrowers with
// any shortfall turning into borrow delta.
func (s *service) Withdraw(ctx context.Context, userID, assetID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	market, err := s.marketStore.Find(ctx, assetID)
	if err != nil {
		return err
	}

	return s.tx(func(tx *db.DB) error {
		if err := s.marketService.AccrueInterest(ctx, tx, market, time.Now()); err != nil {
			return err
		}

		supply, err := s.supplyStore.Find(ctx, userID, assetID)
		if err != nil {
			return err
		}

		onPool := peer.ToUnderlying(supply.OnPool, market.LastPoolSupplyIndex)
		inP2P := peer.ToUnderlying(supply.InP2P, market.P2PSupplyIndex)
		if amount.GreaterThan(onPool.Add(inP2P)) {
			return core.ErrInsufficientBalance
		}

		remaining := amount
		budget := s.budget(ctx, market)

		if take := number.Min(onPool, remaining); take.IsPositive() {
			if err := s.pool.Withdraw(ctx, assetID, take); err != nil {
				return err
			}
			if take.Equal(onPool) {
				supply.OnPool = decimal.Zero
			} else {
				supply.OnPool = number.NonNegative(supply.OnPool.Sub(peer.ToScaled(take, market.LastPoolSupplyIndex)))
			}
			remaining = remaining.Sub(take)

			// the queues must see the reduced balance before any matching,
			// otherwise the user could be promoted into their own seat
			if err := s.engine.UpdateSupplier(ctx, tx, market, supply); err != nil {
				return err
			}
		}

		if remaining.IsPositive() {
			absorbed, err := s.engine.ShrinkDelta(ctx, market, core.SideSupply, remaining)
			if err != nil {
				return err
			}
			if absorbed.IsPositive() {
				if err := s.pool.Withdraw(ctx, assetID, absorbed); err != nil {
					return err
				}
				s.leaveSupplyP2P(market, supply, absorbed)
				remaining = remaining.Sub(absorbed)
			}
		}

		if remaining.IsPositive() && budget > 0 {
			result, err := s.engine.MatchSuppliers(ctx, tx, market, remaining, budget)
			if err != nil {
				return err
			}
			budget -= result.Iterations
			if result.Moved.IsPositive() {
				if err := s.pool.Withdraw(ctx, assetID, result.Moved); err != nil {
					return err
				}
				s.leaveSupplyP2P(market, supply, result.Moved)
				remaining = remaining.Sub(result.Moved)
			}
		}

		if remaining.IsPositive() {
			result, err := s.engine.UnmatchBorrowers(ctx, tx, market, remaining, budget)
			if err != nil {
				return err
			}

			if shortfall := remaining.Sub(result.Moved); shortfall.IsPositive() {
				logger.FromContext(ctx).WithField("service", "position").
					Infoln("withdraw shortfall becomes borrow delta:", shortfall, assetID)
				if err := s.engine.GrowDelta(ctx, market, core.SideBorrow, shortfall); err != nil {
					return err
				}
			}

			// fund the exit: unmatched borrowers return to pool debt, the
			// delta share is borrowed on behalf of the still-matched ones
			if err := s.pool.Borrow(ctx, assetID, remaining); err != nil {
				return err
			}
			s.leaveSupplyP2P(market, supply, remaining)
		}

		if err := s.engine.UpdateSupplier(ctx, tx, market, supply); err != nil {
			return err
		}

		return s.marketStore.Update(ctx, tx, market)
	})
}

// Borrow draws underlying: offset the supply delta first, then match
// waiting suppliers, draw the rest from the pool.
func (s *service) Borrow(ctx context.Context, userID, assetID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	market, err := s.marketStore.Find(ctx, assetID)
	if err != nil {
		return err
	}

	return s.tx(func(tx *db.DB) error {
		if err := s.marketService.AccrueInterest(ctx, tx, market, time.Now()); err != nil {
			return err
		}

		borrow, err := s.borrowStore.Find(ctx, userID, assetID)
		if err != nil {
			return err
		}

		remaining := amount

		absorbed, err := s.engine.ShrinkDelta(ctx, market, core.SideSupply, remaining)
		if err != nil {
			return err
		}
		if absorbed.IsPositive() {
			if err := s.pool.Withdraw(ctx, assetID, absorbed); err != nil {
				return err
			}
			borrow.InP2P = borrow.InP2P.Add(peer.ToScaled(absorbed, market.P2PBorrowIndex))
			market.BorrowP2PAmount = market.BorrowP2PAmount.Add(peer.ToScaled(absorbed, market.P2PBorrowIndex))
			remaining = remaining.Sub(absorbed)
		}

		if remaining.IsPositive() {
			result, err := s.engine.MatchSuppliers(ctx, tx, market, remaining, s.budget(ctx, market))
			if err != nil {
				return err
			}
			if result.Moved.IsPositive() {
				if err := s.pool.Withdraw(ctx, assetID, result.Moved); err != nil {
					return err
				}
				borrow.InP2P = borrow.InP2P.Add(peer.ToScaled(result.Moved, market.P2PBorrowIndex))
				market.BorrowP2PAmount = market.BorrowP2PAmount.Add(peer.ToScaled(result.Moved, market.P2PBorrowIndex))
				remaining = remaining.Sub(result.Moved)
			}
		}

		if remaining.IsPositive() {
			if err := s.pool.Borrow(ctx, assetID, remaining); err != nil {
				return err
			}
			borrow.OnPool = borrow.OnPool.Add(peer.ToScaled(remaining, market.LastPoolBorrowIndex))
		}

		if err := s.engine.UpdateBorrower(ctx, tx, market, borrow); err != nil {
			return err
		}

		return s.marketStore.Update(ctx, tx, market)
	})
}

// Repay pays debt back: own pool debt first, then the borrow delta, then
// promote replacement borrowers, finally unmatch suppliers with any
// shortfall turning into supply delta.
func (s *service) Repay(ctx context.Context, userID, assetID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}

	market, err := s.marketStore.Find(ctx, assetID)
	if err != nil {
		return err
	}

	return s.tx(func(tx *db.DB) error {
		if err := s.marketService.AccrueInterest(ctx, tx, market, time.Now()); err != nil {
			return err
		}

		borrow, err := s.borrowStore.Find(ctx, userID, assetID)
		if err != nil {
			return err
		}

		onPool := peer.ToUnderlying(borrow.OnPool, market.LastPoolBorrowIndex)
		inP2P := peer.ToUnderlying(borrow.InP2P, market.P2PBorrowIndex)
		if amount.GreaterThan(onPool.Add(inP2P)) {
			return core.ErrInsufficientBalance
		}

		remaining := amount
		budget := s.budget(ctx, market)

		if take := number.Min(onPool, remaining); take.IsPositive() {
			if err := s.pool.Repay(ctx, assetID, take); err != nil {
				return err
			}
			if take.Equal(onPool) {
				borrow.OnPool = decimal.Zero
			} else {
				borrow.OnPool = number.NonNegative(borrow.OnPool.Sub(peer.ToScaled(take, market.LastPoolBorrowIndex)))
			}
			remaining = remaining.Sub(take)

			// the queues must see the reduced balance before any matching,
			// otherwise the user could be promoted into their own seat
			if err := s.engine.UpdateBorrower(ctx, tx, market, borrow); err != nil {
				return err
			}
		}

		if remaining.IsPositive() {
			absorbed, err := s.engine.ShrinkDelta(ctx, market, core.SideBorrow, remaining)
			if err != nil {
				return err
			}
			if absorbed.IsPositive() {
				if err := s.pool.Repay(ctx, assetID, absorbed); err != nil {
					return err
				}
				s.leaveBorrowP2P(market, borrow, absorbed)
				remaining = remaining.Sub(absorbed)
			}
		}

		if remaining.IsPositive() && budget > 0 {
			result, err := s.engine.MatchBorrowers(ctx, tx, market, remaining, budget)
			if err != nil {
				return err
			}
			budget -= result.Iterations
			if result.Moved.IsPositive() {
				if err := s.pool.Repay(ctx, assetID, result.Moved); err != nil {
					return err
				}
				s.leaveBorrowP2P(market, borrow, result.Moved)
				remaining = remaining.Sub(result.Moved)
			}
		}

		if remaining.IsPositive() {
			result, err := s.engine.UnmatchSuppliers(ctx, tx, market, remaining, budget)
			if err != nil {
				return err
			}

			if shortfall := remaining.Sub(result.Moved); shortfall.IsPositive() {
				logger.FromContext(ctx).WithField("service", "position").
					Infoln("repay shortfall becomes supply delta:", shortfall, assetID)
				if err := s.engine.GrowDelta(ctx, market, core.SideSupply, shortfall); err != nil {
					return err
				}
			}

			// park the repaid funds: unmatched suppliers go back on pool,
			// the delta share is supplied on behalf of the still-matched ones
			if err := s.pool.Supply(ctx, assetID, remaining); err != nil {
				return err
			}
			s.leaveBorrowP2P(market, borrow, remaining)
		}

		if err := s.engine.UpdateBorrower(ctx, tx, market, borrow); err != nil {
			return err
		}

		return s.marketStore.Update(ctx, tx, market)
	})
}

// tx memory mode runs without a database
func (s *service) tx(fn func(tx *db.DB) error) error {
	if s.db == nil {
		return fn(nil)
	}

	return s.db.Tx(fn)
}

// budget iteration budget of one operation; zero when the market or the
// whole layer is paused
func (s *service) budget(ctx context.Context, market *core.Market) int64 {
	if market.IsPaused() {
		return 0
	}

	if s.property != nil {
		if v, err := s.property.Get(ctx, core.MatchingPausedKey); err == nil && cast.ToBool(v.String()) {
			return 0
		}
	}

	return market.MatchBudget
}

func (s *service) leaveSupplyP2P(market *core.Market, supply *core.Supply, underlying decimal.Decimal) {
	scaled := peer.ToScaled(underlying, market.P2PSupplyIndex)
	supply.InP2P = number.NonNegative(supply.InP2P.Sub(scaled))
	market.SupplyP2PAmount = number.NonNegative(market.SupplyP2PAmount.Sub(scaled))
}

func (s *service) leaveBorrowP2P(market *core.Market, borrow *core.Borrow, underlying decimal.Decimal) {
	scaled := peer.ToScaled(underlying, market.P2PBorrowIndex)
	borrow.InP2P = number.NonNegative(borrow.InP2P.Sub(scaled))
	market.BorrowP2PAmount = number.NonNegative(market.BorrowP2PAmount.Sub(scaled))
}
