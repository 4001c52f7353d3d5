package market

import (
	"context"
	"time"

	"matchpool/core"
	"matchpool/internal/peer"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

type service struct {
	marketStore core.IMarketStore
	pool        core.Pool
}

// New new market service
func New(
	marketStr core.IMarketStore,
	pool core.Pool,
) core.IMarketService {
	return &service{
		marketStore: marketStr,
		pool:        pool,
	}
}

// AccrueInterest refreshes the pool snapshot and compounds both p2p indexes.
//
// Accrual only happens on events that touch a market: supply, borrow, repay,
// withdraw and the periodic accrual worker. Everything downstream assumes it
// already ran.
func (s *service) AccrueInterest(ctx context.Context, tx *db.DB, market *core.Market, now time.Time) error {
	log := logger.FromContext(ctx).WithField("service", "market")

	indexes, err := s.pool.Indexes(ctx, market.AssetID)
	if err != nil {
		log.WithError(err).Errorln("pool.Indexes", market.AssetID)
		return err
	}

	supplyIndex, borrowIndex := nextIndexes(market, indexes)

	// interest never runs backward
	if supplyIndex.LessThan(market.P2PSupplyIndex) || borrowIndex.LessThan(market.P2PBorrowIndex) {
		log.Errorln("p2p index decreased", market.AssetID)
		return core.ErrIndexDecreased
	}

	market.P2PSupplyIndex = supplyIndex
	market.P2PBorrowIndex = borrowIndex
	market.LastPoolSupplyIndex = indexes.SupplyIndex
	market.LastPoolBorrowIndex = indexes.BorrowIndex
	market.LastAccruedAt = now

	return s.marketStore.Update(ctx, tx, market)
}

func (s *service) PreviewIndexes(ctx context.Context, market *core.Market, now time.Time) (*core.MarketIndexes, error) {
	indexes, err := s.pool.Indexes(ctx, market.AssetID)
	if err != nil {
		return nil, err
	}

	supplyIndex, borrowIndex := nextIndexes(market, indexes)

	return &core.MarketIndexes{
		PoolSupplyIndex: indexes.SupplyIndex,
		PoolBorrowIndex: indexes.BorrowIndex,
		P2PSupplyIndex:  supplyIndex,
		P2PBorrowIndex:  borrowIndex,
	}, nil
}

func nextIndexes(market *core.Market, indexes *core.PoolIndexes) (supplyIndex, borrowIndex decimal.Decimal) {
	supplyGrowth := peer.GrowthFactor(indexes.SupplyIndex, market.LastPoolSupplyIndex)
	borrowGrowth := peer.GrowthFactor(indexes.BorrowIndex, market.LastPoolBorrowIndex)
	supplyP2PGrowth, borrowP2PGrowth := peer.MidRateGrowth(supplyGrowth, borrowGrowth, market.Cursor, market.ReserveFactor)

	supplyIndex = peer.P2PIndex(peer.P2PIndexParams{
		PoolGrowth:    supplyGrowth,
		P2PGrowth:     supplyP2PGrowth,
		LastP2PIndex:  market.P2PSupplyIndex,
		LastPoolIndex: market.LastPoolSupplyIndex,
		Delta:         market.SupplyDelta,
		TotalP2P:      market.SupplyP2PAmount,
	})

	borrowIndex = peer.P2PIndex(peer.P2PIndexParams{
		PoolGrowth:    borrowGrowth,
		P2PGrowth:     borrowP2PGrowth,
		LastP2PIndex:  market.P2PBorrowIndex,
		LastPoolIndex: market.LastPoolBorrowIndex,
		Delta:         market.BorrowDelta,
		TotalP2P:      market.BorrowP2PAmount,
	})

	return
}
