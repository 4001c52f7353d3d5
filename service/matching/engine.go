package matching

import (
	"context"
	"sync"

	"matchpool/core"
	"matchpool/internal/metrics"
	"matchpool/internal/peer"
	"matchpool/pkg/number"
	"matchpool/pkg/sortedlist"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
	"github.com/fox-one/pkg/uuid"
	"github.com/shopspring/decimal"
)

// scan depth used when rebuilding a book from storage; inserts during a
// rebuild should land in their exact slot
const rebuildScanDepth int64 = 1 << 30

// Engine owns the four sorted queues per market and every bucket move.
// Operations on one market are serialized; distinct markets run in parallel.
type Engine struct {
	mu    sync.Mutex
	books map[string]*book

	supplyStore core.ISupplyStore
	borrowStore core.IBorrowStore
	eventStore  core.IEventStore
}

type book struct {
	mu sync.Mutex

	suppliersOnPool *sortedlist.List
	suppliersInP2P  *sortedlist.List
	borrowersOnPool *sortedlist.List
	borrowersInP2P  *sortedlist.List

	loaded bool
}

// New new matching engine
func New(
	supplyStr core.ISupplyStore,
	borrowStr core.IBorrowStore,
	eventStr core.IEventStore,
) *Engine {
	return &Engine{
		books:       make(map[string]*book),
		supplyStore: supplyStr,
		borrowStore: borrowStr,
		eventStore:  eventStr,
	}
}

// MatchSuppliers moves up to amount underlying of the largest on-pool
// suppliers into p2p. Stops on satisfied amount, empty queue or spent
// budget, whichever first; stopping early is not an error.
func (e *Engine) MatchSuppliers(ctx context.Context, tx *db.DB, market *core.Market, amount decimal.Decimal, budget int64) (*core.MatchResult, error) {
	b, err := e.bookOf(ctx, market)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	poolIndex := market.LastPoolSupplyIndex
	p2pIndex := market.P2PSupplyIndex

	result := &core.MatchResult{Moved: decimal.Zero}
	for result.Moved.LessThan(amount) && result.Iterations < budget {
		user := b.suppliersOnPool.Head()
		if user == "" {
			break
		}
		result.Iterations++

		supply, err := e.supplyStore.Find(ctx, user, market.AssetID)
		if err != nil {
			return nil, err
		}

		onPool := peer.ToUnderlying(supply.OnPool, poolIndex)
		if !onPool.IsPositive() {
			// a listed user with an empty bucket: the queue and the
			// store went out of sync
			return nil, core.ErrUserNotListed
		}
		toMatch := number.Min(onPool, amount.Sub(result.Moved))

		if toMatch.Equal(onPool) {
			supply.OnPool = decimal.Zero
		} else {
			supply.OnPool = number.NonNegative(supply.OnPool.Sub(peer.ToScaled(toMatch, poolIndex)))
		}
		supply.InP2P = supply.InP2P.Add(peer.ToScaled(toMatch, p2pIndex))

		if err := e.updateSupplier(ctx, tx, market, b, supply); err != nil {
			return nil, err
		}

		result.Moved = result.Moved.Add(toMatch)
	}

	market.SupplyP2PAmount = market.SupplyP2PAmount.Add(peer.ToScaled(result.Moved, p2pIndex))

	e.observe(market, "supply", "match", result)
	return result, nil
}

// UnmatchSuppliers moves up to amount underlying of the largest in-p2p
// suppliers back onto the pool. The shortfall, if any, is the caller's
// signal to grow the supply delta.
func (e *Engine) UnmatchSuppliers(ctx context.Context, tx *db.DB, market *core.Market, amount decimal.Decimal, budget int64) (*core.MatchResult, error) {
	b, err := e.bookOf(ctx, market)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	poolIndex := market.LastPoolSupplyIndex
	p2pIndex := market.P2PSupplyIndex

	result := &core.MatchResult{Moved: decimal.Zero}
	for result.Moved.LessThan(amount) && result.Iterations < budget {
		user := b.suppliersInP2P.Head()
		if user == "" {
			break
		}
		result.Iterations++

		supply, err := e.supplyStore.Find(ctx, user, market.AssetID)
		if err != nil {
			return nil, err
		}

		inP2P := peer.ToUnderlying(supply.InP2P, p2pIndex)
		if !inP2P.IsPositive() {
			return nil, core.ErrUserNotListed
		}
		toMove := number.Min(inP2P, amount.Sub(result.Moved))

		if toMove.Equal(inP2P) {
			supply.InP2P = decimal.Zero
		} else {
			supply.InP2P = number.NonNegative(supply.InP2P.Sub(peer.ToScaled(toMove, p2pIndex)))
		}
		supply.OnPool = supply.OnPool.Add(peer.ToScaled(toMove, poolIndex))

		if err := e.updateSupplier(ctx, tx, market, b, supply); err != nil {
			return nil, err
		}

		result.Moved = result.Moved.Add(toMove)
	}

	market.SupplyP2PAmount = number.NonNegative(market.SupplyP2PAmount.Sub(peer.ToScaled(result.Moved, p2pIndex)))

	e.observe(market, "supply", "unmatch", result)
	return result, nil
}

// MatchBorrowers moves up to amount underlying of the largest on-pool
// borrowers into p2p.
func (e *Engine) MatchBorrowers(ctx context.Context, tx *db.DB, market *core.Market, amount decimal.Decimal, budget int64) (*core.MatchResult, error) {
	b, err := e.bookOf(ctx, market)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	poolIndex := market.LastPoolBorrowIndex
	p2pIndex := market.P2PBorrowIndex

	result := &core.MatchResult{Moved: decimal.Zero}
	for result.Moved.LessThan(amount) && result.Iterations < budget {
		user := b.borrowersOnPool.Head()
		if user == "" {
			break
		}
		result.Iterations++

		borrow, err := e.borrowStore.Find(ctx, user, market.AssetID)
		if err != nil {
			return nil, err
		}

		onPool := peer.ToUnderlying(borrow.OnPool, poolIndex)
		if !onPool.IsPositive() {
			return nil, core.ErrUserNotListed
		}
		toMatch := number.Min(onPool, amount.Sub(result.Moved))

		if toMatch.Equal(onPool) {
			borrow.OnPool = decimal.Zero
		} else {
			borrow.OnPool = number.NonNegative(borrow.OnPool.Sub(peer.ToScaled(toMatch, poolIndex)))
		}
		borrow.InP2P = borrow.InP2P.Add(peer.ToScaled(toMatch, p2pIndex))

		if err := e.updateBorrower(ctx, tx, market, b, borrow); err != nil {
			return nil, err
		}

		result.Moved = result.Moved.Add(toMatch)
	}

	market.BorrowP2PAmount = market.BorrowP2PAmount.Add(peer.ToScaled(result.Moved, p2pIndex))

	e.observe(market, "borrow", "match", result)
	return result, nil
}

// UnmatchBorrowers moves up to amount underlying of the largest in-p2p
// borrowers back onto the pool.
func (e *Engine) UnmatchBorrowers(ctx context.Context, tx *db.DB, market *core.Market, amount decimal.Decimal, budget int64) (*core.MatchResult, error) {
	b, err := e.bookOf(ctx, market)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	poolIndex := market.LastPoolBorrowIndex
	p2pIndex := market.P2PBorrowIndex

	result := &core.MatchResult{Moved: decimal.Zero}
	for result.Moved.LessThan(amount) && result.Iterations < budget {
		user := b.borrowersInP2P.Head()
		if user == "" {
			break
		}
		result.Iterations++

		borrow, err := e.borrowStore.Find(ctx, user, market.AssetID)
		if err != nil {
			return nil, err
		}

		inP2P := peer.ToUnderlying(borrow.InP2P, p2pIndex)
		if !inP2P.IsPositive() {
			return nil, core.ErrUserNotListed
		}
		toMove := number.Min(inP2P, amount.Sub(result.Moved))

		if toMove.Equal(inP2P) {
			borrow.InP2P = decimal.Zero
		} else {
			borrow.InP2P = number.NonNegative(borrow.InP2P.Sub(peer.ToScaled(toMove, p2pIndex)))
		}
		borrow.OnPool = borrow.OnPool.Add(peer.ToScaled(toMove, poolIndex))

		if err := e.updateBorrower(ctx, tx, market, b, borrow); err != nil {
			return nil, err
		}

		result.Moved = result.Moved.Add(toMove)
	}

	market.BorrowP2PAmount = number.NonNegative(market.BorrowP2PAmount.Sub(peer.ToScaled(result.Moved, p2pIndex)))

	e.observe(market, "borrow", "unmatch", result)
	return result, nil
}

// UpdateSupplier the only legal write path for a supply position: persists
// the buckets, resorts both queues and emits the position event.
func (e *Engine) UpdateSupplier(ctx context.Context, tx *db.DB, market *core.Market, supply *core.Supply) error {
	b, err := e.bookOf(ctx, market)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return e.updateSupplier(ctx, tx, market, b, supply)
}

// UpdateBorrower the only legal write path for a borrow position
func (e *Engine) UpdateBorrower(ctx context.Context, tx *db.DB, market *core.Market, borrow *core.Borrow) error {
	b, err := e.bookOf(ctx, market)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return e.updateBorrower(ctx, tx, market, b, borrow)
}

// GrowDelta records shortfall underlying that keeps earning at the pool rate
// inside the p2p bucket. Capped so the delta never exceeds the p2p amount it
// is carved out of.
func (e *Engine) GrowDelta(ctx context.Context, market *core.Market, side core.Side, shortfall decimal.Decimal) error {
	if !shortfall.IsPositive() {
		return nil
	}

	log := logger.FromContext(ctx).WithField("engine", "delta")

	poolIndex := market.PoolIndex(side)
	p2pIndex := market.P2PIndex(side)

	delta := market.Delta(side).Add(peer.ToScaled(shortfall, poolIndex))

	limit := peer.ToScaled(peer.ToUnderlying(market.P2PAmount(side), p2pIndex), poolIndex)
	if delta.GreaterThan(limit) {
		log.Warningln("delta capped at p2p amount", market.AssetID, side)
		delta = limit
	}

	market.SetDelta(side, delta)

	metrics.DeltaGrown.WithLabelValues(market.AssetID, side.String()).
		Add(toFloat(shortfall))
	return nil
}

// ShrinkDelta offsets incoming underlying against the side's delta before
// any queue walk. Returns the amount absorbed, clamped so the delta never
// goes negative.
func (e *Engine) ShrinkDelta(ctx context.Context, market *core.Market, side core.Side, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}

	poolIndex := market.PoolIndex(side)
	delta := market.Delta(side)
	if !delta.IsPositive() {
		return decimal.Zero, nil
	}

	outstanding := peer.ToUnderlying(delta, poolIndex)
	absorbed := number.Min(amount, outstanding)

	if absorbed.Equal(outstanding) {
		market.SetDelta(side, decimal.Zero)
	} else {
		market.SetDelta(side, number.NonNegative(delta.Sub(peer.ToScaled(absorbed, poolIndex))))
	}

	return absorbed, nil
}

func (e *Engine) updateSupplier(ctx context.Context, tx *db.DB, market *core.Market, b *book, supply *core.Supply) error {
	b.suppliersOnPool.Put(supply.UserID, supply.OnPool, market.MaxSortedUsers)
	b.suppliersInP2P.Put(supply.UserID, supply.InP2P, market.MaxSortedUsers)

	if err := e.supplyStore.Update(ctx, tx, supply); err != nil {
		return err
	}

	event := core.BuildPositionEvent(uuid.New(), &core.PositionUpdate{
		UserID:  supply.UserID,
		AssetID: supply.AssetID,
		Side:    core.SideSupply.String(),
		OnPool:  supply.OnPool,
		InP2P:   supply.InP2P,
	})

	if err := e.eventStore.Create(ctx, tx, []*core.PositionEvent{event}); err != nil {
		return err
	}

	metrics.QueueSize.WithLabelValues(market.AssetID, "suppliers_on_pool").Set(float64(b.suppliersOnPool.Len()))
	metrics.QueueSize.WithLabelValues(market.AssetID, "suppliers_in_p2p").Set(float64(b.suppliersInP2P.Len()))
	return nil
}

func (e *Engine) updateBorrower(ctx context.Context, tx *db.DB, market *core.Market, b *book, borrow *core.Borrow) error {
	b.borrowersOnPool.Put(borrow.UserID, borrow.OnPool, market.MaxSortedUsers)
	b.borrowersInP2P.Put(borrow.UserID, borrow.InP2P, market.MaxSortedUsers)

	if err := e.borrowStore.Update(ctx, tx, borrow); err != nil {
		return err
	}

	event := core.BuildPositionEvent(uuid.New(), &core.PositionUpdate{
		UserID:  borrow.UserID,
		AssetID: borrow.AssetID,
		Side:    core.SideBorrow.String(),
		OnPool:  borrow.OnPool,
		InP2P:   borrow.InP2P,
	})

	if err := e.eventStore.Create(ctx, tx, []*core.PositionEvent{event}); err != nil {
		return err
	}

	metrics.QueueSize.WithLabelValues(market.AssetID, "borrowers_on_pool").Set(float64(b.borrowersOnPool.Len()))
	metrics.QueueSize.WithLabelValues(market.AssetID, "borrowers_in_p2p").Set(float64(b.borrowersInP2P.Len()))
	return nil
}

// bookOf returns the market's queues, rebuilding them from storage on
// first touch
func (e *Engine) bookOf(ctx context.Context, market *core.Market) (*book, error) {
	e.mu.Lock()
	b, ok := e.books[market.AssetID]
	if !ok {
		b = &book{
			suppliersOnPool: sortedlist.New(),
			suppliersInP2P:  sortedlist.New(),
			borrowersOnPool: sortedlist.New(),
			borrowersInP2P:  sortedlist.New(),
		}
		e.books[market.AssetID] = b
	}
	e.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.loaded {
		return b, nil
	}

	supplies, err := e.supplyStore.FindByAssetID(ctx, market.AssetID)
	if err != nil {
		return nil, err
	}
	for _, supply := range supplies {
		b.suppliersOnPool.Put(supply.UserID, supply.OnPool, rebuildScanDepth)
		b.suppliersInP2P.Put(supply.UserID, supply.InP2P, rebuildScanDepth)
	}

	borrows, err := e.borrowStore.FindByAssetID(ctx, market.AssetID)
	if err != nil {
		return nil, err
	}
	for _, borrow := range borrows {
		b.borrowersOnPool.Put(borrow.UserID, borrow.OnPool, rebuildScanDepth)
		b.borrowersInP2P.Put(borrow.UserID, borrow.InP2P, rebuildScanDepth)
	}

	b.loaded = true
	return b, nil
}

func (e *Engine) observe(market *core.Market, side, op string, result *core.MatchResult) {
	metrics.MatchedVolume.WithLabelValues(market.AssetID, side, op).Add(toFloat(result.Moved))
	metrics.EngineIterations.WithLabelValues(market.AssetID, op).Add(float64(result.Iterations))
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
