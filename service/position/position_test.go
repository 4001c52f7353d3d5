package position

import (
	"context"
	"testing"

	"matchpool/core"
	marketservice "matchpool/service/market"
	"matchpool/service/matching"
	poolservice "matchpool/service/pool"
	"matchpool/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAssetID = "965e5c6e-434c-3fa9-b780-c50f43cd955c"

func d(v string) decimal.Decimal {
	out, _ := decimal.NewFromString(v)
	return out
}

type fixture struct {
	service  core.IPositionService
	markets  *memory.MarketStore
	supplies *memory.SupplyStore
	borrows  *memory.BorrowStore
	pool     *poolservice.Memory
}

func setup(t *testing.T, budget int64, status core.MarketStatus) *fixture {
	t.Helper()
	ctx := context.Background()

	markets := memory.NewMarketStore()
	supplies := memory.NewSupplyStore()
	borrows := memory.NewBorrowStore()
	events := memory.NewEventStore()

	pool := poolservice.NewMemory()
	pool.AddAsset(&core.PoolAsset{AssetID: testAssetID, Symbol: "CNB", Decimals: 8})

	market := &core.Market{
		AssetID:             testAssetID,
		Symbol:              "CNB",
		MaxSortedUsers:      16,
		MatchBudget:         budget,
		Status:              status,
		P2PSupplyIndex:      d("1"),
		P2PBorrowIndex:      d("1"),
		LastPoolSupplyIndex: d("1"),
		LastPoolBorrowIndex: d("1"),
	}
	require.Nil(t, markets.Save(ctx, nil, market))

	engine := matching.New(supplies, borrows, events)
	srv := New(nil, nil, markets, supplies, borrows, marketservice.New(markets, pool), engine, pool)

	return &fixture{
		service:  srv,
		markets:  markets,
		supplies: supplies,
		borrows:  borrows,
		pool:     pool,
	}
}

func (f *fixture) market(t *testing.T) *core.Market {
	t.Helper()

	market, err := f.markets.Find(context.Background(), testAssetID)
	require.Nil(t, err)
	return market
}

func TestSupplyMatchesWaitingBorrower(t *testing.T) {
	f := setup(t, 32, core.MarketStatusOpen)
	ctx := context.Background()

	require.Nil(t, f.service.Borrow(ctx, "bob", testAssetID, d("50")))
	require.Nil(t, f.service.Supply(ctx, "alice", testAssetID, d("80")))

	alice, err := f.supplies.Find(ctx, "alice", testAssetID)
	require.Nil(t, err)
	assert.Equal(t, "30", alice.OnPool.String())
	assert.Equal(t, "50", alice.InP2P.String())

	bob, err := f.borrows.Find(ctx, "bob", testAssetID)
	require.Nil(t, err)
	assert.True(t, bob.OnPool.IsZero())
	assert.Equal(t, "50", bob.InP2P.String())

	market := f.market(t)
	assert.Equal(t, "50", market.SupplyP2PAmount.String())
	assert.Equal(t, "50", market.BorrowP2PAmount.String())

	// bob's pool debt was repaid out of alice's deposit
	assert.Equal(t, "30", f.pool.Supplied(testAssetID).String())
	assert.True(t, f.pool.Borrowed(testAssetID).IsZero())
}

func TestBorrowMatchesWaitingSupplier(t *testing.T) {
	f := setup(t, 32, core.MarketStatusOpen)
	ctx := context.Background()

	require.Nil(t, f.service.Supply(ctx, "alice", testAssetID, d("100")))
	require.Nil(t, f.service.Borrow(ctx, "bob", testAssetID, d("60")))

	alice, err := f.supplies.Find(ctx, "alice", testAssetID)
	require.Nil(t, err)
	assert.Equal(t, "40", alice.OnPool.String())
	assert.Equal(t, "60", alice.InP2P.String())

	bob, err := f.borrows.Find(ctx, "bob", testAssetID)
	require.Nil(t, err)
	assert.True(t, bob.OnPool.IsZero())
	assert.Equal(t, "60", bob.InP2P.String())

	// the borrow was funded by withdrawing alice's matched share
	assert.Equal(t, "40", f.pool.Supplied(testAssetID).String())
	assert.True(t, f.pool.Borrowed(testAssetID).IsZero())
}

func TestWithdrawUnwindsMatch(t *testing.T) {
	f := setup(t, 32, core.MarketStatusOpen)
	ctx := context.Background()

	require.Nil(t, f.service.Supply(ctx, "alice", testAssetID, d("100")))
	require.Nil(t, f.service.Borrow(ctx, "bob", testAssetID, d("60")))
	require.Nil(t, f.service.Withdraw(ctx, "alice", testAssetID, d("100")))

	alice, err := f.supplies.Find(ctx, "alice", testAssetID)
	require.Nil(t, err)
	assert.True(t, alice.OnPool.IsZero())
	assert.True(t, alice.InP2P.IsZero())

	bob, err := f.borrows.Find(ctx, "bob", testAssetID)
	require.Nil(t, err)
	assert.Equal(t, "60", bob.OnPool.String())
	assert.True(t, bob.InP2P.IsZero())

	market := f.market(t)
	assert.True(t, market.SupplyP2PAmount.IsZero())
	assert.True(t, market.BorrowP2PAmount.IsZero())
	assert.True(t, market.BorrowDelta.IsZero())

	// bob's debt is back on the pool
	assert.True(t, f.pool.Supplied(testAssetID).IsZero())
	assert.Equal(t, "60", f.pool.Borrowed(testAssetID).String())
}

func TestWithdrawShortfallGrowsBorrowDelta(t *testing.T) {
	f := setup(t, 1, core.MarketStatusOpen)
	ctx := context.Background()

	require.Nil(t, f.service.Supply(ctx, "alice", testAssetID, d("100")))
	require.Nil(t, f.service.Borrow(ctx, "bob", testAssetID, d("50")))
	require.Nil(t, f.service.Borrow(ctx, "carl", testAssetID, d("30")))

	// budget of one only lets the unwind demote bob; carl stays matched
	// and his share becomes borrow delta
	require.Nil(t, f.service.Withdraw(ctx, "alice", testAssetID, d("100")))

	bob, err := f.borrows.Find(ctx, "bob", testAssetID)
	require.Nil(t, err)
	assert.Equal(t, "50", bob.OnPool.String())
	assert.True(t, bob.InP2P.IsZero())

	carl, err := f.borrows.Find(ctx, "carl", testAssetID)
	require.Nil(t, err)
	assert.True(t, carl.OnPool.IsZero())
	assert.Equal(t, "30", carl.InP2P.String())

	market := f.market(t)
	assert.Equal(t, "30", market.BorrowDelta.String())
	assert.Equal(t, "30", market.BorrowP2PAmount.String())
	assert.True(t, market.SupplyP2PAmount.IsZero())

	// bob's 50 plus carl's delta-backed 30 are drawn from the pool
	assert.True(t, f.pool.Supplied(testAssetID).IsZero())
	assert.Equal(t, "80", f.pool.Borrowed(testAssetID).String())
}

func TestRepayShrinksBorrowDelta(t *testing.T) {
	f := setup(t, 1, core.MarketStatusOpen)
	ctx := context.Background()

	require.Nil(t, f.service.Supply(ctx, "alice", testAssetID, d("100")))
	require.Nil(t, f.service.Borrow(ctx, "bob", testAssetID, d("50")))
	require.Nil(t, f.service.Borrow(ctx, "carl", testAssetID, d("30")))
	require.Nil(t, f.service.Withdraw(ctx, "alice", testAssetID, d("100")))

	require.Nil(t, f.service.Repay(ctx, "carl", testAssetID, d("30")))

	carl, err := f.borrows.Find(ctx, "carl", testAssetID)
	require.Nil(t, err)
	assert.True(t, carl.OnPool.IsZero())
	assert.True(t, carl.InP2P.IsZero())

	market := f.market(t)
	assert.True(t, market.BorrowDelta.IsZero())
	assert.True(t, market.BorrowP2PAmount.IsZero())

	assert.Equal(t, "50", f.pool.Borrowed(testAssetID).String())
}

func TestRepayUnmatchesSupplier(t *testing.T) {
	f := setup(t, 32, core.MarketStatusOpen)
	ctx := context.Background()

	require.Nil(t, f.service.Supply(ctx, "alice", testAssetID, d("100")))
	require.Nil(t, f.service.Borrow(ctx, "bob", testAssetID, d("60")))
	require.Nil(t, f.service.Repay(ctx, "bob", testAssetID, d("60")))

	bob, err := f.borrows.Find(ctx, "bob", testAssetID)
	require.Nil(t, err)
	assert.True(t, bob.OnPool.IsZero())
	assert.True(t, bob.InP2P.IsZero())

	alice, err := f.supplies.Find(ctx, "alice", testAssetID)
	require.Nil(t, err)
	assert.Equal(t, "100", alice.OnPool.String())
	assert.True(t, alice.InP2P.IsZero())

	market := f.market(t)
	assert.True(t, market.SupplyP2PAmount.IsZero())
	assert.True(t, market.BorrowP2PAmount.IsZero())
	assert.True(t, market.SupplyDelta.IsZero())

	assert.Equal(t, "100", f.pool.Supplied(testAssetID).String())
	assert.True(t, f.pool.Borrowed(testAssetID).IsZero())
}

func TestPausedMarketSkipsMatching(t *testing.T) {
	f := setup(t, 32, core.MarketStatusPaused)
	ctx := context.Background()

	require.Nil(t, f.service.Borrow(ctx, "bob", testAssetID, d("40")))
	require.Nil(t, f.service.Supply(ctx, "alice", testAssetID, d("50")))

	alice, err := f.supplies.Find(ctx, "alice", testAssetID)
	require.Nil(t, err)
	assert.Equal(t, "50", alice.OnPool.String())
	assert.True(t, alice.InP2P.IsZero())

	bob, err := f.borrows.Find(ctx, "bob", testAssetID)
	require.Nil(t, err)
	assert.Equal(t, "40", bob.OnPool.String())

	assert.Equal(t, "50", f.pool.Supplied(testAssetID).String())
	assert.Equal(t, "40", f.pool.Borrowed(testAssetID).String())
}

func TestWithdrawRejectsOverdraw(t *testing.T) {
	f := setup(t, 32, core.MarketStatusOpen)
	ctx := context.Background()

	require.Nil(t, f.service.Supply(ctx, "alice", testAssetID, d("10")))

	err := f.service.Withdraw(ctx, "alice", testAssetID, d("11"))
	assert.Equal(t, core.ErrInsufficientBalance, err)

	err = f.service.Supply(ctx, "alice", testAssetID, decimal.Zero)
	assert.Equal(t, core.ErrInvalidAmount, err)
}
