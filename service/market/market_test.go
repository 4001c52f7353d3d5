package market

import (
	"context"
	"testing"
	"time"

	"matchpool/core"
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

func setup(t *testing.T, market *core.Market) (core.IMarketService, *memory.MarketStore, *poolservice.Memory) {
	t.Helper()

	markets := memory.NewMarketStore()
	require.Nil(t, markets.Save(context.Background(), nil, market))

	pool := poolservice.NewMemory()
	pool.AddAsset(&core.PoolAsset{AssetID: testAssetID, Symbol: "CNB", Decimals: 8})

	return New(markets, pool), markets, pool
}

func TestAccrueInterestCompoundsMidRate(t *testing.T) {
	market := &core.Market{
		AssetID:             testAssetID,
		Symbol:              "CNB",
		Cursor:              d("0.5"),
		P2PSupplyIndex:      d("1"),
		P2PBorrowIndex:      d("1"),
		LastPoolSupplyIndex: d("1"),
		LastPoolBorrowIndex: d("1"),
	}
	srv, markets, pool := setup(t, market)
	ctx := context.Background()

	pool.SetIndexes(testAssetID, d("1.08"), d("1.12"))
	require.Nil(t, srv.AccrueInterest(ctx, nil, market, time.Now()))

	// mid rate at cursor 0.5, no delta, no reserve factor
	assert.Equal(t, "1.1", market.P2PSupplyIndex.String())
	assert.Equal(t, "1.1", market.P2PBorrowIndex.String())
	assert.Equal(t, "1.08", market.LastPoolSupplyIndex.String())
	assert.Equal(t, "1.12", market.LastPoolBorrowIndex.String())

	stored, err := markets.Find(ctx, testAssetID)
	require.Nil(t, err)
	assert.Equal(t, "1.1", stored.P2PSupplyIndex.String())
}

func TestAccrueInterestDilutesByDelta(t *testing.T) {
	market := &core.Market{
		AssetID:             testAssetID,
		Symbol:              "CNB",
		Cursor:              d("0.5"),
		P2PSupplyIndex:      d("1"),
		P2PBorrowIndex:      d("1"),
		LastPoolSupplyIndex: d("1"),
		LastPoolBorrowIndex: d("1"),
		SupplyDelta:         d("10"),
		SupplyP2PAmount:     d("20"),
	}
	srv, _, pool := setup(t, market)
	ctx := context.Background()

	// supply growth 1.10, borrow growth 1.00: p2p growth 1.05, half the
	// supply side rides the pool index instead
	pool.SetIndexes(testAssetID, d("1.10"), d("1"))
	require.Nil(t, srv.AccrueInterest(ctx, nil, market, time.Now()))

	assert.Equal(t, "1.075", market.P2PSupplyIndex.String())
}

func TestAccrueInterestRejectsBackwardIndex(t *testing.T) {
	market := &core.Market{
		AssetID:             testAssetID,
		Symbol:              "CNB",
		P2PSupplyIndex:      d("1.2"),
		P2PBorrowIndex:      d("1.2"),
		LastPoolSupplyIndex: d("1.5"),
		LastPoolBorrowIndex: d("1.5"),
	}
	srv, _, pool := setup(t, market)
	ctx := context.Background()

	pool.SetIndexes(testAssetID, d("1.4"), d("1.4"))

	err := srv.AccrueInterest(ctx, nil, market, time.Now())
	assert.Equal(t, core.ErrIndexDecreased, err)
	// nothing moved
	assert.Equal(t, "1.2", market.P2PSupplyIndex.String())
	assert.Equal(t, "1.5", market.LastPoolSupplyIndex.String())
}

func TestPreviewIndexesDoesNotPersist(t *testing.T) {
	market := &core.Market{
		AssetID:             testAssetID,
		Symbol:              "CNB",
		Cursor:              d("0.5"),
		P2PSupplyIndex:      d("1"),
		P2PBorrowIndex:      d("1"),
		LastPoolSupplyIndex: d("1"),
		LastPoolBorrowIndex: d("1"),
	}
	srv, markets, pool := setup(t, market)
	ctx := context.Background()

	pool.SetIndexes(testAssetID, d("1.08"), d("1.12"))

	view, err := srv.PreviewIndexes(ctx, market, time.Now())
	require.Nil(t, err)
	assert.Equal(t, "1.1", view.P2PSupplyIndex.String())
	assert.Equal(t, "1.08", view.PoolSupplyIndex.String())

	stored, err := markets.Find(ctx, testAssetID)
	require.Nil(t, err)
	assert.Equal(t, "1", stored.P2PSupplyIndex.String())
}
