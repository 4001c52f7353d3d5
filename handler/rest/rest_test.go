package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"matchpool/core"
	"matchpool/handler/views"
	marketservice "matchpool/service/market"
	"matchpool/service/matching"
	poolservice "matchpool/service/pool"
	positionservice "matchpool/service/position"
	"matchpool/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAssetID = "965e5c6e-434c-3fa9-b780-c50f43cd955c"
	testUserID  = "68b1fba5-7cbd-4cf2-9d3d-1a1e3a0b3f4e"
)

func d(v string) decimal.Decimal {
	out, _ := decimal.NewFromString(v)
	return out
}

type fixture struct {
	api     http.Handler
	borrows *memory.BorrowStore
}

func setup(t *testing.T) *fixture {
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
		Decimals:            8,
		MaxSortedUsers:      16,
		MatchBudget:         32,
		P2PSupplyIndex:      d("1"),
		P2PBorrowIndex:      d("1"),
		LastPoolSupplyIndex: d("1"),
		LastPoolBorrowIndex: d("1"),
	}
	require.Nil(t, markets.Save(ctx, nil, market))

	engine := matching.New(supplies, borrows, events)
	marketSrv := marketservice.New(markets, pool)
	positionSrv := positionservice.New(nil, nil, markets, supplies, borrows, marketSrv, engine, pool)

	return &fixture{
		api:     Handle(markets, supplies, borrows, marketSrv, positionSrv),
		borrows: borrows,
	}
}

func (f *fixture) post(t *testing.T, path, assetID, amount string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]interface{}{
		"asset_id": assetID,
		"amount":   amount,
	})
	require.Nil(t, err)

	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	f.api.ServeHTTP(w, r)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()

	var body struct {
		Code int `json:"code"`
	}
	require.Nil(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Code
}

func TestSupplyThenPositions(t *testing.T) {
	f := setup(t)

	w := f.post(t, fmt.Sprintf("/users/%s/supply", testUserID), testAssetID, "100")
	require.Equal(t, http.StatusOK, w.Code)

	r := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/users/%s/positions", testUserID), nil)
	w = httptest.NewRecorder()
	f.api.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var positions []*views.Position
	require.Nil(t, json.NewDecoder(w.Body).Decode(&positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "supply", positions[0].Side)
	assert.Equal(t, "100", positions[0].Total.String())
}

func TestWithdrawAfterSupply(t *testing.T) {
	f := setup(t)

	w := f.post(t, fmt.Sprintf("/users/%s/supply", testUserID), testAssetID, "100")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.post(t, fmt.Sprintf("/users/%s/withdraw", testUserID), testAssetID, "40")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPositionActionErrorCodes(t *testing.T) {
	f := setup(t)
	path := func(action string) string {
		return fmt.Sprintf("/users/%s/%s", testUserID, action)
	}

	t.Run("negative amount", func(t *testing.T) {
		w := f.post(t, path("supply"), testAssetID, "-1")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, int(core.ErrBadAmount), errCode(t, w))
	})

	t.Run("withdraw without supply", func(t *testing.T) {
		w := f.post(t, path("withdraw"), testAssetID, "10")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, int(core.ErrSupplyNotFound), errCode(t, w))
	})

	t.Run("repay without borrow", func(t *testing.T) {
		w := f.post(t, path("repay"), testAssetID, "10")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, int(core.ErrBorrowNotFound), errCode(t, w))
	})

	t.Run("unknown market", func(t *testing.T) {
		w := f.post(t, path("supply"), "b5524038-1cbb-3b4e-b343-3ee8c6b3a9e0", "10")
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, int(core.ErrMarketNotFound), errCode(t, w))
	})

	t.Run("bad user id", func(t *testing.T) {
		w := f.post(t, "/users/not-a-uuid/supply", testAssetID, "10")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// debt display rounds up at the asset scale
func TestPositionsCeilBorrowDust(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	borrow, err := f.borrows.Find(ctx, testUserID, testAssetID)
	require.Nil(t, err)
	borrow.OnPool = d("0.000000000123")
	require.Nil(t, f.borrows.Update(ctx, nil, borrow))

	r := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/users/%s/positions", testUserID), nil)
	w := httptest.NewRecorder()
	f.api.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var positions []*views.Position
	require.Nil(t, json.NewDecoder(w.Body).Decode(&positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "0.00000001", positions[0].Total.String())
}
