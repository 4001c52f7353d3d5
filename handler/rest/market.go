package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"matchpool/core"
	"matchpool/handler/render"
	"matchpool/handler/views"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi"
)

func allMarketsHandler(marketStr core.IMarketStore, supplyStr core.ISupplyStore, borrowStr core.IBorrowStore, marketSrv core.IMarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		markets, err := marketStr.All(ctx)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		marketViews := make([]*views.Market, 0, len(markets))
		for _, m := range markets {
			marketViews = append(marketViews, getMarketView(ctx, m, supplyStr, borrowStr, marketSrv))
		}

		render.JSON(w, marketViews)
	}
}

func marketHandler(marketStr core.IMarketStore, supplyStr core.ISupplyStore, borrowStr core.IBorrowStore, marketSrv core.IMarketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		market, err := findMarket(ctx, marketStr, chi.URLParam(r, "asset"))
		if err != nil {
			render.Error(w, http.StatusNotFound, int(core.ErrMarketNotFound), err)
			return
		}

		render.JSON(w, getMarketView(ctx, market, supplyStr, borrowStr, marketSrv))
	}
}

// findMarket accepts either the asset id or the symbol
func findMarket(ctx context.Context, marketStr core.IMarketStore, key string) (*core.Market, error) {
	if govalidator.IsUUID(key) {
		return marketStr.Find(ctx, key)
	}

	return marketStr.FindBySymbol(ctx, strings.ToUpper(key))
}

func getMarketView(ctx context.Context, market *core.Market, supplyStr core.ISupplyStore, borrowStr core.IBorrowStore, marketSrv core.IMarketService) *views.Market {
	view := views.Market{
		Market:                *market,
		CurrentP2PSupplyIndex: market.P2PSupplyIndex,
		CurrentP2PBorrowIndex: market.P2PBorrowIndex,
	}

	if indexes, err := marketSrv.PreviewIndexes(ctx, market, time.Now()); err == nil {
		view.CurrentP2PSupplyIndex = indexes.P2PSupplyIndex
		view.CurrentP2PBorrowIndex = indexes.P2PBorrowIndex
	}

	if count, err := supplyStr.CountOfSuppliers(ctx, market.AssetID); err == nil {
		view.Suppliers = count
	}

	if count, err := borrowStr.CountOfBorrowers(ctx, market.AssetID); err == nil {
		view.Borrowers = count
	}

	return &view
}
