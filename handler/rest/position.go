package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"matchpool/core"
	"matchpool/handler/render"
	"matchpool/handler/views"
	"matchpool/internal/peer"
	"matchpool/pkg/number"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

func userPositionsHandler(marketStr core.IMarketStore, supplyStr core.ISupplyStore, borrowStr core.IBorrowStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID := chi.URLParam(r, "user")
		if !govalidator.IsUUID(userID) {
			render.BadRequest(w, errors.New("invalid user id"))
			return
		}

		markets, err := marketStr.AllAsMap(ctx)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		positions := make([]*views.Position, 0)

		supplies, err := supplyStr.FindByUser(ctx, userID)
		if err != nil {
			render.BadRequest(w, err)
			return
		}
		for _, supply := range supplies {
			market, ok := markets[supply.AssetID]
			if !ok {
				continue
			}

			onPool := peer.ToUnderlying(supply.OnPool, market.LastPoolSupplyIndex)
			inP2P := peer.ToUnderlying(supply.InP2P, market.P2PSupplyIndex)
			positions = append(positions, &views.Position{
				UserID:  supply.UserID,
				AssetID: supply.AssetID,
				Symbol:  market.Symbol,
				Side:    core.SideSupply.String(),
				OnPool:  onPool,
				InP2P:   inP2P,
				Total:   onPool.Add(inP2P),
			})
		}

		borrows, err := borrowStr.FindByUser(ctx, userID)
		if err != nil {
			render.BadRequest(w, err)
			return
		}
		for _, borrow := range borrows {
			market, ok := markets[borrow.AssetID]
			if !ok {
				continue
			}

			// debt rounds up at the asset scale, dust owed stays visible
			onPool := number.Ceil(peer.ToUnderlying(borrow.OnPool, market.LastPoolBorrowIndex), market.Decimals)
			inP2P := number.Ceil(peer.ToUnderlying(borrow.InP2P, market.P2PBorrowIndex), market.Decimals)
			positions = append(positions, &views.Position{
				UserID:  borrow.UserID,
				AssetID: borrow.AssetID,
				Symbol:  market.Symbol,
				Side:    core.SideBorrow.String(),
				OnPool:  onPool,
				InP2P:   inP2P,
				Total:   onPool.Add(inP2P),
			})
		}

		render.JSON(w, positions)
	}
}

type positionAction func(ctx context.Context, userID, assetID string, amount decimal.Decimal) error

// positionActionHandler drives one position operation of the side. The
// body carries the asset and the amount in underlying units.
func positionActionHandler(side core.Side, act positionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID := chi.URLParam(r, "user")
		if !govalidator.IsUUID(userID) {
			render.BadRequest(w, errors.New("invalid user id"))
			return
		}

		var params struct {
			AssetID string          `json:"asset_id"`
			Amount  decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			render.Error(w, http.StatusBadRequest, int(core.ErrBadAmount), err)
			return
		}

		if err := act(ctx, userID, params.AssetID, params.Amount); err != nil {
			renderPositionError(w, side, err)
			return
		}

		render.JSON(w, render.H{})
	}
}

func renderPositionError(w http.ResponseWriter, side core.Side, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		render.Error(w, http.StatusBadRequest, int(core.ErrBadAmount), err)
	case errors.Is(err, core.ErrInsufficientBalance):
		code := core.ErrSupplyNotFound
		if side == core.SideBorrow {
			code = core.ErrBorrowNotFound
		}
		render.Error(w, http.StatusBadRequest, int(code), err)
	case errors.Is(err, core.ErrMarketNotFound):
		render.Error(w, http.StatusNotFound, int(core.ErrMarketNotFound), err)
	default:
		render.Error(w, http.StatusInternalServerError, int(core.ErrUnknown), err)
	}
}
