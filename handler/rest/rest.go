package rest

import (
	"errors"
	"net/http"

	"matchpool/core"
	"matchpool/handler/render"

	"github.com/go-chi/chi"
)

// Handle handle rest api request
func Handle(
	marketStore core.IMarketStore,
	supplyStore core.ISupplyStore,
	borrowStore core.IBorrowStore,
	marketService core.IMarketService,
	positionService core.IPositionService,
) http.Handler {
	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/markets", allMarketsHandler(marketStore, supplyStore, borrowStore, marketService))
	router.Get("/markets/{asset}", marketHandler(marketStore, supplyStore, borrowStore, marketService))
	router.Get("/users/{user}/positions", userPositionsHandler(marketStore, supplyStore, borrowStore))

	router.Post("/users/{user}/supply", positionActionHandler(core.SideSupply, positionService.Supply))
	router.Post("/users/{user}/withdraw", positionActionHandler(core.SideSupply, positionService.Withdraw))
	router.Post("/users/{user}/borrow", positionActionHandler(core.SideBorrow, positionService.Borrow))
	router.Post("/users/{user}/repay", positionActionHandler(core.SideBorrow, positionService.Repay))

	return router
}
