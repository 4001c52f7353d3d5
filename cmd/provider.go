package cmd

import (
	"time"

	"matchpool/core"
	marketservice "matchpool/service/market"
	"matchpool/service/matching"
	"matchpool/service/notifier"
	poolservice "matchpool/service/pool"
	"matchpool/service/position"
	"matchpool/store/borrow"
	"matchpool/store/event"
	"matchpool/store/market"
	"matchpool/store/memory"
	"matchpool/store/supply"

	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
)

func provideDatabase() *db.DB {
	// no database configured means the in-memory dev mode
	if cfg.DB.Dialect == "" {
		return nil
	}

	return db.MustOpen(cfg.DB)
}

func provideConfig() *core.Config {
	return &cfg
}

// ---------------store-----------------------------------------

func providePropertyStore(database *db.DB) property.Store {
	if database == nil {
		return nil
	}

	return propertystore.New(database)
}

func provideMarketStore(database *db.DB) core.IMarketStore {
	if database == nil {
		return memory.NewMarketStore()
	}

	return market.New(database)
}

func provideSupplyStore(database *db.DB) core.ISupplyStore {
	if database == nil {
		return memory.NewSupplyStore()
	}

	return supply.Cache(supply.New(database), time.Second)
}

func provideBorrowStore(database *db.DB) core.IBorrowStore {
	if database == nil {
		return memory.NewBorrowStore()
	}

	return borrow.New(database)
}

func provideEventStore(database *db.DB) core.IEventStore {
	if database == nil {
		return memory.NewEventStore()
	}

	return event.New(database)
}

// ------------------service------------------------------------

func providePool() core.Pool {
	if cfg.Pool.Memory {
		return poolservice.NewMemory()
	}

	return poolservice.New(cfg.Pool)
}

func provideMarketService(marketStore core.IMarketStore, pool core.Pool) core.IMarketService {
	return marketservice.New(marketStore, pool)
}

func provideMatchingEngine(
	supplyStore core.ISupplyStore,
	borrowStore core.IBorrowStore,
	eventStore core.IEventStore,
) core.IMatchingEngine {
	return matching.New(supplyStore, borrowStore, eventStore)
}

func provideNotifier() core.Notifier {
	return notifier.New(cfg.Notifier.Endpoint)
}

func providePositionService(
	database *db.DB,
	propertyStore property.Store,
	marketStore core.IMarketStore,
	supplyStore core.ISupplyStore,
	borrowStore core.IBorrowStore,
	marketService core.IMarketService,
	engine core.IMatchingEngine,
	pool core.Pool,
) core.IPositionService {
	return position.New(
		database,
		propertyStore,
		marketStore,
		supplyStore,
		borrowStore,
		marketService,
		engine,
		pool,
	)
}
