// Package memory provides in-process store implementations, used by tests
// and the dev mode where no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"matchpool/core"

	"github.com/fox-one/pkg/store/db"
)

// MarketStore in-memory market store
type MarketStore struct {
	mu      sync.Mutex
	markets map[string]*core.Market
}

// NewMarketStore new in-memory market store
func NewMarketStore() *MarketStore {
	return &MarketStore{markets: make(map[string]*core.Market)}
}

func (s *MarketStore) Save(ctx context.Context, tx *db.DB, market *core.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if market.ID == 0 {
		market.ID = uint64(len(s.markets) + 1)
	}
	s.markets[market.AssetID] = market
	return nil
}

func (s *MarketStore) Find(ctx context.Context, assetID string) (*core.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	market, ok := s.markets[assetID]
	if !ok {
		return nil, core.ErrMarketNotFound
	}
	return market, nil
}

func (s *MarketStore) FindBySymbol(ctx context.Context, symbol string) (*core.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, market := range s.markets {
		if market.Symbol == symbol {
			return market, nil
		}
	}
	return nil, core.ErrMarketNotFound
}

func (s *MarketStore) All(ctx context.Context) ([]*core.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	markets := make([]*core.Market, 0, len(s.markets))
	for _, market := range s.markets {
		markets = append(markets, market)
	}
	sort.Slice(markets, func(i, j int) bool { return markets[i].ID < markets[j].ID })
	return markets, nil
}

func (s *MarketStore) AllAsMap(ctx context.Context) (map[string]*core.Market, error) {
	markets, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	maps := make(map[string]*core.Market, len(markets))
	for _, market := range markets {
		maps[market.AssetID] = market
	}
	return maps, nil
}

func (s *MarketStore) Update(ctx context.Context, tx *db.DB, market *core.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	market.Version++
	s.markets[market.AssetID] = market
	return nil
}

// SupplyStore in-memory supply store
type SupplyStore struct {
	mu       sync.Mutex
	supplies map[string]*core.Supply
	nextID   uint64
}

// NewSupplyStore new in-memory supply store
func NewSupplyStore() *SupplyStore {
	return &SupplyStore{supplies: make(map[string]*core.Supply)}
}

func positionKey(userID, assetID string) string {
	return userID + "/" + assetID
}

func (s *SupplyStore) Save(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := positionKey(supply.UserID, supply.AssetID)
	if _, ok := s.supplies[key]; !ok {
		s.nextID++
		supply.ID = s.nextID
		s.supplies[key] = supply
	}
	return nil
}

func (s *SupplyStore) Find(ctx context.Context, userID, assetID string) (*core.Supply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if supply, ok := s.supplies[positionKey(userID, assetID)]; ok {
		out := *supply
		return &out, nil
	}
	return &core.Supply{UserID: userID, AssetID: assetID}, nil
}

func (s *SupplyStore) FindByUser(ctx context.Context, userID string) ([]*core.Supply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.Supply
	for _, supply := range s.supplies {
		if supply.UserID == userID {
			cp := *supply
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *SupplyStore) FindByAssetID(ctx context.Context, assetID string) ([]*core.Supply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.Supply
	for _, supply := range s.supplies {
		if supply.AssetID == assetID {
			cp := *supply
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *SupplyStore) CountOfSuppliers(ctx context.Context, assetID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, supply := range s.supplies {
		if supply.AssetID == assetID && (supply.OnPool.IsPositive() || supply.InP2P.IsPositive()) {
			count++
		}
	}
	return count, nil
}

func (s *SupplyStore) Update(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := positionKey(supply.UserID, supply.AssetID)
	if _, ok := s.supplies[key]; !ok {
		s.nextID++
		supply.ID = s.nextID
	}
	supply.Version++
	cp := *supply
	s.supplies[key] = &cp
	return nil
}

// BorrowStore in-memory borrow store
type BorrowStore struct {
	mu      sync.Mutex
	borrows map[string]*core.Borrow
	nextID  uint64
}

// NewBorrowStore new in-memory borrow store
func NewBorrowStore() *BorrowStore {
	return &BorrowStore{borrows: make(map[string]*core.Borrow)}
}

func (s *BorrowStore) Save(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := positionKey(borrow.UserID, borrow.AssetID)
	if _, ok := s.borrows[key]; !ok {
		s.nextID++
		borrow.ID = s.nextID
		s.borrows[key] = borrow
	}
	return nil
}

func (s *BorrowStore) Find(ctx context.Context, userID, assetID string) (*core.Borrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if borrow, ok := s.borrows[positionKey(userID, assetID)]; ok {
		out := *borrow
		return &out, nil
	}
	return &core.Borrow{UserID: userID, AssetID: assetID}, nil
}

func (s *BorrowStore) FindByUser(ctx context.Context, userID string) ([]*core.Borrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.Borrow
	for _, borrow := range s.borrows {
		if borrow.UserID == userID {
			cp := *borrow
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *BorrowStore) FindByAssetID(ctx context.Context, assetID string) ([]*core.Borrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.Borrow
	for _, borrow := range s.borrows {
		if borrow.AssetID == assetID {
			cp := *borrow
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *BorrowStore) CountOfBorrowers(ctx context.Context, assetID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, borrow := range s.borrows {
		if borrow.AssetID == assetID && (borrow.OnPool.IsPositive() || borrow.InP2P.IsPositive()) {
			count++
		}
	}
	return count, nil
}

func (s *BorrowStore) Update(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := positionKey(borrow.UserID, borrow.AssetID)
	if _, ok := s.borrows[key]; !ok {
		s.nextID++
		borrow.ID = s.nextID
	}
	borrow.Version++
	cp := *borrow
	s.borrows[key] = &cp
	return nil
}

// EventStore in-memory event outbox
type EventStore struct {
	mu     sync.Mutex
	events []*core.PositionEvent
	nextID uint64
}

// NewEventStore new in-memory event store
func NewEventStore() *EventStore {
	return &EventStore{}
}

func (s *EventStore) Create(ctx context.Context, tx *db.DB, events []*core.PositionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		s.nextID++
		e.ID = s.nextID
		s.events = append(s.events, e)
	}
	return nil
}

func (s *EventStore) List(ctx context.Context, fromID uint64, limit int) ([]*core.PositionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.PositionEvent
	for _, e := range s.events {
		if e.ID > fromID {
			out = append(out, e)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *EventStore) Delete(ctx context.Context, events []*core.PositionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[uint64]bool, len(events))
	for _, e := range events {
		drop[e.ID] = true
	}

	kept := s.events[:0]
	for _, e := range s.events {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return nil
}
