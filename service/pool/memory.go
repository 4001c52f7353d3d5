package pool

import (
	"context"
	"sync"
	"time"

	"matchpool/core"
	"matchpool/pkg/number"

	"github.com/shopspring/decimal"
)

// Memory in-process pool, used in development and tests. Indexes move only
// when advanced explicitly; balances track what the matching layer has
// parked on or drawn from the pool.
type Memory struct {
	mu sync.Mutex

	assets   map[string]*core.PoolAsset
	indexes  map[string]*core.PoolIndexes
	supplied map[string]decimal.Decimal
	borrowed map[string]decimal.Decimal
}

// NewMemory new in-memory pool
func NewMemory() *Memory {
	return &Memory{
		assets:   make(map[string]*core.PoolAsset),
		indexes:  make(map[string]*core.PoolIndexes),
		supplied: make(map[string]decimal.Decimal),
		borrowed: make(map[string]decimal.Decimal),
	}
}

// AddAsset register an asset with unit indexes
func (p *Memory) AddAsset(asset *core.PoolAsset) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.assets[asset.AssetID] = asset
	p.indexes[asset.AssetID] = &core.PoolIndexes{
		SupplyIndex: decimal.New(1, 0),
		BorrowIndex: decimal.New(1, 0),
		Time:        time.Now(),
	}
}

// SetIndexes drive the pool indexes forward, test hook
func (p *Memory) SetIndexes(assetID string, supplyIndex, borrowIndex decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.indexes[assetID] = &core.PoolIndexes{
		SupplyIndex: supplyIndex,
		BorrowIndex: borrowIndex,
		Time:        time.Now(),
	}
}

// Supplied underlying currently parked on the pool
func (p *Memory) Supplied(assetID string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supplied[assetID]
}

// Borrowed underlying currently drawn from the pool
func (p *Memory) Borrowed(assetID string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.borrowed[assetID]
}

func (p *Memory) Indexes(ctx context.Context, assetID string) (*core.PoolIndexes, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	indexes, ok := p.indexes[assetID]
	if !ok {
		return nil, core.ErrMarketNotFound
	}
	return indexes, nil
}

func (p *Memory) Asset(ctx context.Context, assetID string) (*core.PoolAsset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	asset, ok := p.assets[assetID]
	if !ok {
		return nil, core.ErrMarketNotFound
	}
	return asset, nil
}

func (p *Memory) Supply(ctx context.Context, assetID string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.supplied[assetID] = p.supplied[assetID].Add(amount)
	return nil
}

func (p *Memory) Withdraw(ctx context.Context, assetID string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.supplied[assetID] = number.NonNegative(p.supplied[assetID].Sub(amount))
	return nil
}

func (p *Memory) Borrow(ctx context.Context, assetID string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.borrowed[assetID] = p.borrowed[assetID].Add(amount)
	return nil
}

func (p *Memory) Repay(ctx context.Context, assetID string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.borrowed[assetID] = number.NonNegative(p.borrowed[assetID].Sub(amount))
	return nil
}
