package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PoolIndexes pool index snapshot reported by the underlying protocol
type PoolIndexes struct {
	SupplyIndex decimal.Decimal `json:"supply_index"`
	BorrowIndex decimal.Decimal `json:"borrow_index"`
	Time        time.Time       `json:"time"`
}

// PoolAsset underlying asset identity, used to bootstrap market scale
type PoolAsset struct {
	AssetID  string `json:"asset_id"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// Pool is the external base lending protocol. Consumed as an opaque
// collaborator: the matching layer never reimplements its interest model.
type Pool interface {
	// Indexes returns the current supply and borrow indexes of the asset
	Indexes(ctx context.Context, assetID string) (*PoolIndexes, error)
	// Asset resolves the underlying asset of a market
	Asset(ctx context.Context, assetID string) (*PoolAsset, error)
	// Supply deposits underlying into the pool on behalf of the protocol
	Supply(ctx context.Context, assetID string, amount decimal.Decimal) error
	// Withdraw pulls underlying out of the pool
	Withdraw(ctx context.Context, assetID string, amount decimal.Decimal) error
	// Borrow draws underlying from the pool against the protocol position
	Borrow(ctx context.Context, assetID string, amount decimal.Decimal) error
	// Repay pays back pool debt of the protocol position
	Repay(ctx context.Context, assetID string, amount decimal.Decimal) error
}
