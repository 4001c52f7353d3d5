package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Supply user supply position, split between the pool bucket and the p2p bucket.
// OnPool is denominated in pool units, InP2P in p2p units. A position is never
// deleted, only zeroed.
type Supply struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID    string          `sql:"size:36;unique_index:supply_idx" json:"user_id"`
	AssetID   string          `sql:"size:36;unique_index:supply_idx" json:"asset_id"`
	OnPool    decimal.Decimal `sql:"type:decimal(32,16)" json:"on_pool"`
	InP2P     decimal.Decimal `sql:"type:decimal(32,16)" json:"in_p2p"`
	Version   int64           `sql:"default:0" json:"version"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Borrow user borrow position, same unit split as Supply
type Borrow struct {
	ID        uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	UserID    string          `sql:"size:36;unique_index:borrow_idx" json:"user_id"`
	AssetID   string          `sql:"size:36;unique_index:borrow_idx" json:"asset_id"`
	OnPool    decimal.Decimal `sql:"type:decimal(32,16)" json:"on_pool"`
	InP2P     decimal.Decimal `sql:"type:decimal(32,16)" json:"in_p2p"`
	Version   int64           `sql:"default:0" json:"version"`
	CreatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ISupplyStore supply store interface
type ISupplyStore interface {
	Save(ctx context.Context, tx *db.DB, supply *Supply) error
	Find(ctx context.Context, userID, assetID string) (*Supply, error)
	FindByUser(ctx context.Context, userID string) ([]*Supply, error)
	FindByAssetID(ctx context.Context, assetID string) ([]*Supply, error)
	CountOfSuppliers(ctx context.Context, assetID string) (int64, error)
	Update(ctx context.Context, tx *db.DB, supply *Supply) error
}

// IBorrowStore borrow store interface
type IBorrowStore interface {
	Save(ctx context.Context, tx *db.DB, borrow *Borrow) error
	Find(ctx context.Context, userID, assetID string) (*Borrow, error)
	FindByUser(ctx context.Context, userID string) ([]*Borrow, error)
	FindByAssetID(ctx context.Context, assetID string) ([]*Borrow, error)
	CountOfBorrowers(ctx context.Context, assetID string) (int64, error)
	Update(ctx context.Context, tx *db.DB, borrow *Borrow) error
}
