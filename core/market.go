package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// MatchingPausedKey property store switch disabling matching on every market
const MatchingPausedKey = "matchpool_matching_paused"

// MarketStatus market status
type MarketStatus int

const (
	// MarketStatusOpen matching enabled
	MarketStatusOpen MarketStatus = iota
	// MarketStatusPaused matching disabled, positions fall through to the pool
	MarketStatusPaused
)

// Market peer-to-peer matching market over one pool asset
type Market struct {
	ID       uint64 `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
	AssetID  string `sql:"size:36;unique_index:asset_idx" json:"asset_id"`
	Symbol   string `sql:"size:20;unique_index:symbol_idx" json:"symbol"`
	Decimals int32  `sql:"default:8" json:"decimals"`
	// 平台保留金率 (0, 1)
	ReserveFactor decimal.Decimal `sql:"type:decimal(20,8)" json:"reserve_factor"`
	// p2p 利率在池子存借利率之间的位置 [0, 1]
	Cursor decimal.Decimal `sql:"type:decimal(20,8)" json:"cursor"`
	// 排序插入的最大扫描深度
	MaxSortedUsers int64 `sql:"default:16" json:"max_sorted_users"`
	// 单次撮合的迭代预算, 0 表示关闭撮合
	MatchBudget int64 `sql:"default:32" json:"match_budget"`

	// p2p 单位与 underlying 的兑换指数, 只增不减
	P2PSupplyIndex decimal.Decimal `sql:"type:decimal(28,16);default:1" json:"p2p_supply_index"`
	P2PBorrowIndex decimal.Decimal `sql:"type:decimal(28,16);default:1" json:"p2p_borrow_index"`
	// 上次刷新时池子指数的快照
	LastPoolSupplyIndex decimal.Decimal `sql:"type:decimal(28,16);default:1" json:"last_pool_supply_index"`
	LastPoolBorrowIndex decimal.Decimal `sql:"type:decimal(28,16);default:1" json:"last_pool_borrow_index"`
	LastAccruedAt       time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"last_accrued_at"`

	// delta: 承诺在 p2p 但实际仍由池子背书的量, 池子单位
	SupplyDelta decimal.Decimal `sql:"type:decimal(32,16)" json:"supply_delta"`
	BorrowDelta decimal.Decimal `sql:"type:decimal(32,16)" json:"borrow_delta"`
	// p2p 总量, p2p 单位
	SupplyP2PAmount decimal.Decimal `sql:"type:decimal(32,16)" json:"supply_p2p_amount"`
	BorrowP2PAmount decimal.Decimal `sql:"type:decimal(32,16)" json:"borrow_p2p_amount"`

	Status    MarketStatus `sql:"default:0" json:"status"`
	Version   int64        `sql:"default:0" json:"version"`
	CreatedAt time.Time    `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// IsPaused check whether matching is disabled for the market
func (m *Market) IsPaused() bool {
	return m.Status == MarketStatusPaused || m.MatchBudget <= 0
}

// Side side of a market
type Side int

const (
	// SideSupply supplier side
	SideSupply Side = iota
	// SideBorrow borrower side
	SideBorrow
)

func (s Side) String() string {
	if s == SideBorrow {
		return "borrow"
	}
	return "supply"
}

// PoolIndex returns the stored pool index snapshot of the side
func (m *Market) PoolIndex(side Side) decimal.Decimal {
	if side == SideBorrow {
		return m.LastPoolBorrowIndex
	}
	return m.LastPoolSupplyIndex
}

// P2PIndex returns the p2p index of the side
func (m *Market) P2PIndex(side Side) decimal.Decimal {
	if side == SideBorrow {
		return m.P2PBorrowIndex
	}
	return m.P2PSupplyIndex
}

// Delta returns the outstanding unmatched delta of the side, pool units
func (m *Market) Delta(side Side) decimal.Decimal {
	if side == SideBorrow {
		return m.BorrowDelta
	}
	return m.SupplyDelta
}

// P2PAmount returns the total p2p amount of the side, p2p units
func (m *Market) P2PAmount(side Side) decimal.Decimal {
	if side == SideBorrow {
		return m.BorrowP2PAmount
	}
	return m.SupplyP2PAmount
}

// SetDelta set the delta of the side
func (m *Market) SetDelta(side Side, delta decimal.Decimal) {
	if side == SideBorrow {
		m.BorrowDelta = delta
	} else {
		m.SupplyDelta = delta
	}
}

// SetP2PAmount set the total p2p amount of the side
func (m *Market) SetP2PAmount(side Side, amount decimal.Decimal) {
	if side == SideBorrow {
		m.BorrowP2PAmount = amount
	} else {
		m.SupplyP2PAmount = amount
	}
}

// IMarketStore market store interface
type IMarketStore interface {
	Save(ctx context.Context, tx *db.DB, market *Market) error
	Find(ctx context.Context, assetID string) (*Market, error)
	FindBySymbol(ctx context.Context, symbol string) (*Market, error)
	All(ctx context.Context) ([]*Market, error)
	AllAsMap(ctx context.Context) (map[string]*Market, error)
	Update(ctx context.Context, tx *db.DB, market *Market) error
}

// IMarketService market service interface
type IMarketService interface {
	// AccrueInterest refreshes the pool snapshot and both p2p indexes.
	// Mandatory before any matching against the market.
	AccrueInterest(ctx context.Context, tx *db.DB, market *Market, now time.Time) error
	// PreviewIndexes computes current indexes without persisting anything
	PreviewIndexes(ctx context.Context, market *Market, now time.Time) (*MarketIndexes, error)
}

// MarketIndexes read-only view of a market's conversion factors
type MarketIndexes struct {
	PoolSupplyIndex decimal.Decimal `json:"pool_supply_index"`
	PoolBorrowIndex decimal.Decimal `json:"pool_borrow_index"`
	P2PSupplyIndex  decimal.Decimal `json:"p2p_supply_index"`
	P2PBorrowIndex  decimal.Decimal `json:"p2p_borrow_index"`
}
