package views

import (
	"matchpool/core"

	"github.com/shopspring/decimal"
)

// Market market view with freshly previewed indexes
type Market struct {
	core.Market
	CurrentP2PSupplyIndex decimal.Decimal `json:"current_p2p_supply_index"`
	CurrentP2PBorrowIndex decimal.Decimal `json:"current_p2p_borrow_index"`
	Suppliers             int64           `json:"suppliers"`
	Borrowers             int64           `json:"borrowers"`
}
