package views

import (
	"github.com/shopspring/decimal"
)

// Position one side of a user's position in a market, balances rendered
// in underlying units at the current indexes
type Position struct {
	UserID  string          `json:"user_id"`
	AssetID string          `json:"asset_id"`
	Symbol  string          `json:"symbol"`
	Side    string          `json:"side"`
	OnPool  decimal.Decimal `json:"on_pool"`
	InP2P   decimal.Decimal `json:"in_p2p"`
	Total   decimal.Decimal `json:"total"`
}
