package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// IPositionService user-facing position management. Each operation accrues
// the market, drives the matching engine and settles the difference with the
// pool inside one transaction.
type IPositionService interface {
	Supply(ctx context.Context, userID, assetID string, amount decimal.Decimal) error
	Withdraw(ctx context.Context, userID, assetID string, amount decimal.Decimal) error
	Borrow(ctx context.Context, userID, assetID string, amount decimal.Decimal) error
	Repay(ctx context.Context, userID, assetID string, amount decimal.Decimal) error
}
