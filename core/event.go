package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

type (
	// PositionEvent outbox row recording every bucket-split change of a
	// position. Emitted even when the net balance is unchanged; insertion
	// order within one operation is the emission order.
	PositionEvent struct {
		ID        uint64         `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id"`
		CreatedAt time.Time      `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
		TraceID   string         `sql:"size:36" json:"trace_id"`
		UserID    string         `sql:"size:36;index:event_user_idx" json:"user_id"`
		AssetID   string         `sql:"size:36" json:"asset_id"`
		Raw       types.JSONText `sql:"type:TEXT" json:"raw"`
	}

	// PositionUpdate event payload
	PositionUpdate struct {
		UserID  string          `json:"user_id"`
		AssetID string          `json:"asset_id"`
		Side    string          `json:"side"`
		OnPool  decimal.Decimal `json:"on_pool"`
		InP2P   decimal.Decimal `json:"in_p2p"`
	}

	// IEventStore position event outbox
	IEventStore interface {
		Create(ctx context.Context, tx *db.DB, events []*PositionEvent) error
		List(ctx context.Context, fromID uint64, limit int) ([]*PositionEvent, error)
		Delete(ctx context.Context, events []*PositionEvent) error
	}

	// Notifier delivers position events to external consumers
	Notifier interface {
		Notify(ctx context.Context, events []*PositionEvent) error
	}
)

// BuildPositionEvent build an outbox row from an update payload
func BuildPositionEvent(traceID string, update *PositionUpdate) *PositionEvent {
	raw, _ := json.Marshal(update)
	return &PositionEvent{
		TraceID: traceID,
		UserID:  update.UserID,
		AssetID: update.AssetID,
		Raw:     raw,
	}
}

// Update decode the payload back
func (e *PositionEvent) Update() (*PositionUpdate, error) {
	var update PositionUpdate
	if err := json.Unmarshal(e.Raw, &update); err != nil {
		return nil, err
	}
	return &update, nil
}
