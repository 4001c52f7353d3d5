package event

import (
	"context"

	"matchpool/core"

	"github.com/fox-one/pkg/store/db"
)

type eventStore struct {
	db *db.DB
}

// New new position event store
func New(db *db.DB) core.IEventStore {
	return &eventStore{db: db}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.PositionEvent{})
		if err := tx.AutoMigrate(core.PositionEvent{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *eventStore) Create(ctx context.Context, tx *db.DB, events []*core.PositionEvent) error {
	for _, e := range events {
		if err := tx.Update().Create(e).Error; err != nil {
			return err
		}
	}

	return nil
}

// List returns events after fromID in insertion order, which is the
// emission order inside each operation
func (s *eventStore) List(ctx context.Context, fromID uint64, limit int) ([]*core.PositionEvent, error) {
	var events []*core.PositionEvent
	if err := s.db.View().Where("id > ?", fromID).Order("id ASC").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (s *eventStore) Delete(ctx context.Context, events []*core.PositionEvent) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]uint64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}

	return s.db.Update().Where("id in (?)", ids).Delete(core.PositionEvent{}).Error
}
