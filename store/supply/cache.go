package supply

import (
	"context"
	"fmt"
	"time"

	"matchpool/core"

	"github.com/bluele/gcache"
	"github.com/fox-one/pkg/store/db"
	"golang.org/x/sync/singleflight"
)

// Cache wraps a supply store with a read-through LRU on Find
func Cache(store core.ISupplyStore, exp time.Duration) core.ISupplyStore {
	return &cacheSupplyStore{
		ISupplyStore: store,
		cache:        gcache.New(2048).LRU().Expiration(exp).Build(),
		sf:           &singleflight.Group{},
	}
}

type cacheSupplyStore struct {
	core.ISupplyStore
	cache gcache.Cache
	sf    *singleflight.Group
}

func (s *cacheSupplyStore) Find(ctx context.Context, userID, assetID string) (*core.Supply, error) {
	key := s.supplyKey(userID, assetID)
	if v, err := s.cache.Get(key); err == nil {
		if supply, ok := v.(*core.Supply); ok {
			return supply, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		supply, err := s.ISupplyStore.Find(ctx, userID, assetID)
		if err != nil {
			return nil, err
		}
		if supply.ID > 0 {
			_ = s.cache.Set(key, supply)
		}
		return supply, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*core.Supply), nil
}

func (s *cacheSupplyStore) Update(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	if err := s.ISupplyStore.Update(ctx, tx, supply); err != nil {
		return err
	}

	s.cache.Remove(s.supplyKey(supply.UserID, supply.AssetID))
	return nil
}

func (s *cacheSupplyStore) Save(ctx context.Context, tx *db.DB, supply *core.Supply) error {
	if err := s.ISupplyStore.Save(ctx, tx, supply); err != nil {
		return err
	}

	s.cache.Remove(s.supplyKey(supply.UserID, supply.AssetID))
	return nil
}

func (s *cacheSupplyStore) supplyKey(userID, assetID string) string {
	return fmt.Sprintf("supply:%s:%s", userID, assetID)
}
