package borrow

import (
	"context"

	"matchpool/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type borrowStore struct {
	db *db.DB
}

// New new borrow store
func New(db *db.DB) core.IBorrowStore {
	return &borrowStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Borrow{})
		if err := tx.AutoMigrate(core.Borrow{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *borrowStore) Save(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	if err := tx.Update().Where("user_id=? and asset_id=?", borrow.UserID, borrow.AssetID).FirstOrCreate(borrow).Error; err != nil {
		return err
	}

	return nil
}

// Find returns the position, a zero position (ID 0) when the user never
// borrowed the asset
func (s *borrowStore) Find(ctx context.Context, userID, assetID string) (*core.Borrow, error) {
	var borrow core.Borrow
	if err := s.db.View().Where("user_id=? and asset_id=?", userID, assetID).First(&borrow).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return &core.Borrow{UserID: userID, AssetID: assetID}, nil
		}
		return nil, err
	}

	return &borrow, nil
}

func (s *borrowStore) FindByUser(ctx context.Context, userID string) ([]*core.Borrow, error) {
	var borrows []*core.Borrow
	if err := s.db.View().Where("user_id=?", userID).Find(&borrows).Error; err != nil {
		return nil, err
	}

	return borrows, nil
}

func (s *borrowStore) FindByAssetID(ctx context.Context, assetID string) ([]*core.Borrow, error) {
	var borrows []*core.Borrow
	if err := s.db.View().Where("asset_id=?", assetID).Find(&borrows).Error; err != nil {
		return nil, err
	}

	return borrows, nil
}

func (s *borrowStore) CountOfBorrowers(ctx context.Context, assetID string) (int64, error) {
	var count int64
	if err := s.db.View().Model(core.Borrow{}).Where("asset_id=? and (on_pool>0 or in_p2p>0)", assetID).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (s *borrowStore) Update(ctx context.Context, tx *db.DB, borrow *core.Borrow) error {
	if borrow.ID == 0 {
		return s.Save(ctx, tx, borrow)
	}

	version := borrow.Version
	borrow.Version++
	if err := tx.Update().Model(core.Borrow{}).Where("id=? and version=?", borrow.ID, version).Update(borrow).Error; err != nil {
		return err
	}

	return nil
}
