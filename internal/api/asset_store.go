package api

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"mailcanvas/internal/database"
)

// assetStore 抽象资产登记表的读写，便于测试替换。
type assetStore interface {
	Create(ctx context.Context, asset database.Asset) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]database.Asset, error)
	DeleteByKey(ctx context.Context, userID uint, objectKey string) (bool, error)
}

type gormAssetStore struct {
	db *gorm.DB
}

func newGormAssetStore(db *gorm.DB) *gormAssetStore {
	return &gormAssetStore{db: db}
}

func (s *gormAssetStore) Create(ctx context.Context, asset database.Asset) error {
	return s.db.WithContext(ctx).Create(&asset).Error
}

func (s *gormAssetStore) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&database.Asset{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (s *gormAssetStore) ListByUser(ctx context.Context, userID uint, limit int) ([]database.Asset, error) {
	var assets []database.Asset
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&assets).Error
	return assets, err
}

func (s *gormAssetStore) DeleteByKey(ctx context.Context, userID uint, objectKey string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND object_key = ?", userID, objectKey).
		Delete(&database.Asset{})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
