package repository

import (
	"context"

	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WatchlistRepository interface {
	GetActive(ctx context.Context) ([]model.WatchlistItem, error)
	FindByCode(ctx context.Context, stockCode string) (*model.WatchlistItem, error)
	Upsert(ctx context.Context, item *model.WatchlistItem, opts ...utils.DBOption) error
	SetActive(ctx context.Context, stockCode string, active bool, opts ...utils.DBOption) error
}

type watchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) WatchlistRepository {
	return &watchlistRepository{db: db}
}

func (r *watchlistRepository) GetActive(ctx context.Context) ([]model.WatchlistItem, error) {
	var items []model.WatchlistItem
	if err := r.db.WithContext(ctx).Where("is_active = true").Order("stock_code").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *watchlistRepository) FindByCode(ctx context.Context, stockCode string) (*model.WatchlistItem, error) {
	var item model.WatchlistItem
	err := r.db.WithContext(ctx).Where("stock_code = ?", stockCode).First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *watchlistRepository) Upsert(ctx context.Context, item *model.WatchlistItem, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stock_code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"stock_name", "reference_price", "stop_loss_pct", "max_units", "is_active", "updated_at",
			}),
		}).
		Create(item).Error
}

func (r *watchlistRepository) SetActive(ctx context.Context, stockCode string, active bool, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.WatchlistItem{}).
		Where("stock_code = ?", stockCode).
		Update("is_active", active).Error
}
