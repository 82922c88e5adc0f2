package repository

import (
	"context"
	"time"

	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TriggerRepository interface {
	// Create inserts a pending trigger. Returns false without error when a
	// row for the same (trading_day, stock_code) already exists.
	Create(ctx context.Context, entry *model.TriggerEntry, opts ...utils.DBOption) (bool, error)
	GetByDay(ctx context.Context, tradingDay time.Time, status *model.TriggerStatus) ([]model.TriggerEntry, error)
	FindByDayAndCode(ctx context.Context, tradingDay time.Time, stockCode string) (*model.TriggerEntry, error)
	Resolve(ctx context.Context, id uint, status model.TriggerStatus, entryPrice *float64, orderNo string, opts ...utils.DBOption) error
	// GetStalePending returns pending triggers older than the cutoff.
	GetStalePending(ctx context.Context, tradingDay time.Time, before time.Time) ([]model.TriggerEntry, error)
}

type triggerRepository struct {
	db *gorm.DB
}

func NewTriggerRepository(db *gorm.DB) TriggerRepository {
	return &triggerRepository{db: db}
}

func (r *triggerRepository) Create(ctx context.Context, entry *model.TriggerEntry, opts ...utils.DBOption) (bool, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "trading_day"}, {Name: "stock_code"}},
			DoNothing: true,
		}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *triggerRepository) GetByDay(ctx context.Context, tradingDay time.Time, status *model.TriggerStatus) ([]model.TriggerEntry, error) {
	var entries []model.TriggerEntry
	db := r.db.WithContext(ctx).Where("trading_day = ?", tradingDay)
	if status != nil {
		db = db.Where("status = ?", *status)
	}
	if err := db.Order("triggered_at").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *triggerRepository) FindByDayAndCode(ctx context.Context, tradingDay time.Time, stockCode string) (*model.TriggerEntry, error) {
	var entry model.TriggerEntry
	err := r.db.WithContext(ctx).
		Where("trading_day = ? AND stock_code = ?", tradingDay, stockCode).
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *triggerRepository) Resolve(ctx context.Context, id uint, status model.TriggerStatus, entryPrice *float64, orderNo string, opts ...utils.DBOption) error {
	updates := map[string]interface{}{
		"status":      status,
		"resolved_at": utils.TimeNowKST(),
	}
	if entryPrice != nil {
		updates["entry_price"] = *entryPrice
	}
	if orderNo != "" {
		updates["order_no"] = orderNo
	}
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.TriggerEntry{}).
		Where("id = ? AND status = ?", id, model.TriggerStatusPending).
		Updates(updates).Error
}

func (r *triggerRepository) GetStalePending(ctx context.Context, tradingDay time.Time, before time.Time) ([]model.TriggerEntry, error) {
	var entries []model.TriggerEntry
	err := r.db.WithContext(ctx).
		Where("trading_day = ? AND status = ? AND triggered_at < ?", tradingDay, model.TriggerStatusPending, before).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
