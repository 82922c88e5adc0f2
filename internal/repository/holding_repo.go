package repository

import (
	"context"
	"time"

	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type HoldingRepository interface {
	// ReplaceSnapshot swaps the full holdings set for one date. Call inside a
	// unit of work so a failed sync never leaves a half-written snapshot.
	ReplaceSnapshot(ctx context.Context, date time.Time, holdings []model.HoldingSnapshot, opts ...utils.DBOption) error
	GetByDate(ctx context.Context, date time.Time, opts ...utils.DBOption) ([]model.HoldingSnapshot, error)
	DeleteOlderThan(ctx context.Context, date time.Time, opts ...utils.DBOption) (int64, error)
}

type holdingRepository struct {
	db *gorm.DB
}

func NewHoldingRepository(db *gorm.DB) HoldingRepository {
	return &holdingRepository{db: db}
}

func (r *holdingRepository) ReplaceSnapshot(ctx context.Context, date time.Time, holdings []model.HoldingSnapshot, opts ...utils.DBOption) error {
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)

	if err := db.Where("snapshot_date = ?", date).Delete(&model.HoldingSnapshot{}).Error; err != nil {
		return err
	}
	if len(holdings) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "snapshot_date"}, {Name: "stock_code"}, {Name: "credit_class"}, {Name: "loan_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"stock_name", "quantity", "avg_price", "current_price", "updated_at"}),
	}).Create(&holdings).Error
}

func (r *holdingRepository) GetByDate(ctx context.Context, date time.Time, opts ...utils.DBOption) ([]model.HoldingSnapshot, error) {
	var holdings []model.HoldingSnapshot
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("snapshot_date = ?", date).
		Order("stock_code").
		Find(&holdings).Error
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

func (r *holdingRepository) DeleteOlderThan(ctx context.Context, date time.Time, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("snapshot_date < ?", date).
		Delete(&model.HoldingSnapshot{})
	return result.RowsAffected, result.Error
}
