package repository

import (
	"context"
	"strings"

	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TradeFillRepository interface {
	// UpsertBatch inserts fills, skipping those already synced. Returns the
	// number of new rows.
	UpsertBatch(ctx context.Context, fills []model.TradeFill, opts ...utils.DBOption) (int64, error)
	Get(ctx context.Context, param model.GetTradeFillsParam, opts ...utils.DBOption) ([]model.TradeFill, error)
}

type tradeFillRepository struct {
	db *gorm.DB
}

func NewTradeFillRepository(db *gorm.DB) TradeFillRepository {
	return &tradeFillRepository{db: db}
}

func (r *tradeFillRepository) UpsertBatch(ctx context.Context, fills []model.TradeFill, opts ...utils.DBOption) (int64, error) {
	if len(fills) == 0 {
		return 0, nil
	}
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_no"}, {Name: "trade_date"}},
			DoNothing: true,
		}).
		Create(&fills)
	return result.RowsAffected, result.Error
}

func (r *tradeFillRepository) Get(ctx context.Context, param model.GetTradeFillsParam, opts ...utils.DBOption) ([]model.TradeFill, error) {
	var fills []model.TradeFill

	qFilter := []string{}
	qFilterParam := []interface{}{}

	if param.StockCode != "" {
		qFilter = append(qFilter, "stock_code = ?")
		qFilterParam = append(qFilterParam, param.StockCode)
	}
	if param.DateFrom != nil {
		qFilter = append(qFilter, "trade_date >= ?")
		qFilterParam = append(qFilterParam, *param.DateFrom)
	}
	if param.DateTo != nil {
		qFilter = append(qFilter, "trade_date <= ?")
		qFilterParam = append(qFilterParam, *param.DateTo)
	}

	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	if len(qFilter) > 0 {
		db = db.Where(strings.Join(qFilter, " AND "), qFilterParam...)
	}

	if err := db.Order("trade_date, order_time, order_no").Find(&fills).Error; err != nil {
		return nil, err
	}
	return fills, nil
}
