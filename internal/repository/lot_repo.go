package repository

import (
	"context"
	"strings"
	"time"

	"krx-autotrade/internal/model"
	"krx-autotrade/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LotRepository interface {
	Get(ctx context.Context, param model.GetLotsParam, opts ...utils.DBOption) ([]model.Lot, error)
	// GetOpenForReduction returns open lots for one reduction key created
	// before the given date, newest trade date first, locked for update.
	GetOpenForReduction(ctx context.Context, key model.LotKey, before time.Time, opts ...utils.DBOption) ([]model.Lot, error)
	// GetOpenGenericCredit returns open credit lots of a symbol created
	// before the given date, newest first, for blanket credit repayments.
	GetOpenGenericCredit(ctx context.Context, stockCode string, before time.Time, opts ...utils.DBOption) ([]model.Lot, error)
	FindByKeyAndDate(ctx context.Context, key model.LotKey, tradeDate time.Time, opts ...utils.DBOption) (*model.Lot, error)
	Upsert(ctx context.Context, lot *model.Lot, opts ...utils.DBOption) error
	Update(ctx context.Context, lot *model.Lot, opts ...utils.DBOption) error
	GetOpenSummaries(ctx context.Context, opts ...utils.DBOption) ([]model.LotSummary, error)
	DeleteByTradeDateRange(ctx context.Context, from, to time.Time, opts ...utils.DBOption) (int64, error)
	GetOpenStockCodes(ctx context.Context) ([]string, error)
}

type lotRepository struct {
	db *gorm.DB
}

func NewLotRepository(db *gorm.DB) LotRepository {
	return &lotRepository{db: db}
}

func (r *lotRepository) Get(ctx context.Context, param model.GetLotsParam, opts ...utils.DBOption) ([]model.Lot, error) {
	var lots []model.Lot

	qFilter := []string{}
	qFilterParam := []interface{}{}

	if param.StockCode != "" {
		qFilter = append(qFilter, "stock_code = ?")
		qFilterParam = append(qFilterParam, param.StockCode)
	}
	if param.CreditClass != nil {
		qFilter = append(qFilter, "credit_class = ?")
		qFilterParam = append(qFilterParam, *param.CreditClass)
	}
	if param.IsClosed != nil {
		qFilter = append(qFilter, "is_closed = ?")
		qFilterParam = append(qFilterParam, *param.IsClosed)
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
	if param.Limit != nil {
		db = db.Limit(*param.Limit)
	}

	if err := db.Order("trade_date DESC, stock_code").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *lotRepository) GetOpenForReduction(ctx context.Context, key model.LotKey, before time.Time, opts ...utils.DBOption) ([]model.Lot, error) {
	var lots []model.Lot
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stock_code = ? AND credit_class = ? AND loan_date = ? AND is_closed = false AND net_quantity > 0 AND trade_date < ?",
			key.StockCode, key.CreditClass, key.LoanDate, before).
		Order("trade_date DESC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *lotRepository) GetOpenGenericCredit(ctx context.Context, stockCode string, before time.Time, opts ...utils.DBOption) ([]model.Lot, error) {
	var lots []model.Lot
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stock_code = ? AND credit_class = ? AND is_closed = false AND net_quantity > 0 AND trade_date < ?",
			stockCode, model.CreditClassCredit, before).
		Order("trade_date DESC, loan_date DESC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *lotRepository) FindByKeyAndDate(ctx context.Context, key model.LotKey, tradeDate time.Time, opts ...utils.DBOption) (*model.Lot, error) {
	var lot model.Lot
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("stock_code = ? AND credit_class = ? AND loan_date = ? AND trade_date = ?",
			key.StockCode, key.CreditClass, key.LoanDate, tradeDate).
		First(&lot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

func (r *lotRepository) Upsert(ctx context.Context, lot *model.Lot, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "stock_code"}, {Name: "credit_class"}, {Name: "loan_date"}, {Name: "trade_date"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"stock_name", "net_quantity", "avg_purchase_price", "total_cost",
				"is_closed", "closed_date", "realized_pnl", "source", "updated_at",
			}),
		}).
		Create(lot).Error
}

func (r *lotRepository) Update(ctx context.Context, lot *model.Lot, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Lot{}).
		Where("id = ?", lot.ID).
		Select("net_quantity", "avg_purchase_price", "total_cost", "current_price",
			"holding_days", "unrealized_pnl", "unrealized_return_pct",
			"is_closed", "closed_date", "realized_pnl").
		Updates(lot).Error
}

func (r *lotRepository) GetOpenSummaries(ctx context.Context, opts ...utils.DBOption) ([]model.LotSummary, error) {
	var summaries []model.LotSummary
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Lot{}).
		Select(`stock_code, MAX(stock_name) AS stock_name, credit_class,
			SUM(net_quantity) AS total_qty,
			SUM(total_cost) / NULLIF(SUM(net_quantity), 0) AS avg_price,
			SUM(total_cost) AS total_cost,
			MAX(COALESCE(current_price, 0)) AS current_price`).
		Where("is_closed = false AND net_quantity > 0").
		Group("stock_code, credit_class").
		Order("stock_code").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *lotRepository) DeleteByTradeDateRange(ctx context.Context, from, to time.Time, opts ...utils.DBOption) (int64, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("trade_date >= ? AND trade_date <= ?", from, to).
		Delete(&model.Lot{})
	return result.RowsAffected, result.Error
}

func (r *lotRepository) GetOpenStockCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&model.Lot{}).
		Distinct("stock_code").
		Where("is_closed = false AND net_quantity > 0").
		Pluck("stock_code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}
