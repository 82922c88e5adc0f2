package model

import (
	"strings"
	"time"
)

// TradeFill is one executed fill from the brokerage trade history. Fills are
// the raw input for daily net-delta lot construction; they are never edited
// after sync.
type TradeFill struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNo     string      `gorm:"not null;uniqueIndex:idx_fill_order" json:"order_no"`
	StockCode   string      `gorm:"not null;index" json:"stock_code"`
	StockName   string      `json:"stock_name"`
	SideName    string      `gorm:"not null" json:"side_name"`
	CreditClass CreditClass `gorm:"type:varchar(10);not null" json:"credit_class"`
	LoanDate    string      `gorm:"type:varchar(8);not null;default:''" json:"loan_date"`
	TradeDate   time.Time   `gorm:"type:date;not null;index;uniqueIndex:idx_fill_order" json:"trade_date"`
	OrderTime   string      `gorm:"type:varchar(6)" json:"order_time"`
	Quantity    int64       `gorm:"not null" json:"quantity"`
	Price       float64     `gorm:"not null" json:"price"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func (TradeFill) TableName() string {
	return "account_trade_history"
}

// The brokerage reports the side as a free-form Korean name. Repayment
// variants ("상환") reduce positions the same way sells do.
func (f *TradeFill) IsBuy() bool {
	return strings.Contains(f.SideName, "매수")
}

func (f *TradeFill) IsSell() bool {
	if f.IsBuy() {
		return false
	}
	return strings.Contains(f.SideName, "매도") || strings.Contains(f.SideName, "상환")
}

// Key returns the lot key the fill settles against.
func (f *TradeFill) Key() LotKey {
	return LotKey{StockCode: f.StockCode, CreditClass: f.CreditClass, LoanDate: f.LoanDate}
}

type GetTradeFillsParam struct {
	StockCode string
	DateFrom  *time.Time
	DateTo    *time.Time
}
