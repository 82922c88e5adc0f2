package model

import "time"

type CreditClass string

const (
	CreditClassCash   CreditClass = "CASH"
	CreditClassCredit CreditClass = "CREDIT"
)

// GenericCreditLoanDate is the loan-date marker the brokerage reports for
// blanket credit repayments. A sell carrying it reduces credit lots for the
// symbol regardless of their actual loan date.
const GenericCreditLoanDate = "99991231"

type LotSource string

const (
	LotSourceTradeSync LotSource = "trade_sync"
	LotSourceReconcile LotSource = "reconcile"
)

// Lot is a same-day net purchase of one symbol under one credit class.
// At most one open lot exists per (stock_code, credit_class, loan_date,
// trade_date); once net_quantity reaches zero the lot is closed and only the
// realized P&L recorded at close time remains mutable history.
type Lot struct {
	ID                  uint        `gorm:"primaryKey" json:"id"`
	StockCode           string      `gorm:"not null;uniqueIndex:idx_lot_key" json:"stock_code"`
	StockName           string      `json:"stock_name"`
	CreditClass         CreditClass `gorm:"type:varchar(10);not null;uniqueIndex:idx_lot_key" json:"credit_class"`
	LoanDate            string      `gorm:"type:varchar(8);not null;default:'';uniqueIndex:idx_lot_key" json:"loan_date"`
	TradeDate           time.Time   `gorm:"type:date;not null;uniqueIndex:idx_lot_key" json:"trade_date"`
	NetQuantity         int64       `gorm:"not null" json:"net_quantity"`
	AvgPurchasePrice    float64     `gorm:"not null" json:"avg_purchase_price"`
	TotalCost           float64     `gorm:"not null" json:"total_cost"`
	CurrentPrice        *float64    `json:"current_price"`
	HoldingDays         int         `json:"holding_days"`
	UnrealizedPnl       *float64    `json:"unrealized_pnl"`
	UnrealizedReturnPct *float64    `json:"unrealized_return_pct"`
	IsClosed            bool        `gorm:"not null;default:false" json:"is_closed"`
	ClosedDate          *time.Time  `gorm:"type:date" json:"closed_date"`
	RealizedPnl         float64     `gorm:"not null;default:0" json:"realized_pnl"`
	Source              LotSource   `gorm:"type:varchar(20);not null;default:'trade_sync'" json:"source"`
	CreatedAt           time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Lot) TableName() string {
	return "daily_lots"
}

// Key identifies the LIFO reduction scope of the lot.
type LotKey struct {
	StockCode   string
	CreditClass CreditClass
	LoanDate    string
}

func (l *Lot) Key() LotKey {
	return LotKey{StockCode: l.StockCode, CreditClass: l.CreditClass, LoanDate: l.LoanDate}
}

type GetLotsParam struct {
	StockCode   string
	CreditClass *CreditClass
	IsClosed    *bool
	DateFrom    *time.Time
	DateTo      *time.Time
	Limit       *int
}

// LotSummary is the per-key open quantity aggregate used for reconciliation
// and the downstream summary endpoint.
type LotSummary struct {
	StockCode    string      `json:"stock_code"`
	StockName    string      `json:"stock_name"`
	CreditClass  CreditClass `json:"credit_class"`
	TotalQty     int64       `json:"total_qty"`
	AvgPrice     float64     `json:"avg_price"`
	TotalCost    float64     `json:"total_cost"`
	CurrentPrice float64     `json:"current_price"`
}
