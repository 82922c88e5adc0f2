package model

import "time"

// HoldingSnapshot mirrors the brokerage's reported holdings for one day.
// It is the authoritative source when reconciling the lot ledger; manual
// trades show up here first.
type HoldingSnapshot struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	SnapshotDate time.Time   `gorm:"type:date;not null;uniqueIndex:idx_holding_key" json:"snapshot_date"`
	StockCode    string      `gorm:"not null;uniqueIndex:idx_holding_key" json:"stock_code"`
	StockName    string      `json:"stock_name"`
	CreditClass  CreditClass `gorm:"type:varchar(10);not null;uniqueIndex:idx_holding_key" json:"credit_class"`
	LoanDate     string      `gorm:"type:varchar(8);not null;default:'';uniqueIndex:idx_holding_key" json:"loan_date"`
	Quantity     int64       `gorm:"not null" json:"quantity"`
	AvgPrice     float64     `gorm:"not null" json:"avg_price"`
	CurrentPrice float64     `json:"current_price"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (HoldingSnapshot) TableName() string {
	return "holdings"
}
