package model

import (
	"time"

	"gorm.io/datatypes"
)

type EntryType string

const (
	EntryTypeBreakout EntryType = "breakout"
	EntryTypeGapUp    EntryType = "gap_up"
)

type TriggerStatus string

const (
	TriggerStatusPending     TriggerStatus = "pending"
	TriggerStatusSuccess     TriggerStatus = "success"
	TriggerStatusOrderFailed TriggerStatus = "order_failed"
	TriggerStatusPriceFailed TriggerStatus = "price_failed"
)

// Terminal reports whether the status blocks further transitions.
func (s TriggerStatus) Terminal() bool {
	return s != TriggerStatusPending
}

// TriggerEntry records one entry attempt per symbol per trading day. The row
// is inserted with status pending before any external call; the unique
// (trading_day, stock_code) index is what enforces at-most-one entry attempt
// even across process restarts.
type TriggerEntry struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	TradingDay  time.Time      `gorm:"type:date;not null;uniqueIndex:idx_trigger_day_code" json:"trading_day"`
	StockCode   string         `gorm:"not null;uniqueIndex:idx_trigger_day_code" json:"stock_code"`
	EntryType   EntryType      `gorm:"type:varchar(20);not null" json:"entry_type"`
	Status      TriggerStatus  `gorm:"type:varchar(20);not null" json:"status"`
	EntryPrice  *float64       `json:"entry_price"`
	OrderNo     string         `json:"order_no"`
	Detail      datatypes.JSON `gorm:"type:jsonb" json:"detail"`
	TriggeredAt time.Time      `gorm:"not null" json:"triggered_at"`
	ResolvedAt  *time.Time     `json:"resolved_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TriggerEntry) TableName() string {
	return "daily_triggers"
}
