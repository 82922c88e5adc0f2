package model

import "time"

// WatchlistItem is a breakout candidate with its reference price.
type WatchlistItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StockCode      string    `gorm:"not null;uniqueIndex" json:"stock_code"`
	StockName      string    `json:"stock_name"`
	ReferencePrice float64   `gorm:"not null" json:"reference_price"`
	StopLossPct    *float64  `json:"stop_loss_pct"`
	MaxUnits       float64   `gorm:"not null;default:1" json:"max_units"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WatchlistItem) TableName() string {
	return "watchlist_items"
}
