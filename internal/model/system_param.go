package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SysParamTradingParams = "TRADING_PARAMS"
)

type SystemParameter struct {
	Name        string         `gorm:"column:name;type:varchar(100);primaryKey" json:"name"`
	Value       datatypes.JSON `gorm:"column:value;type:jsonb" json:"value"`
	Description string         `gorm:"column:description;type:text" json:"description"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
}

func (SystemParameter) TableName() string {
	return "system_parameters"
}

// TradingParams is the operator-tunable strategy configuration stored under
// SysParamTradingParams.
type TradingParams struct {
	UnitPct        float64 `json:"unit_pct"`
	TickBuffer     int     `json:"tick_buffer"`
	StopLossPct    float64 `json:"stop_loss_pct"`
	MaxLeveragePct float64 `json:"max_leverage_pct"`
}
