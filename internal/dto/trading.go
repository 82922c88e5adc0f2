package dto

import "time"

// Quote is the normalized per-symbol market snapshot the monitor works with.
type Quote struct {
	StockCode    string    `json:"stock_code"`
	StockName    string    `json:"stock_name"`
	CurrentPrice float64   `json:"current_price"`
	OpenPrice    float64   `json:"open_price"`
	HighPrice    float64   `json:"high_price"`
	LowPrice     float64   `json:"low_price"`
	FetchedAt    time.Time `json:"fetched_at"`
}

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderResult is the normalized outcome of a placed order.
type OrderResult struct {
	OrderNo    string    `json:"order_no"`
	StockCode  string    `json:"stock_code"`
	Side       OrderSide `json:"side"`
	Quantity   int64     `json:"quantity"`
	LimitPrice float64   `json:"limit_price"`
	UsedCredit bool      `json:"used_credit"`
	PlacedAt   time.Time `json:"placed_at"`
}

// AccountSummary carries the sizing inputs read from the broker.
type AccountSummary struct {
	NetAssets     float64 `json:"net_assets"`
	TotalPurchase float64 `json:"total_purchase"`
	Deposit       float64 `json:"deposit"`
}

// HoldingPosition is one aggregated open position used by the close engine.
type HoldingPosition struct {
	StockCode    string  `json:"stock_code"`
	StockName    string  `json:"stock_name"`
	CreditClass  string  `json:"credit_class"`
	LoanDate     string  `json:"loan_date"`
	Quantity     int64   `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
}

// GetLotsRequest filters the lots listing endpoint.
type GetLotsRequest struct {
	StockCode string `query:"stock_code"`
	OpenOnly  bool   `query:"open_only"`
	FromDate  string `query:"from_date" validate:"omitempty,datetime=2006-01-02"`
	ToDate    string `query:"to_date" validate:"omitempty,datetime=2006-01-02"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=500"`
}

// GetTriggersRequest filters the triggers listing endpoint.
type GetTriggersRequest struct {
	TradingDay string `query:"trading_day" validate:"omitempty,datetime=2006-01-02"`
	Status     string `query:"status" validate:"omitempty,oneof=pending success order_failed price_failed"`
}

// RunJobRequest triggers a scheduler job by name.
type RunJobRequest struct {
	JobName string `json:"job_name" validate:"required"`
}

// UpsertWatchlistRequest adds or updates a breakout candidate.
type UpsertWatchlistRequest struct {
	StockCode      string   `json:"stock_code" validate:"required"`
	StockName      string   `json:"stock_name"`
	ReferencePrice float64  `json:"reference_price" validate:"required,gt=0"`
	StopLossPct    *float64 `json:"stop_loss_pct" validate:"omitempty,gt=0,lte=30"`
	MaxUnits       float64  `json:"max_units" validate:"omitempty,gt=0"`
}

// SetWatchlistActiveRequest toggles monitoring for a symbol.
type SetWatchlistActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}
