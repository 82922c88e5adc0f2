package market

import "math"

// SizingParams carries the account-level inputs for position sizing.
type SizingParams struct {
	NetAssets    float64
	TotalPayable float64 // outstanding cash + credit exposure
	UnitPct      float64 // percent of net assets per full unit
	MaxLevPct    float64 // leverage ceiling as percent of net assets
}

// UnitValue returns the notional of one full unit: netAssets * unitPct.
func UnitValue(netAssets, unitPct float64) float64 {
	return netAssets * unitPct / 100
}

// HalfUnitAmount returns the notional for half a unit, the size of every
// initial and pyramiding buy.
func HalfUnitAmount(netAssets, unitPct float64) float64 {
	return UnitValue(netAssets, unitPct) / 2
}

// HeldUnits converts an open position value into units of the account's
// sizing measure. Returns 0 when the unit value is not yet known.
func HeldUnits(positionValue, unitValue float64) float64 {
	if unitValue <= 0 {
		return 0
	}
	return positionValue / unitValue
}

// OrderQuantity converts a notional amount into a share count at the given
// limit price, rounded down. Returns 0 when the price cannot buy one share.
func OrderQuantity(amount, limitPrice float64) int64 {
	if limitPrice <= 0 {
		return 0
	}
	return int64(math.Floor(amount / limitPrice))
}

// CheckLeverage reports whether adding orderAmount keeps total exposure at or
// under the leverage ceiling.
func CheckLeverage(p SizingParams, orderAmount float64) bool {
	if p.NetAssets <= 0 {
		return false
	}
	limit := p.NetAssets * p.MaxLevPct / 100
	return p.TotalPayable+orderAmount <= limit
}

// StopLossPrice returns the price below which a position breaches its stop,
// stopPct percent under the average purchase price.
func StopLossPrice(avgPrice, stopPct float64) float64 {
	return avgPrice * (1 - stopPct/100)
}

// IsStopLossBreached reports whether currentPrice is at or below the stop
// level for the given average price.
func IsStopLossBreached(currentPrice, avgPrice, stopPct float64) bool {
	return currentPrice <= StopLossPrice(avgPrice, stopPct)
}
