// Package market holds the pure pricing and sizing rules: KRX tick bands,
// order price computation, unit sizing and the leverage gate. Nothing here
// owns state or talks to the network.
package market

// TickSize returns the KRX minimum price increment for the given price level.
func TickSize(price float64) float64 {
	switch {
	case price < 2_000:
		return 1
	case price < 5_000:
		return 5
	case price < 20_000:
		return 10
	case price < 50_000:
		return 50
	case price < 200_000:
		return 100
	case price < 500_000:
		return 500
	default:
		return 1_000
	}
}

// RoundDownToTick rounds price down to the nearest multiple of its tick size.
func RoundDownToTick(price float64) float64 {
	tick := TickSize(price)
	steps := int64(price / tick)
	return float64(steps) * tick
}

// BuyOrderPrice computes the limit price for a buy: the reference price plus
// bufferTicks ticks, biased above the reference to favor a fill.
func BuyOrderPrice(referencePrice float64, bufferTicks int) float64 {
	raw := referencePrice + TickSize(referencePrice)*float64(bufferTicks)
	return RoundDownToTick(raw)
}

// SellOrderPrice computes the limit price for a sell or stop: bufferTicks
// ticks under the current price, to cross the spread.
func SellOrderPrice(currentPrice float64, bufferTicks int) float64 {
	raw := currentPrice - TickSize(currentPrice)*float64(bufferTicks)
	return RoundDownToTick(raw)
}

// VenueFloorPrice is the lowest sell price a restricted-price venue accepts,
// 90% of the session close.
func VenueFloorPrice(closePrice float64) float64 {
	return RoundDownToTick(closePrice * 0.9)
}
