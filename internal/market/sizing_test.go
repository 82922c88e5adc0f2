package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHalfUnitAmount(t *testing.T) {
	// 100M net assets at 5% per unit -> 2.5M half unit.
	assert.Equal(t, float64(2_500_000), HalfUnitAmount(100_000_000, 5.0))
	assert.Equal(t, float64(5_000_000), UnitValue(100_000_000, 5.0))
}

func TestHeldUnits(t *testing.T) {
	assert.Equal(t, 1.0, HeldUnits(5_000_000, 5_000_000))
	assert.Equal(t, 0.5, HeldUnits(2_500_000, 5_000_000))
	assert.Equal(t, 0.0, HeldUnits(2_500_000, 0))
}

func TestOrderQuantity(t *testing.T) {
	assert.Equal(t, int64(34), OrderQuantity(2_500_000, 73_400))
	assert.Equal(t, int64(0), OrderQuantity(50_000, 73_400))
	assert.Equal(t, int64(0), OrderQuantity(2_500_000, 0))
}

func TestCheckLeverage(t *testing.T) {
	p := SizingParams{
		NetAssets:    100_000_000,
		TotalPayable: 110_000_000,
		MaxLevPct:    120.0,
	}

	// Exactly at the 120% ceiling passes.
	assert.True(t, CheckLeverage(p, 10_000_000))
	// One won over the ceiling fails.
	assert.False(t, CheckLeverage(p, 10_000_001))

	p.NetAssets = 0
	assert.False(t, CheckLeverage(p, 1))
}

func TestStopLoss(t *testing.T) {
	// 7% under 100,000 is 93,000.
	assert.Equal(t, float64(93_000), StopLossPrice(100_000, 7.0))

	assert.True(t, IsStopLossBreached(92_999, 100_000, 7.0))
	// The stop level itself counts as a breach.
	assert.True(t, IsStopLossBreached(93_000, 100_000, 7.0))
	assert.False(t, IsStopLossBreached(93_001, 100_000, 7.0))
}
