package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickSize(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		want  float64
	}{
		{"under 2000", 1_999, 1},
		{"band 2000", 2_000, 5},
		{"band 5000", 5_000, 10},
		{"band 20000", 20_000, 50},
		{"band 50000", 50_000, 100},
		{"band 200000", 200_000, 500},
		{"band 500000", 500_000, 1_000},
		{"upper edge 199999", 199_999, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TickSize(tt.price))
		})
	}
}

func TestRoundDownToTick(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		want  float64
	}{
		{"already aligned", 73_400, 73_400},
		{"rounds down within band", 73_482, 73_400},
		{"small price", 1_999, 1_999},
		{"mid band", 4_998, 4_995},
		{"high band", 512_345, 512_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundDownToTick(tt.price))
		})
	}
}

func TestBuyOrderPrice(t *testing.T) {
	// 73,400 sits in the 100-won band: +3 ticks = 73,700.
	assert.Equal(t, float64(73_700), BuyOrderPrice(73_400, 3))
	// Unaligned reference still produces an aligned order price.
	assert.Equal(t, float64(73_700), BuyOrderPrice(73_482, 3))
}

func TestSellOrderPrice(t *testing.T) {
	assert.Equal(t, float64(73_100), SellOrderPrice(73_400, 3))
	// 4,990 is in the 5-won band: -3 ticks = 4,975.
	assert.Equal(t, float64(4_975), SellOrderPrice(4_990, 3))
}

func TestVenueFloorPrice(t *testing.T) {
	// 90% of 10,000 = 9,000, aligned to the 10-won band.
	assert.Equal(t, float64(9_000), VenueFloorPrice(10_000))
	// 90% of 73,400 = 66,060 -> 66,000 in the 100-won band.
	assert.Equal(t, float64(66_000), VenueFloorPrice(73_400))
}
