package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateStop(t *testing.T) {
	tests := []struct {
		name          string
		pos           Position
		currentPrice  float64
		expectedScope StopScope
		expectedQty   int64
	}{
		{
			name:          "no breach",
			pos:           Position{TotalQty: 100, AvgPrice: 70000, StopLossPct: 7},
			currentPrice:  69000,
			expectedScope: StopScopeNone,
		},
		{
			name:          "whole position breach",
			pos:           Position{TotalQty: 100, AvgPrice: 70000, StopLossPct: 7},
			currentPrice:  65000,
			expectedScope: StopScopeAll,
			expectedQty:   100,
		},
		{
			name:          "breach exactly at threshold",
			pos:           Position{TotalQty: 100, AvgPrice: 100000, StopLossPct: 7},
			currentPrice:  93000,
			expectedScope: StopScopeAll,
			expectedQty:   100,
		},
		{
			name:          "one won above threshold holds",
			pos:           Position{TotalQty: 100, AvgPrice: 100000, StopLossPct: 7},
			currentPrice:  93001,
			expectedScope: StopScopeNone,
		},
		{
			name: "todays buy cut before older position",
			// Old position still profitable, today's add-on is down 8%.
			pos:           Position{TotalQty: 150, AvgPrice: 60000, TodayQty: 50, TodayAvgPrice: 70000, StopLossPct: 7},
			currentPrice:  64000,
			expectedScope: StopScopeToday,
			expectedQty:   50,
		},
		{
			name:          "both breached liquidates today first",
			pos:           Position{TotalQty: 150, AvgPrice: 70000, TodayQty: 50, TodayAvgPrice: 71000, StopLossPct: 7},
			currentPrice:  64000,
			expectedScope: StopScopeToday,
			expectedQty:   50,
		},
		{
			name:          "zero price ignored",
			pos:           Position{TotalQty: 100, AvgPrice: 70000, StopLossPct: 7},
			currentPrice:  0,
			expectedScope: StopScopeNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, qty := EvaluateStop(tt.pos, tt.currentPrice)
			assert.Equal(t, tt.expectedScope, scope)
			assert.Equal(t, tt.expectedQty, qty)
		})
	}
}

func TestEvaluateClose(t *testing.T) {
	tests := []struct {
		name         string
		pos          Position
		currentPrice float64
		enteredToday bool
		expected     CloseAction
	}{
		{
			name:         "stop loss wins over pyramid",
			pos:          Position{TotalQty: 100, AvgPrice: 70000, StopLossPct: 7},
			currentPrice: 65000,
			enteredToday: true,
			expected:     ActionStopLoss,
		},
		{
			name:         "stop loss at exact boundary",
			pos:          Position{TotalQty: 100, AvgPrice: 100000, StopLossPct: 7},
			currentPrice: 93000,
			enteredToday: false,
			expected:     ActionStopLoss,
		},
		{
			name:         "older position above stop is held",
			pos:          Position{TotalQty: 100, AvgPrice: 70000, StopLossPct: 7},
			currentPrice: 69000,
			enteredToday: false,
			expected:     ActionHold,
		},
		{
			name:         "todays entry in profit pyramids",
			pos:          Position{TotalQty: 100, AvgPrice: 70000, StopLossPct: 7},
			currentPrice: 71000,
			enteredToday: true,
			expected:     ActionPyramid,
		},
		{
			name:         "todays entry at entry price sells",
			pos:          Position{TotalQty: 100, AvgPrice: 70000, StopLossPct: 7},
			currentPrice: 70000,
			enteredToday: true,
			expected:     ActionSell,
		},
		{
			name:         "todays entry slightly down sells",
			pos:          Position{TotalQty: 100, AvgPrice: 70000, StopLossPct: 7},
			currentPrice: 69500,
			enteredToday: true,
			expected:     ActionSell,
		},
		{
			name:         "zero price holds",
			pos:          Position{TotalQty: 100, AvgPrice: 70000, StopLossPct: 7},
			currentPrice: 0,
			enteredToday: true,
			expected:     ActionHold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EvaluateClose(tt.pos, tt.currentPrice, tt.enteredToday))
		})
	}
}

func TestClosesInWindow(t *testing.T) {
	// KRX window acts on symbols the secondary venue rejects.
	assert.True(t, closesInWindow(true, false))
	assert.False(t, closesInWindow(true, true))
	// The late window acts on secondary-tradable symbols only.
	assert.True(t, closesInWindow(false, true))
	assert.False(t, closesInWindow(false, false))
}
