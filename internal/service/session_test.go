package service

import (
	"testing"
	"time"

	"krx-autotrade/pkg/utils"

	"github.com/stretchr/testify/assert"
)

func kstTime(hour, min int) time.Time {
	// 2026-08-26 is a Wednesday.
	return time.Date(2026, 8, 26, hour, min, 0, 0, utils.GetKSTLocation())
}

func TestCurrentSession(t *testing.T) {
	tests := []struct {
		name     string
		at       time.Time
		expected Session
	}{
		{"before premarket open", kstTime(7, 59), ""},
		{"premarket open", kstTime(8, 0), SessionMorning},
		{"premarket window end", kstTime(8, 5), ""},
		{"market open", kstTime(9, 0), SessionMorning},
		{"market open window last minute", kstTime(9, 9), SessionMorning},
		{"market open window end", kstTime(9, 10), ""},
		{"midday", kstTime(12, 0), ""},
		{"pre close auction", kstTime(15, 15), SessionAfternoon},
		{"auction window end", kstTime(15, 20), ""},
		{"evening session", kstTime(19, 30), SessionEvening},
		{"evening last minute", kstTime(19, 59), SessionEvening},
		{"after close", kstTime(20, 0), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CurrentSession(tt.at))
		})
	}
}

func TestCurrentSessionWeekend(t *testing.T) {
	saturday := time.Date(2026, 8, 29, 9, 5, 0, 0, utils.GetKSTLocation())
	assert.Equal(t, Session(""), CurrentSession(saturday))
	assert.False(t, MarketActive(saturday))
}

func TestInMarketOpenMinute(t *testing.T) {
	assert.False(t, InMarketOpenMinute(kstTime(8, 59)))
	assert.True(t, InMarketOpenMinute(kstTime(9, 0)))
	assert.False(t, InMarketOpenMinute(kstTime(9, 1)))
}

func TestInKRXCloseWindow(t *testing.T) {
	assert.False(t, InKRXCloseWindow(kstTime(15, 14)))
	assert.True(t, InKRXCloseWindow(kstTime(15, 15)))
	assert.True(t, InKRXCloseWindow(kstTime(15, 19)))
	assert.False(t, InKRXCloseWindow(kstTime(15, 20)))
	assert.False(t, InKRXCloseWindow(kstTime(19, 55)))
}

func TestInCloseWindow(t *testing.T) {
	assert.False(t, InCloseWindow(kstTime(19, 54)))
	assert.True(t, InCloseWindow(kstTime(19, 55)))
	assert.True(t, InCloseWindow(kstTime(19, 59)))
	assert.False(t, InCloseWindow(kstTime(20, 0)))
	assert.False(t, InCloseWindow(kstTime(15, 16)))
}

func TestMarketActive(t *testing.T) {
	assert.False(t, MarketActive(kstTime(7, 59)))
	assert.True(t, MarketActive(kstTime(8, 0)))
	assert.True(t, MarketActive(kstTime(13, 30)))
	assert.True(t, MarketActive(kstTime(19, 59)))
	assert.False(t, MarketActive(kstTime(20, 0)))
}

func TestInNXTOnlyHours(t *testing.T) {
	assert.True(t, InNXTOnlyHours(kstTime(8, 30)))
	assert.False(t, InNXTOnlyHours(kstTime(9, 0)))
	assert.False(t, InNXTOnlyHours(kstTime(15, 29)))
	assert.True(t, InNXTOnlyHours(kstTime(15, 30)))
	assert.True(t, InNXTOnlyHours(kstTime(19, 59)))
	assert.False(t, InNXTOnlyHours(kstTime(20, 0)))
}

func TestTradingDayOfNormalizesToKSTDate(t *testing.T) {
	// 2026-08-26 01:30 UTC is 10:30 KST the same day.
	utc := time.Date(2026, 8, 26, 1, 30, 0, 0, time.UTC)
	day := TradingDayOf(utc)
	assert.Equal(t, 2026, day.Year())
	assert.Equal(t, time.August, day.Month())
	assert.Equal(t, 26, day.Day())
	assert.Equal(t, 0, day.Hour())
}
