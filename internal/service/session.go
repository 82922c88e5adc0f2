package service

import (
	"time"

	"krx-autotrade/pkg/utils"
)

// Session is one of the intraday windows in which entries may execute.
type Session string

const (
	SessionMorning   Session = "morning"
	SessionAfternoon Session = "afternoon"
	SessionEvening   Session = "evening"
)

// Most KRX names also trade on NXT, which extends the day to 8:00-20:00 KST.
// Entries execute only in the open/close windows of each venue; outside them
// the watchlist is monitored without buying.
type sessionWindow struct {
	session    Session
	start, end int // minutes since midnight, [start, end)
}

var entryWindows = []sessionWindow{
	{SessionMorning, 8 * 60, 8*60 + 5},        // NXT morning open
	{SessionMorning, 9 * 60, 9*60 + 10},       // KRX morning open
	{SessionAfternoon, 15*60 + 15, 15*60 + 20}, // before the KRX closing auction
	{SessionEvening, 19*60 + 30, 20 * 60},      // NXT evening close
}

func minutesOfDay(t time.Time) int {
	kst := t.In(utils.GetKSTLocation())
	return kst.Hour()*60 + kst.Minute()
}

// CurrentSession returns the active entry session, or "" when none is open.
func CurrentSession(t time.Time) Session {
	if !utils.IsTradingDay(t) {
		return ""
	}
	m := minutesOfDay(t)
	for _, w := range entryWindows {
		if m >= w.start && m < w.end {
			return w.session
		}
	}
	return ""
}

// EntryAllowed reports whether breakout entries may execute at t.
func EntryAllowed(t time.Time) bool {
	return CurrentSession(t) != ""
}

// InMarketOpenMinute reports the first minute after the KRX open, the only
// window where a gap-up counts as an entry signal.
func InMarketOpenMinute(t time.Time) bool {
	if !utils.IsTradingDay(t) {
		return false
	}
	m := minutesOfDay(t)
	return m >= 9*60 && m < 9*60+1
}

// InCloseWindow reports whether t falls in the end-of-day decision window
// just before the NXT close, where secondary-tradable symbols are closed.
func InCloseWindow(t time.Time) bool {
	if !utils.IsTradingDay(t) {
		return false
	}
	m := minutesOfDay(t)
	return m >= 19*60+55 && m < 20*60
}

// InKRXCloseWindow reports the decision window before the KRX closing
// auction. Symbols the secondary venue does not accept take their close pass
// here; after 15:20 their only remaining venue is gone.
func InKRXCloseWindow(t time.Time) bool {
	if !utils.IsTradingDay(t) {
		return false
	}
	m := minutesOfDay(t)
	return m >= 15*60+15 && m < 15*60+20
}

// InNXTOnlyHours reports whether only the NXT venue trades at t. NXT caps
// sell orders at 10% below the reference close, so sells placed here clamp
// to the venue floor.
func InNXTOnlyHours(t time.Time) bool {
	if !utils.IsTradingDay(t) {
		return false
	}
	m := minutesOfDay(t)
	return (m >= 8*60 && m < 9*60) || (m >= 15*60+30 && m < 20*60)
}

// MarketActive reports whether any venue still trades at t.
func MarketActive(t time.Time) bool {
	if !utils.IsTradingDay(t) {
		return false
	}
	m := minutesOfDay(t)
	return m >= 8*60 && m < 20*60
}

// TradingDayOf returns the KST calendar date t belongs to.
func TradingDayOf(t time.Time) time.Time {
	return utils.DateOf(t.In(utils.GetKSTLocation()))
}
