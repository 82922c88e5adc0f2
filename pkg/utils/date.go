package utils

import (
	"log"
	"time"
)

// All market logic runs on Korea Standard Time regardless of host locale.

func GetKSTLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		log.Fatal("Failed to load Asia/Seoul location", err)
	}
	return loc
}

func TimeNowKST() time.Time {
	return time.Now().In(GetKSTLocation())
}

// DateOf truncates t to its calendar date in KST.
func DateOf(t time.Time) time.Time {
	t = t.In(GetKSTLocation())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// KRX public holidays. Extended annually.
var krxHolidays = map[string]bool{
	"2025-01-01": true, "2025-01-28": true, "2025-01-29": true, "2025-01-30": true,
	"2025-03-01": true, "2025-05-05": true, "2025-05-06": true, "2025-06-06": true,
	"2025-08-15": true, "2025-10-03": true, "2025-10-06": true, "2025-10-07": true,
	"2025-10-08": true, "2025-10-09": true, "2025-12-25": true, "2025-12-31": true,
	"2026-01-01": true, "2026-02-16": true, "2026-02-17": true, "2026-02-18": true,
	"2026-03-01": true, "2026-03-02": true, "2026-05-05": true, "2026-05-24": true,
	"2026-06-06": true, "2026-08-15": true, "2026-09-24": true, "2026-09-25": true,
	"2026-09-26": true, "2026-10-03": true, "2026-10-09": true, "2026-12-25": true,
	"2026-12-31": true,
}

// IsTradingDay reports whether the KRX market is open on the given date.
func IsTradingDay(t time.Time) bool {
	t = t.In(GetKSTLocation())
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !krxHolidays[t.Format("2006-01-02")]
}

// TradingDaysBetween counts KRX trading days in (from, to]. Used for lot
// holding-day metrics.
func TradingDaysBetween(from, to time.Time) int {
	from, to = DateOf(from), DateOf(to)
	if !to.After(from) {
		return 0
	}
	days := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			days++
		}
	}
	return days
}
