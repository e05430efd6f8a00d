package stats

import (
	"math"
	"time"
)

// DaysBetween returns the number of calendar days from the start of from's
// day to the start of to's day, in from's location. Never negative.
func DaysBetween(from, to time.Time) int {
	loc := from.Location()
	to = to.In(loc)
	// Compare calendar dates in UTC so DST shifts do not skew the count.
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	days := int((end.Unix() - start.Unix()) / int64(secondsPerDay))
	if days < 0 {
		return 0
	}
	return days
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ProgressRatio returns elapsed/cycle clamped to [0,1]. A missing or
// non-positive cycle yields 0.
func ProgressRatio(elapsedDays float64, cycleDays *float64) float64 {
	if cycleDays == nil || !(*cycleDays > 0) || math.IsInf(*cycleDays, 0) {
		return 0
	}
	return clamp01(elapsedDays / *cycleDays)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// daysSince returns b-a in days, signed.
func daysSince(a, b time.Time) float64 {
	return b.Sub(a).Seconds() / secondsPerDay
}

// addDays adds a day count to t, saturating instead of overflowing
// time.Duration.
func addDays(t time.Time, days float64) time.Time {
	ns := days * secondsPerDay * float64(time.Second)
	if ns >= math.MaxInt64 {
		return t.Add(time.Duration(math.MaxInt64))
	}
	if ns <= math.MinInt64 {
		return t.Add(time.Duration(math.MinInt64))
	}
	return t.Add(time.Duration(ns))
}
