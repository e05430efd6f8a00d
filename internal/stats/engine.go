// Package stats turns an event's occurrence timestamps into display-ready
// metrics: elapsed time since the last occurrence, the average interval
// between occurrences, the projected next occurrence, a signed due/overdue
// delta and a progress ratio.
//
// Compute is a total function. Whatever the input (no occurrences, a single
// one, duplicates, out-of-order timestamps, a zero or negative target) the
// result has a strictly positive cycle, a progress in [0,1] and no NaN or
// infinite fields. The cycle denominator is resolved by priority:
//
//	average interval  ->  target interval  ->  DefaultCycleDays
//
// All computation is in days. The package holds no state and may be called
// concurrently; callers pass an immutable snapshot of occurrences.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DefaultCycleDays is the cycle used when neither an average nor a positive
// target is available.
const DefaultCycleDays = 30.0

// recentIntervals is the number of most recent gaps reported.
const recentIntervals = 3

// EventStats is an immutable snapshot computed for a single event.
type EventStats struct {
	CreatedAt  time.Time  `json:"created_at"`
	TotalCount int        `json:"total_count"`
	LastDate   *time.Time `json:"last_date,omitempty"`

	// AvgIntervalDays is the mean of positive adjacent gaps. Nil with
	// fewer than two distinct occurrences.
	AvgIntervalDays *float64 `json:"avg_interval_days,omitempty"`

	// IntervalsLast3Days holds up to three most recent gaps, newest first.
	IntervalsLast3Days []float64 `json:"intervals_last3_days"`

	NextDate *time.Time `json:"next_date,omitempty"`

	// DueInDays is positive while time remains and negative once overdue.
	DueInDays *float64 `json:"due_in_days,omitempty"`

	// DisplayCycleDays is the cadence used for progress and projection.
	// Always > 0.
	DisplayCycleDays float64 `json:"display_cycle_days"`

	ElapsedDays float64 `json:"elapsed_days"`
	Progress    float64 `json:"progress"`

	// Unit is the preferred display unit the snapshot was computed for.
	Unit Unit `json:"unit"`
}

// Options carries the optional inputs of Compute.
type Options struct {
	// Target is the fallback cadence. Non-positive or non-finite values are
	// ignored.
	Target *TargetInterval

	// Now defaults to time.Now() when zero.
	Now time.Time

	// Trace receives diagnostic lines when set.
	Trace func(string)
}

// Compute builds the statistics for an event created at createdAt with the
// given occurrences, which may be in any order. The input slice is not
// modified.
func Compute(createdAt time.Time, occurrences []time.Time, preferred Unit, opts Options) EventStats {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	newestFirst := make([]time.Time, len(occurrences))
	copy(newestFirst, occurrences)
	sort.SliceStable(newestFirst, func(i, j int) bool {
		return newestFirst[i].After(newestFirst[j])
	})

	if opts.Trace != nil {
		opts.Trace("stats.Compute: entries(newest->oldest)=" + formatTimes(newestFirst))
	}

	result := EventStats{
		CreatedAt:          createdAt,
		TotalCount:         len(newestFirst),
		IntervalsLast3Days: []float64{},
		Unit:               preferred,
	}

	var last *time.Time
	if len(newestFirst) > 0 {
		l := newestFirst[0]
		last = &l
		result.ElapsedDays = math.Max(0, daysSince(l, now))
	}
	result.LastDate = last

	gaps := positiveGaps(newestFirst)
	if len(gaps) > 0 {
		var sum float64
		for _, g := range gaps {
			sum += g
		}
		avg := sum / float64(len(gaps))
		result.AvgIntervalDays = &avg

		n := len(gaps)
		if n > recentIntervals {
			n = recentIntervals
		}
		result.IntervalsLast3Days = append(result.IntervalsLast3Days, gaps[:n]...)
	}

	targetDays := resolveTarget(opts.Target)
	result.DisplayCycleDays = cycleDays(result.AvgIntervalDays, targetDays)

	if last != nil {
		next := addDays(*last, result.DisplayCycleDays)
		due := daysSince(now, next)
		result.NextDate = &next
		result.DueInDays = &due
	}

	result.Progress = clamp01(result.ElapsedDays / result.DisplayCycleDays)

	if opts.Trace != nil {
		opts.Trace(fmt.Sprintf("stats.Compute: total=%d last=%s avg=%s tgt=%s cycle=%.2f elapsed=%.2f dueIn=%s progress=%.2f",
			result.TotalCount,
			formatOptionalTime(last),
			formatOptional(result.AvgIntervalDays),
			formatOptional(targetDays),
			result.DisplayCycleDays,
			result.ElapsedDays,
			formatOptional(result.DueInDays),
			result.Progress,
		))
	}

	return result
}

// positiveGaps returns gaps in days between adjacent newest-first
// occurrences, dropping zero and negative gaps.
func positiveGaps(newestFirst []time.Time) []float64 {
	if len(newestFirst) < 2 {
		return nil
	}
	gaps := make([]float64, 0, len(newestFirst)-1)
	for i := 0; i < len(newestFirst)-1; i++ {
		d := daysSince(newestFirst[i+1], newestFirst[i])
		if d > 0 {
			gaps = append(gaps, d)
		}
	}
	return gaps
}

func resolveTarget(t *TargetInterval) *float64 {
	if t == nil {
		return nil
	}
	days := t.Days()
	if math.IsNaN(days) || math.IsInf(days, 0) {
		return nil
	}
	return &days
}

// cycleDays resolves the denominator: average, then target, then the default.
func cycleDays(avg, target *float64) float64 {
	if avg != nil && *avg > 0 && !math.IsInf(*avg, 0) {
		return *avg
	}
	if target != nil && *target > 0 {
		return *target
	}
	return DefaultCycleDays
}

// Overdue reports whether the projected next occurrence has passed.
func (s EventStats) Overdue() bool {
	return s.DueInDays != nil && *s.DueInDays < 0
}

// FormatAverage renders the average interval in the snapshot's unit.
func (s EventStats) FormatAverage() string {
	return FormatInterval(s.AvgIntervalDays, s.Unit)
}

// FormatDueIn renders the signed due delta in the snapshot's unit.
func (s EventStats) FormatDueIn() string {
	return FormatInterval(s.DueInDays, s.Unit)
}

// FormatElapsed renders the elapsed time in the snapshot's unit.
func (s EventStats) FormatElapsed() string {
	e := s.ElapsedDays
	return FormatInterval(&e, s.Unit)
}

// FormatCycle renders the display cycle in the snapshot's unit.
func (s EventStats) FormatCycle() string {
	c := s.DisplayCycleDays
	return FormatInterval(&c, s.Unit)
}

func formatTimes(ts []time.Time) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.UTC().Format(time.RFC3339Nano)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "nil"
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%.2f", *v)
}
