package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unit is a display unit for intervals. All internal math is day based;
// units only affect conversion and formatting.
type Unit string

const (
	Minutes Unit = "minutes"
	Hours   Unit = "hours"
	Days    Unit = "days"
	Months  Unit = "months"
)

// Units lists the supported units in ascending size.
var Units = []Unit{Minutes, Hours, Days, Months}

const (
	minutesPerDay = 24 * 60
	hoursPerDay   = 24
	daysPerMonth  = 30.0
	secondsPerDay = 86400.0
)

// UnknownInterval is rendered for an interval that has no value.
const UnknownInterval = "—"

// Suffix returns the short label appended to formatted values.
func (u Unit) Suffix() string {
	switch u {
	case Minutes:
		return "min"
	case Hours:
		return "h"
	case Months:
		return "mo"
	default:
		return "d"
	}
}

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	switch u {
	case Minutes, Hours, Days, Months:
		return true
	}
	return false
}

// ParseUnit accepts unit names and their short suffixes, case-insensitive.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minutes", "minute", "min", "m":
		return Minutes, nil
	case "hours", "hour", "h":
		return Hours, nil
	case "days", "day", "d":
		return Days, nil
	case "months", "month", "mo":
		return Months, nil
	}
	return "", fmt.Errorf("unknown unit %q: must be one of minutes, hours, days, months", s)
}

// TargetInterval is a desired cadence such as "every 30 days". It is only
// consulted when the history is too short for an empirical average.
type TargetInterval struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// Days converts the target to days. Months are a flat 30 days.
func (t TargetInterval) Days() float64 {
	switch t.Unit {
	case Minutes:
		return t.Value / minutesPerDay
	case Hours:
		return t.Value / hoursPerDay
	case Months:
		return t.Value * daysPerMonth
	default:
		return t.Value
	}
}

func (t TargetInterval) String() string {
	return strconv.FormatFloat(t.Value, 'f', -1, 64) + t.Unit.Suffix()
}

// ParseInterval parses a magnitude followed by a unit, e.g. "30d", "12h",
// "90min", "2mo" or "1.5 days".
func ParseInterval(s string) (TargetInterval, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && (s[i] == '.' || s[i] == '-' || s[i] == '+' || (s[i] >= '0' && s[i] <= '9')) {
		i++
	}
	if i == 0 {
		return TargetInterval{}, fmt.Errorf("invalid interval %q: missing magnitude", s)
	}
	value, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return TargetInterval{}, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	unit, err := ParseUnit(s[i:])
	if err != nil {
		return TargetInterval{}, fmt.Errorf("invalid interval %q: %w", s, err)
	}
	return TargetInterval{Value: value, Unit: unit}, nil
}

// ToUnit converts a day count into the given unit.
func ToUnit(days float64, unit Unit) float64 {
	switch unit {
	case Minutes:
		return days * minutesPerDay
	case Hours:
		return days * hoursPerDay
	case Months:
		return days / daysPerMonth
	default:
		return days
	}
}

// FormatInterval rounds days to the nearest whole unit and appends the unit
// suffix ("2880 min", "48 h", "2 d", "0 mo"). A nil value renders as
// UnknownInterval.
func FormatInterval(days *float64, unit Unit) string {
	if days == nil {
		return UnknownInterval
	}
	return formatRounded(ToUnit(*days, unit), 0) + " " + unit.Suffix()
}

func formatRounded(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return UnknownInterval
	}
	p := math.Pow(10, float64(decimals))
	r := math.Round(v*p) / p
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', decimals, 64)
}

// SafeDaysFromSeconds converts seconds to days, clamping negatives to zero.
func SafeDaysFromSeconds(seconds float64) float64 {
	return math.Max(0, seconds/secondsPerDay)
}

// SafeSecondsFromDays converts days to seconds, clamping negatives to zero.
func SafeSecondsFromDays(days float64) float64 {
	return math.Max(0, days*secondsPerDay)
}

// ReadableShort renders a duration in the preferred unit: "1440 min",
// "4.5 h" (one decimal below ten hours), "11 d" or "2 mo".
func ReadableShort(d time.Duration, unit Unit) string {
	switch unit {
	case Minutes:
		return formatRounded(d.Minutes(), 0) + " min"
	case Hours:
		h := d.Hours()
		if h < 10 {
			return formatRounded(h, 1) + " h"
		}
		return formatRounded(h, 0) + " h"
	case Months:
		return formatRounded(d.Hours()/hoursPerDay/daysPerMonth, 0) + " mo"
	default:
		return formatRounded(d.Hours()/hoursPerDay, 0) + " d"
	}
}

// ReadableAgo is ReadableShort with an " ago" suffix.
func ReadableAgo(d time.Duration, unit Unit) string {
	return ReadableShort(d, unit) + " ago"
}
