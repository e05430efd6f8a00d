package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatIntervalAcrossUnits(t *testing.T) {
	days := 2.0
	tests := []struct {
		unit Unit
		want string
	}{
		{Minutes, "2880 min"},
		{Hours, "48 h"},
		{Days, "2 d"},
		{Months, "0 mo"},
	}

	for _, tt := range tests {
		t.Run(string(tt.unit), func(t *testing.T) {
			assert.Equal(t, tt.want, FormatInterval(&days, tt.unit))
			// formatting must agree with ToUnit rounded to a whole number
			rounded := formatRounded(ToUnit(days, tt.unit), 0)
			assert.Equal(t, rounded+" "+tt.unit.Suffix(), FormatInterval(&days, tt.unit))
		})
	}
}

func TestFormatInterval(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		days *float64
		unit Unit
		want string
	}{
		{"nil", nil, Days, UnknownInterval},
		{"rounds half up", f(2.5), Days, "3 d"},
		{"rounds down", f(2.4), Days, "2 d"},
		{"negative", f(-10), Days, "-10 d"},
		{"negative zero", f(-0.2), Days, "0 d"},
		{"months", f(45), Months, "2 mo"},
		{"fraction of a day in hours", f(0.25), Hours, "6 h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatInterval(tt.days, tt.unit); got != tt.want {
				t.Errorf("FormatInterval() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToUnit(t *testing.T) {
	assert.Equal(t, 1440.0, ToUnit(1, Minutes))
	assert.Equal(t, 24.0, ToUnit(1, Hours))
	assert.Equal(t, 7.0, ToUnit(7, Days))
	assert.Equal(t, 2.0, ToUnit(60, Months))
}

func TestTargetIntervalDays(t *testing.T) {
	tests := []struct {
		target TargetInterval
		want   float64
	}{
		{TargetInterval{Value: 1440, Unit: Minutes}, 1},
		{TargetInterval{Value: 48, Unit: Hours}, 2},
		{TargetInterval{Value: 30, Unit: Days}, 30},
		{TargetInterval{Value: 1, Unit: Months}, 30},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, tt.target.Days(), 1e-12, tt.target.String())
	}
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{
		"minutes": Minutes, "MIN": Minutes,
		"hours": Hours, "h": Hours,
		" days ": Days, "d": Days,
		"months": Months, "mo": Months,
	} {
		got, err := ParseUnit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseUnit("weeks")
	assert.Error(t, err)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in      string
		want    TargetInterval
		wantErr bool
	}{
		{"30d", TargetInterval{30, Days}, false},
		{"12h", TargetInterval{12, Hours}, false},
		{"90min", TargetInterval{90, Minutes}, false},
		{"2mo", TargetInterval{2, Months}, false},
		{"1.5 days", TargetInterval{1.5, Days}, false},
		{"d", TargetInterval{}, true},
		{"10 weeks", TargetInterval{}, true},
		{"1..5d", TargetInterval{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInterval(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSafeConversions(t *testing.T) {
	assert.Equal(t, 1.0, SafeDaysFromSeconds(86400))
	assert.Equal(t, 0.0, SafeDaysFromSeconds(-86400))
	assert.Equal(t, 172800.0, SafeSecondsFromDays(2))
	assert.Equal(t, 0.0, SafeSecondsFromDays(-2))
	assert.Equal(t, 3.0, SafeDaysFromSeconds(SafeSecondsFromDays(3)))
}

func TestReadableShort(t *testing.T) {
	tests := []struct {
		d    time.Duration
		unit Unit
		want string
	}{
		{24 * time.Hour, Minutes, "1440 min"},
		{4*time.Hour + 30*time.Minute, Hours, "4.5 h"},
		{24 * time.Hour, Hours, "24 h"},
		{11 * 24 * time.Hour, Days, "11 d"},
		{60 * 24 * time.Hour, Months, "2 mo"},
	}

	for _, tt := range tests {
		if got := ReadableShort(tt.d, tt.unit); got != tt.want {
			t.Errorf("ReadableShort(%v, %s) = %q, want %q", tt.d, tt.unit, got, tt.want)
		}
	}
	assert.Equal(t, "10 d ago", ReadableAgo(10*24*time.Hour, Days))
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, DaysBetween(base, base.Add(2*time.Hour)))
	assert.Equal(t, 0, DaysBetween(base, base.Add(30*time.Minute)))
	assert.Equal(t, 31, DaysBetween(base, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, DaysBetween(base, base.AddDate(0, 0, -3)))
}

func TestProgressRatio(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	assert.Equal(t, 0.0, ProgressRatio(5, nil))
	assert.Equal(t, 0.0, ProgressRatio(5, f(0)))
	assert.Equal(t, 0.0, ProgressRatio(5, f(-1)))
	assert.Equal(t, 0.5, ProgressRatio(5, f(10)))
	assert.Equal(t, 1.0, ProgressRatio(50, f(10)))
	assert.Equal(t, 0.0, ProgressRatio(-5, f(10)))
}

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2025, 6, 7, 18, 45, 12, 99, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
}
