package models

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/everyday/internal/stats"
)

func TestEventValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{
			name: "valid event",
			event: Event{
				ID:        "evt-1",
				Name:      "Water plants",
				CreatedAt: now,
				Unit:      stats.Days,
			},
			wantErr: false,
		},
		{
			name: "valid event with target",
			event: Event{
				ID:        "evt-1",
				Name:      "Water plants",
				CreatedAt: now,
				Unit:      stats.Days,
				Target:    &stats.TargetInterval{Value: 3, Unit: stats.Days},
			},
			wantErr: false,
		},
		{
			name: "empty ID",
			event: Event{
				Name:      "Water plants",
				CreatedAt: now,
				Unit:      stats.Days,
			},
			wantErr: true,
		},
		{
			name: "blank name",
			event: Event{
				ID:        "evt-1",
				Name:      "   ",
				CreatedAt: now,
				Unit:      stats.Days,
			},
			wantErr: true,
		},
		{
			name: "name too long",
			event: Event{
				ID:        "evt-1",
				Name:      strings.Repeat("x", 201),
				CreatedAt: now,
				Unit:      stats.Days,
			},
			wantErr: true,
		},
		{
			name: "invalid unit",
			event: Event{
				ID:        "evt-1",
				Name:      "Water plants",
				CreatedAt: now,
				Unit:      "weeks",
			},
			wantErr: true,
		},
		{
			name: "negative target",
			event: Event{
				ID:        "evt-1",
				Name:      "Water plants",
				CreatedAt: now,
				Unit:      stats.Days,
				Target:    &stats.TargetInterval{Value: -1, Unit: stats.Days},
			},
			wantErr: true,
		},
		{
			name: "missing created at",
			event: Event{
				ID:   "evt-1",
				Name: "Water plants",
				Unit: stats.Days,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Event.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		name    string
		target  stats.TargetInterval
		wantErr bool
	}{
		{"positive days", stats.TargetInterval{Value: 30, Unit: stats.Days}, false},
		{"zero", stats.TargetInterval{Value: 0, Unit: stats.Days}, true},
		{"NaN", stats.TargetInterval{Value: math.NaN(), Unit: stats.Days}, true},
		{"infinite", stats.TargetInterval{Value: math.Inf(1), Unit: stats.Hours}, true},
		{"bad unit", stats.TargetInterval{Value: 1, Unit: "fortnights"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTarget(tt.target)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEventStatsOptions(t *testing.T) {
	now := time.Now()
	def := &stats.TargetInterval{Value: 2, Unit: stats.Months}
	own := &stats.TargetInterval{Value: 3, Unit: stats.Days}

	e := Event{ID: "evt-1", Name: "x", CreatedAt: now, Unit: stats.Days}
	if got := e.StatsOptions(def, now).Target; got != def {
		t.Errorf("StatsOptions() target = %v, want default %v", got, def)
	}

	e.Target = own
	opts := e.StatsOptions(def, now)
	if opts.Target != own {
		t.Errorf("StatsOptions() target = %v, want own %v", opts.Target, own)
	}
	if !opts.Now.Equal(now) {
		t.Errorf("StatsOptions() now = %v, want %v", opts.Now, now)
	}
}

func TestEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{
			name:    "valid entry",
			entry:   Entry{ID: "ent-1", EventID: "evt-1", Timestamp: time.Now(), Note: "fertilized too"},
			wantErr: false,
		},
		{
			name:    "empty ID",
			entry:   Entry{EventID: "evt-1", Timestamp: time.Now()},
			wantErr: true,
		},
		{
			name:    "empty event ID",
			entry:   Entry{ID: "ent-1", Timestamp: time.Now()},
			wantErr: true,
		},
		{
			name:    "zero timestamp",
			entry:   Entry{ID: "ent-1", EventID: "evt-1"},
			wantErr: true,
		},
		{
			name:    "note too long",
			entry:   Entry{ID: "ent-1", EventID: "evt-1", Timestamp: time.Now(), Note: strings.Repeat("n", 2001)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Entry.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTimestamps(t *testing.T) {
	a := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	b := a.Add(time.Hour)
	got := Timestamps([]Entry{{Timestamp: b}, {Timestamp: a}})
	if len(got) != 2 || !got[0].Equal(b) || !got[1].Equal(a) {
		t.Errorf("Timestamps() = %v, want [%v %v]", got, b, a)
	}
}

func TestChangeLogValidate(t *testing.T) {
	tests := []struct {
		name    string
		log     ChangeLog
		wantErr bool
	}{
		{
			name:    "valid create",
			log:     ChangeLog{ID: "log-1", CreatedAt: time.Now(), EntityName: "event", EntityID: "evt-1", Action: ActionCreate, Payload: "{}"},
			wantErr: false,
		},
		{
			name:    "invalid action",
			log:     ChangeLog{ID: "log-1", CreatedAt: time.Now(), EntityName: "event", EntityID: "evt-1", Action: "upsert"},
			wantErr: true,
		},
		{
			name:    "missing entity",
			log:     ChangeLog{ID: "log-1", CreatedAt: time.Now(), EntityID: "evt-1", Action: ActionDelete},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.log.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ChangeLog.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInstantRange(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"now", time.Now(), true},
		{"lower bound", MinInstant, true},
		{"upper bound", MaxInstant, true},
		{"before lower bound", MinInstant.Add(-time.Nanosecond), false},
		{"after upper bound", MaxInstant.Add(time.Nanosecond), false},
		{"far future", time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InRange(tt.at); got != tt.want {
				t.Errorf("InRange(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}

	entry := Entry{ID: "ent-1", EventID: "evt-1", Timestamp: time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := entry.Validate(); err == nil {
		t.Error("Entry.Validate() accepted a timestamp that cannot be stored")
	}
	event := Event{ID: "evt-1", Name: "Run", Unit: stats.Days, CreatedAt: time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := event.Validate(); err == nil {
		t.Error("Event.Validate() accepted a created at that cannot be stored")
	}
}
