// Package reminder finds events that are due soon or overdue.
//
// A scan pulls a consistent snapshot of each active event from the store,
// runs the stats engine on it and classifies the result:
//
//	no_history  no occurrence recorded yet
//	overdue     due-in < 0
//	due_soon    0 <= due-in <= dueSoonDays
//	on_track    otherwise
//
// Rank orders the actionable reminders for notification, and the cooldown
// helpers suppress repeats of the same reminder within a window.
package reminder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rewired-gh/everyday/internal/logger"
	"github.com/rewired-gh/everyday/internal/models"
	"github.com/rewired-gh/everyday/internal/stats"
)

// Status classifies an event's position in its cycle.
type Status string

const (
	StatusNoHistory Status = "no_history"
	StatusOnTrack   Status = "on_track"
	StatusDueSoon   Status = "due_soon"
	StatusOverdue   Status = "overdue"
)

// Actionable reports whether the status warrants a notification.
func (s Status) Actionable() bool {
	return s == StatusDueSoon || s == StatusOverdue
}

// Reminder is a classified stats snapshot for one event.
type Reminder struct {
	Event  models.Event
	Stats  stats.EventStats
	Status Status
}

// Store is the part of the event store a scan needs.
type Store interface {
	GetAllEvents(ctx context.Context, includeArchived bool) ([]*models.Event, error)
	Snapshot(ctx context.Context, eventID string) (*models.Event, []time.Time, error)
}

// ScanError represents a per-event failure during a scan
type ScanError struct {
	EventID string
	Err     error
}

func (e ScanError) Error() string {
	return fmt.Sprintf("scan error for event %s: %v", e.EventID, e.Err)
}

func (e ScanError) Unwrap() error {
	return e.Err
}

// notifiedRecord tracks a previously sent reminder for cooldown deduplication.
type notifiedRecord struct {
	Status Status
	SentAt time.Time
}

// Scanner computes reminders for every active event. It is not safe for
// concurrent use; the watch loop drives it from a single goroutine.
type Scanner struct {
	store         Store
	defaultTarget *stats.TargetInterval
	unit          stats.Unit
	dueSoonDays   float64
	notified      map[string]notifiedRecord // key = event ID
}

// New creates a Scanner. defaultTarget applies to events without their own
// target; unit overrides each event's unit for formatting when non-empty.
func New(store Store, defaultTarget *stats.TargetInterval, unit stats.Unit, dueSoonDays float64) *Scanner {
	if dueSoonDays < 0 {
		dueSoonDays = 0
	}
	return &Scanner{
		store:         store,
		defaultTarget: defaultTarget,
		unit:          unit,
		dueSoonDays:   dueSoonDays,
		notified:      make(map[string]notifiedRecord),
	}
}

// Classify maps a stats snapshot to a Status.
func Classify(s stats.EventStats, dueSoonDays float64) Status {
	if s.LastDate == nil || s.DueInDays == nil {
		return StatusNoHistory
	}
	due := *s.DueInDays
	switch {
	case due < 0:
		return StatusOverdue
	case due <= dueSoonDays:
		return StatusDueSoon
	default:
		return StatusOnTrack
	}
}

// Evaluate computes and classifies the stats of one event.
func Evaluate(event models.Event, occurrences []time.Time, defaultTarget *stats.TargetInterval, unit stats.Unit, dueSoonDays float64, now time.Time) Reminder {
	if unit == "" {
		unit = event.Unit
	}
	opts := event.StatsOptions(defaultTarget, now)
	opts.Trace = logger.TraceSink(event.Name + ": ")
	st := stats.Compute(event.CreatedAt, occurrences, unit, opts)
	return Reminder{
		Event:  event,
		Stats:  st,
		Status: Classify(st, dueSoonDays),
	}
}

// Scan evaluates every active event at now. Per-event failures are returned
// separately and do not abort the scan.
func (s *Scanner) Scan(ctx context.Context, now time.Time) ([]Reminder, []ScanError, error) {
	events, err := s.store.GetAllEvents(ctx, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list events: %w", err)
	}

	reminders := make([]Reminder, 0, len(events))
	var scanErrors []ScanError
	counts := make(map[Status]int)

	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		event, occurrences, err := s.store.Snapshot(ctx, e.ID)
		if err != nil {
			scanErrors = append(scanErrors, ScanError{EventID: e.ID, Err: err})
			continue
		}
		r := Evaluate(*event, occurrences, s.defaultTarget, s.unit, s.dueSoonDays, now)
		counts[r.Status]++
		reminders = append(reminders, r)
	}

	logger.Debug("Scan: events=%d overdue=%d due_soon=%d on_track=%d no_history=%d errors=%d",
		len(events), counts[StatusOverdue], counts[StatusDueSoon], counts[StatusOnTrack], counts[StatusNoHistory], len(scanErrors))

	return reminders, scanErrors, nil
}

// Rank returns at most k actionable reminders: overdue first (most overdue
// first), then due soon (least time remaining first). Ties are broken by
// event name then ID for determinism. Returns a non-nil slice.
func Rank(reminders []Reminder, k int) []Reminder {
	ranked := make([]Reminder, 0, len(reminders))
	for _, r := range reminders {
		if r.Status.Actionable() {
			ranked = append(ranked, r)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Status != b.Status {
			return a.Status == StatusOverdue
		}
		if *a.Stats.DueInDays != *b.Stats.DueInDays {
			return *a.Stats.DueInDays < *b.Stats.DueInDays
		}
		if na, nb := strings.ToLower(a.Event.Name), strings.ToLower(b.Event.Name); na != nb {
			return na < nb
		}
		return a.Event.ID < b.Event.ID
	})

	if k <= 0 {
		return []Reminder{}
	}
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// FilterRecentlySent drops reminders already sent within cooldown with the
// same status. An event that moved from due soon to overdue is sent again.
// Returns a non-nil slice.
func (s *Scanner) FilterRecentlySent(reminders []Reminder, cooldown time.Duration, now time.Time) []Reminder {
	result := make([]Reminder, 0, len(reminders))
	for _, r := range reminders {
		rec, exists := s.notified[r.Event.ID]
		if exists && now.Sub(rec.SentAt) < cooldown && rec.Status == r.Status {
			continue
		}
		result = append(result, r)
	}
	return result
}

// RecordNotified marks reminders as sent at now. Call it after a successful
// delivery so that FilterRecentlySent can suppress repeats.
func (s *Scanner) RecordNotified(reminders []Reminder, now time.Time) {
	for _, r := range reminders {
		s.notified[r.Event.ID] = notifiedRecord{Status: r.Status, SentAt: now}
	}
}

// Forget drops cooldown records of events that are no longer actionable, so
// the next time they come due they are reported immediately.
func (s *Scanner) Forget(reminders []Reminder) {
	for _, r := range reminders {
		if !r.Status.Actionable() {
			delete(s.notified, r.Event.ID)
		}
	}
}
