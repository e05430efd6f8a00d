package models

import (
	"errors"
	"math"
	"time"
)

// Entry is a single recorded occurrence of an event.
type Entry struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Validate checks that all entry fields are valid
func (e *Entry) Validate() error {
	if e.ID == "" {
		return errors.New("entry ID must not be empty")
	}
	if e.EventID == "" {
		return errors.New("event ID must not be empty")
	}
	if e.Timestamp.IsZero() {
		return errors.New("timestamp must be set")
	}
	if !InRange(e.Timestamp) {
		return errors.New("timestamp must be between 1678 and 2262")
	}
	if len(e.Note) > 2000 {
		return errors.New("note must be at most 2000 bytes")
	}
	return nil
}

// Instants are persisted as Unix nanoseconds, which only cover this range.
var (
	MinInstant = time.Unix(0, math.MinInt64).UTC()
	MaxInstant = time.Unix(0, math.MaxInt64).UTC()
)

// InRange reports whether t can be stored without loss.
func InRange(t time.Time) bool {
	return !t.Before(MinInstant) && !t.After(MaxInstant)
}

// Timestamps extracts the occurrence instants from entries, preserving order.
func Timestamps(entries []Entry) []time.Time {
	out := make([]time.Time, len(entries))
	for i, e := range entries {
		out[i] = e.Timestamp
	}
	return out
}
