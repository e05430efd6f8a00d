// Package models defines the core domain entities for the everyday tracker.
// An Event is something the user wants to do on a cadence ("water plants");
// each time it happens an Entry is recorded. Every mutation also leaves a
// ChangeLog row for auditing. All models validate themselves before they
// are persisted.
package models

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rewired-gh/everyday/internal/stats"
)

// maxNameLength bounds event names in runes.
const maxNameLength = 200

// Event represents a tracked recurring activity.
type Event struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	CreatedAt  time.Time             `json:"created_at"`
	Unit       stats.Unit            `json:"unit"`             // Preferred display unit
	Target     *stats.TargetInterval `json:"target,omitempty"` // Optional desired cadence
	IsArchived bool                  `json:"is_archived"`
}

// Validate checks that all event fields are valid.
func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event ID must not be empty")
	}
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return errors.New("event name must not be empty")
	}
	if len([]rune(name)) > maxNameLength {
		return errors.New("event name must be at most 200 characters")
	}
	if !e.Unit.Valid() {
		return errors.New("event unit must be one of minutes, hours, days, months")
	}
	if e.Target != nil {
		if err := ValidateTarget(*e.Target); err != nil {
			return err
		}
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created at must be set")
	}
	if !InRange(e.CreatedAt) {
		return errors.New("created at must be between 1678 and 2262")
	}
	return nil
}

// ValidateTarget rejects targets the user should not be able to configure.
// The stats engine tolerates any value; this only guards user input.
func ValidateTarget(t stats.TargetInterval) error {
	if !t.Unit.Valid() {
		return errors.New("target unit must be one of minutes, hours, days, months")
	}
	if math.IsNaN(t.Value) || math.IsInf(t.Value, 0) || t.Value <= 0 {
		return errors.New("target value must be a positive number")
	}
	return nil
}

// StatsOptions returns the engine options for this event, falling back to
// the given default target when the event has none.
func (e *Event) StatsOptions(defaultTarget *stats.TargetInterval, now time.Time) stats.Options {
	target := e.Target
	if target == nil {
		target = defaultTarget
	}
	return stats.Options{Target: target, Now: now}
}
