// Package backup exports the event store to a JSON document and restores it.
//
// Imports either merge by ID (existing events and entries are kept, new
// ones added) or replace the whole store, in a single transaction. Files
// are written atomically via a temporary file and rename.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rewired-gh/everyday/internal/models"
	"github.com/rewired-gh/everyday/internal/stats"
	"github.com/rewired-gh/everyday/internal/storage"
)

// Version is the current payload format.
const Version = "1.0"

// Payload is the backup document.
type Payload struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Events     []Event   `json:"events"`
}

// Event is an exported event with its entries.
type Event struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	CreatedAt time.Time             `json:"created_at"`
	Unit      stats.Unit            `json:"unit"`
	Target    *stats.TargetInterval `json:"target,omitempty"`
	Archived  bool                  `json:"archived"`
	Entries   []Entry               `json:"entries"`
}

// Entry is an exported occurrence.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Source is the read side of the store used by Export.
type Source interface {
	GetAllEvents(ctx context.Context, includeArchived bool) ([]*models.Event, error)
	GetEntries(ctx context.Context, eventID string) ([]models.Entry, error)
}

// Sink is the write side of the store used by Import.
type Sink interface {
	Restore(ctx context.Context, events []*models.Event, entries []models.Entry, replace bool) (storage.RestoreResult, error)
}

// Result summarizes an import.
type Result = storage.RestoreResult

// Export builds a payload containing every event, archived ones included.
func Export(ctx context.Context, src Source, now time.Time) (*Payload, error) {
	events, err := src.GetAllEvents(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	p := &Payload{
		Version:    Version,
		ExportedAt: now.UTC(),
		Events:     make([]Event, 0, len(events)),
	}
	for _, e := range events {
		entries, err := src.GetEntries(ctx, e.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list entries of %s: %w", e.ID, err)
		}
		out := Event{
			ID:        e.ID,
			Name:      e.Name,
			CreatedAt: e.CreatedAt,
			Unit:      e.Unit,
			Target:    e.Target,
			Archived:  e.IsArchived,
			Entries:   make([]Entry, 0, len(entries)),
		}
		for _, en := range entries {
			out.Entries = append(out.Entries, Entry{ID: en.ID, Timestamp: en.Timestamp, Note: en.Note})
		}
		p.Events = append(p.Events, out)
	}
	return p, nil
}

// Validate checks the payload is structurally sound before anything is
// written to the store.
func (p *Payload) Validate() error {
	if p.Version != Version {
		return fmt.Errorf("unsupported backup version %q", p.Version)
	}
	seenEvents := make(map[string]bool, len(p.Events))
	seenEntries := make(map[string]bool)
	for i, e := range p.Events {
		if e.ID == "" {
			return fmt.Errorf("event %d: ID must not be empty", i)
		}
		if seenEvents[e.ID] {
			return fmt.Errorf("event %s: duplicate ID", e.ID)
		}
		seenEvents[e.ID] = true
		for j, en := range e.Entries {
			if en.ID == "" {
				return fmt.Errorf("event %s entry %d: ID must not be empty", e.ID, j)
			}
			if seenEntries[en.ID] {
				return fmt.Errorf("entry %s: duplicate ID", en.ID)
			}
			seenEntries[en.ID] = true
		}
	}
	return nil
}

// Import writes the payload into dst. With replace set the store is wiped
// first; otherwise rows whose IDs already exist are skipped. The payload is
// written as a whole or not at all.
func Import(ctx context.Context, dst Sink, p *Payload, replace bool) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid backup: %w", err)
	}

	events := make([]*models.Event, 0, len(p.Events))
	var entries []models.Entry
	for _, e := range p.Events {
		event := &models.Event{
			ID:         e.ID,
			Name:       strings.TrimSpace(e.Name),
			CreatedAt:  e.CreatedAt,
			Unit:       e.Unit,
			Target:     e.Target,
			IsArchived: e.Archived,
		}
		if !event.Unit.Valid() {
			event.Unit = stats.Days
		}
		events = append(events, event)
		for _, en := range e.Entries {
			entries = append(entries, models.Entry{
				ID:        en.ID,
				EventID:   e.ID,
				Timestamp: en.Timestamp,
				Note:      en.Note,
			})
		}
	}

	res, err := dst.Restore(ctx, events, entries, replace)
	if err != nil {
		return Result{}, fmt.Errorf("failed to restore backup: %w", err)
	}
	return res, nil
}

// Encode writes the payload as indented JSON.
func Encode(w io.Writer, p *Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// Decode reads a payload.
func Decode(r io.Reader) (*Payload, error) {
	var p Payload
	dec := json.NewDecoder(r)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	return &p, nil
}

// WriteFile writes the payload to path atomically.
func WriteFile(path string, p *Payload) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create backup directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Encode(f, p); err != nil {
		_ = f.Close()
		_ = os.Remove(tempPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath) // Clean up temp file on rename failure
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// ReadFile reads a payload from path.
func ReadFile(path string) (*Payload, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("backup file %s does not exist", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
