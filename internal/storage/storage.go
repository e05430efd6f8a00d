// Package storage provides the SQLite-backed event store. It manages
// tracked events, their recorded entries and an append-only change log.
//
// Every mutation runs in a single transaction together with its change log
// row. Writes are serialized by a mutex and the database handle uses one
// connection, so readers always observe a consistent point-in-time snapshot.
// Slices returned by the store are freshly allocated and owned by the caller.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/everyday/internal/models"
	"github.com/rewired-gh/everyday/internal/stats"
)

const driverName = "sqlite"

var (
	// ErrNotFound is returned when an event or entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrLimitReached is returned when adding an event would exceed max_events.
	ErrLimitReached = errors.New("limit reached")
	// ErrAmbiguous is returned when a name matches more than one event.
	ErrAmbiguous = errors.New("ambiguous reference")
)

// Storage is the event store.
type Storage struct {
	db *sql.DB
	mu sync.Mutex

	maxEvents          int
	maxEntriesPerEvent int
	path               string

	// now is replaceable in tests.
	now func() time.Time
}

// New opens (creating if needed) the database at dbPath and applies the
// schema. ":memory:" gives a private in-memory database. An empty path uses
// a file in the OS temp directory.
func New(maxEvents, maxEntriesPerEvent int, dbPath string) (*Storage, error) {
	cleanPath := strings.TrimSpace(dbPath)
	if cleanPath == "" {
		cleanPath = filepath.Join(os.TempDir(), "everyday", "everyday.db")
	}

	dsn := cleanPath
	if cleanPath != ":memory:" {
		if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
			return nil, fmt.Errorf("database path %q is a directory, expected file", cleanPath)
		}
		if dir := filepath.Dir(cleanPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory %q: %w", dir, err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", cleanPath, err)
	}
	// One connection keeps ":memory:" alive and makes reads snapshot-consistent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", cleanPath, err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Storage{
		db:                 db,
		maxEvents:          maxEvents,
		maxEntriesPerEvent: maxEntriesPerEvent,
		path:               cleanPath,
		now:                time.Now,
	}, nil
}

// Close releases the database handle.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Storage) Path() string {
	return s.path
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AddEvent creates a new active event.
func (s *Storage) AddEvent(ctx context.Context, name string, unit stats.Unit, target *stats.TargetInterval) (*models.Event, error) {
	event := &models.Event{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		CreatedAt: s.now().UTC(),
		Unit:      unit,
		Target:    copyTarget(target),
	}
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if s.maxEvents > 0 {
			var active int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE is_archived = 0`).Scan(&active); err != nil {
				return fmt.Errorf("count events: %w", err)
			}
			if active >= s.maxEvents {
				return fmt.Errorf("cannot add event, %d active events: %w", active, ErrLimitReached)
			}
		}
		if err := insertEvent(ctx, tx, event); err != nil {
			return err
		}
		return s.logChange(ctx, tx, models.ActionCreate, "event", event.ID, eventPayload(event))
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// GetEvent retrieves an event by ID.
func (s *Storage) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return event, nil
}

// GetAllEvents returns events ordered by creation time, oldest first.
// Archived events are skipped unless includeArchived is set.
func (s *Storage) GetAllEvents(ctx context.Context, includeArchived bool) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	if !includeArchived {
		query += ` WHERE is_archived = 0`
	}
	query += ` ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// FindEvent resolves ref as an event ID first, then as a case-insensitive
// event name.
func (s *Storage) FindEvent(ctx context.Context, ref string) (*models.Event, error) {
	ref = strings.TrimSpace(ref)
	event, err := s.GetEvent(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return event, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE lower(name) = lower(?) ORDER BY is_archived ASC, created_at ASC`, ref)
	if err != nil {
		return nil, fmt.Errorf("find event %q: %w", ref, err)
	}
	defer rows.Close()

	var matches []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		matches = append(matches, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find event %q: %w", ref, err)
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("event %q: %w", ref, ErrNotFound)
	case len(matches) > 1 && !matches[0].IsArchived && !matches[1].IsArchived:
		return nil, fmt.Errorf("event %q matches %d events, use the ID: %w", ref, len(matches), ErrAmbiguous)
	}
	return matches[0], nil
}

// RenameEvent changes an event's name.
func (s *Storage) RenameEvent(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	return s.updateEvent(ctx, id, func(e *models.Event) map[string]any {
		e.Name = name
		return map[string]any{"name": name}
	})
}

// SetUnit changes an event's preferred display unit.
func (s *Storage) SetUnit(ctx context.Context, id string, unit stats.Unit) error {
	return s.updateEvent(ctx, id, func(e *models.Event) map[string]any {
		e.Unit = unit
		return map[string]any{"unit": string(unit)}
	})
}

// SetTarget sets an event's target interval; nil clears it.
func (s *Storage) SetTarget(ctx context.Context, id string, target *stats.TargetInterval) error {
	return s.updateEvent(ctx, id, func(e *models.Event) map[string]any {
		e.Target = copyTarget(target)
		if target == nil {
			return map[string]any{"target": nil}
		}
		return map[string]any{"target": target.String()}
	})
}

// ArchiveEvent hides an event from active listings while keeping its history.
func (s *Storage) ArchiveEvent(ctx context.Context, id string) error {
	return s.updateEvent(ctx, id, func(e *models.Event) map[string]any {
		e.IsArchived = true
		return map[string]any{"is_archived": true}
	})
}

// updateEvent loads, mutates, validates and writes back an event in one
// transaction.
func (s *Storage) updateEvent(ctx context.Context, id string, mutate func(*models.Event) map[string]any) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		event, err := scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get event %s: %w", id, err)
		}

		payload := mutate(event)
		if err := event.Validate(); err != nil {
			return fmt.Errorf("invalid event: %w", err)
		}

		targetValue, targetUnit := targetColumns(event.Target)
		if _, err := tx.ExecContext(ctx,
			`UPDATE events SET name = ?, unit = ?, target_value = ?, target_unit = ?, is_archived = ? WHERE id = ?`,
			event.Name, string(event.Unit), targetValue, targetUnit, boolToInt(event.IsArchived), id,
		); err != nil {
			return fmt.Errorf("update event %s: %w", id, err)
		}
		return s.logChange(ctx, tx, models.ActionUpdate, "event", id, payload)
	})
}

// DeleteEvent removes an event and all of its entries.
func (s *Storage) DeleteEvent(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE event_id = ?`, id); err != nil {
			return fmt.Errorf("delete entries of %s: %w", id, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete event %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return s.logChange(ctx, tx, models.ActionDelete, "event", id, map[string]any{})
	})
}

// DeleteAll wipes every event, entry and change log row.
func (s *Storage) DeleteAll(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return clearAll(ctx, tx)
	})
}

func clearAll(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"entries", "events", "change_log"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// Record adds an occurrence of an event. A zero at records the current time.
func (s *Storage) Record(ctx context.Context, eventID string, at time.Time, note string) (*models.Entry, error) {
	if at.IsZero() {
		at = s.now()
	}
	entry := &models.Entry{
		ID:        uuid.New().String(),
		EventID:   eventID,
		Timestamp: at.UTC(),
		Note:      strings.TrimSpace(note),
	}
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid entry: %w", err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := eventExists(ctx, tx, eventID); err != nil {
			return err
		}
		if err := insertEntry(ctx, tx, entry); err != nil {
			return err
		}
		return s.logChange(ctx, tx, models.ActionCreate, "entry", entry.ID, map[string]any{
			"event_id":  eventID,
			"timestamp": entry.Timestamp.Format(time.RFC3339Nano),
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteEntry removes a single recorded occurrence.
func (s *Storage) DeleteEntry(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete entry %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("entry %s: %w", id, ErrNotFound)
		}
		return s.logChange(ctx, tx, models.ActionDelete, "entry", id, map[string]any{})
	})
}

// GetEntries returns an event's entries, newest first.
func (s *Storage) GetEntries(ctx context.Context, eventID string) ([]models.Entry, error) {
	var entries []models.Entry
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		if err := eventExists(ctx, tx, eventID); err != nil {
			return err
		}
		var err error
		entries, err = queryEntries(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// LastEntry returns the most recent entry, or nil when there is none.
func (s *Storage) LastEntry(ctx context.Context, eventID string) (*models.Entry, error) {
	entries, err := s.GetEntries(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// Occurrences returns the event's occurrence instants, newest first.
func (s *Storage) Occurrences(ctx context.Context, eventID string) ([]time.Time, error) {
	entries, err := s.GetEntries(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return models.Timestamps(entries), nil
}

// CreatedAt returns the instant the event was defined.
func (s *Storage) CreatedAt(ctx context.Context, eventID string) (time.Time, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return time.Time{}, err
	}
	return event.CreatedAt, nil
}

// Snapshot reads an event and its occurrences (newest first) in one read
// transaction, so the pair is consistent.
func (s *Storage) Snapshot(ctx context.Context, eventID string) (*models.Event, []time.Time, error) {
	var (
		event   *models.Event
		entries []models.Entry
	)
	err := s.withReadTx(ctx, func(tx *sql.Tx) error {
		var err error
		event, err = scanEvent(tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, eventID))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("event %s: %w", eventID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get event %s: %w", eventID, err)
		}
		entries, err = queryEntries(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return event, models.Timestamps(entries), nil
}

// RestoreResult counts the rows written and skipped by Restore.
type RestoreResult struct {
	EventsAdded    int
	EventsSkipped  int
	EntriesAdded   int
	EntriesSkipped int
}

// Restore writes events and entries keeping their IDs. With replace set the
// store is wiped first; otherwise rows whose IDs already exist are skipped.
// Everything runs in one transaction: on error the store is left unchanged.
// Restored active events count against max_events like added ones.
func (s *Storage) Restore(ctx context.Context, events []*models.Event, entries []models.Entry, replace bool) (RestoreResult, error) {
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return RestoreResult{}, fmt.Errorf("invalid event %s: %w", e.ID, err)
		}
	}
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return RestoreResult{}, fmt.Errorf("invalid entry %s: %w", entries[i].ID, err)
		}
	}

	var res RestoreResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if replace {
			if err := clearAll(ctx, tx); err != nil {
				return err
			}
		}

		activeAdded := 0
		for _, e := range events {
			added, err := s.restoreEvent(ctx, tx, e)
			if err != nil {
				return err
			}
			if !added {
				res.EventsSkipped++
				continue
			}
			res.EventsAdded++
			if !e.IsArchived {
				activeAdded++
			}
		}
		if s.maxEvents > 0 && activeAdded > 0 {
			var active int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE is_archived = 0`).Scan(&active); err != nil {
				return fmt.Errorf("count events: %w", err)
			}
			if active > s.maxEvents {
				return fmt.Errorf("cannot restore %d active events, %d would exceed max %d: %w",
					activeAdded, active, s.maxEvents, ErrLimitReached)
			}
		}

		for i := range entries {
			added, err := s.restoreEntry(ctx, tx, &entries[i])
			if err != nil {
				return err
			}
			if added {
				res.EntriesAdded++
			} else {
				res.EntriesSkipped++
			}
		}
		return nil
	})
	if err != nil {
		return RestoreResult{}, err
	}
	return res, nil
}

func (s *Storage) restoreEvent(ctx context.Context, tx *sql.Tx, event *models.Event) (bool, error) {
	err := eventExists(ctx, tx, event.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if err := insertEvent(ctx, tx, event); err != nil {
		return false, err
	}
	return true, s.logChange(ctx, tx, models.ActionCreate, "event", event.ID, eventPayload(event))
}

func (s *Storage) restoreEntry(ctx context.Context, tx *sql.Tx, entry *models.Entry) (bool, error) {
	if err := eventExists(ctx, tx, entry.EventID); err != nil {
		return false, fmt.Errorf("entry %s: %w", entry.ID, err)
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE id = ?`, entry.ID).Scan(&n); err != nil {
		return false, fmt.Errorf("check entry %s: %w", entry.ID, err)
	}
	if n > 0 {
		return false, nil
	}
	if err := insertEntry(ctx, tx, entry); err != nil {
		return false, err
	}
	return true, s.logChange(ctx, tx, models.ActionCreate, "entry", entry.ID, map[string]any{
		"event_id":  entry.EventID,
		"timestamp": entry.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// ChangeLog returns up to limit audit rows, newest first. limit <= 0
// returns all rows.
func (s *Storage) ChangeLog(ctx context.Context, limit int) ([]models.ChangeLog, error) {
	query := `SELECT id, created_at, entity_name, entity_id, action, payload FROM change_log ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list change log: %w", err)
	}
	defer rows.Close()

	logs := make([]models.ChangeLog, 0)
	for rows.Next() {
		var (
			l       models.ChangeLog
			created int64
			action  string
		)
		if err := rows.Scan(&l.ID, &created, &l.EntityName, &l.EntityID, &action, &l.Payload); err != nil {
			return nil, fmt.Errorf("scan change log: %w", err)
		}
		l.CreatedAt = fromNanos(created)
		l.Action = models.Action(action)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list change log: %w", err)
	}
	return logs, nil
}

// RotateEntries removes the oldest entries of every event beyond the
// configured per-event maximum and returns how many were removed.
func (s *Storage) RotateEntries(ctx context.Context) (int64, error) {
	if s.maxEntriesPerEvent <= 0 {
		return 0, nil
	}
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM entries WHERE id IN (
  SELECT id FROM (
    SELECT id, ROW_NUMBER() OVER (PARTITION BY event_id ORDER BY ts DESC, id DESC) AS rn
    FROM entries
  ) WHERE rn > ?
)`, s.maxEntriesPerEvent)
		if err != nil {
			return fmt.Errorf("rotate entries: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return removed, err
}

// withTx runs fn in a write transaction. Only tx may be used inside fn: the
// pool has a single connection.
func (s *Storage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Storage) withReadTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return fn(tx)
}

func (s *Storage) logChange(ctx context.Context, tx *sql.Tx, action models.Action, entity, id string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal change payload: %w", err)
	}
	entry := models.ChangeLog{
		ID:         uuid.New().String(),
		CreatedAt:  s.now().UTC(),
		EntityName: entity,
		EntityID:   id,
		Action:     action,
		Payload:    string(data),
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid change log: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO change_log (id, created_at, entity_name, entity_id, action, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.CreatedAt.UnixNano(), entry.EntityName, entry.EntityID, string(entry.Action), entry.Payload,
	); err != nil {
		return fmt.Errorf("insert change log: %w", err)
	}
	return nil
}

const eventColumns = `id, name, created_at, unit, target_value, target_unit, is_archived`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e           models.Event
		created     int64
		unit        string
		targetValue sql.NullFloat64
		targetUnit  sql.NullString
		archived    int
	)
	if err := row.Scan(&e.ID, &e.Name, &created, &unit, &targetValue, &targetUnit, &archived); err != nil {
		return nil, err
	}
	e.CreatedAt = fromNanos(created)
	e.Unit = stats.Unit(unit)
	if targetValue.Valid && targetUnit.Valid {
		e.Target = &stats.TargetInterval{Value: targetValue.Float64, Unit: stats.Unit(targetUnit.String)}
	}
	e.IsArchived = archived != 0
	return &e, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, e *models.Event) error {
	targetValue, targetUnit := targetColumns(e.Target)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.CreatedAt.UnixNano(), string(e.Unit), targetValue, targetUnit, boolToInt(e.IsArchived),
	); err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e *models.Entry) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entries (id, event_id, ts, note) VALUES (?, ?, ?, ?)`,
		e.ID, e.EventID, e.Timestamp.UnixNano(), e.Note,
	); err != nil {
		return fmt.Errorf("insert entry %s: %w", e.ID, err)
	}
	return nil
}

func queryEntries(ctx context.Context, tx *sql.Tx, eventID string) ([]models.Entry, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, event_id, ts, note FROM entries WHERE event_id = ? ORDER BY ts DESC, id DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list entries of %s: %w", eventID, err)
	}
	defer rows.Close()

	entries := make([]models.Entry, 0)
	for rows.Next() {
		var (
			e  models.Entry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.EventID, &ts, &e.Note); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Timestamp = fromNanos(ts)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries of %s: %w", eventID, err)
	}
	return entries, nil
}

func eventExists(ctx context.Context, tx *sql.Tx, id string) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("check event %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return nil
}

func eventPayload(e *models.Event) map[string]any {
	payload := map[string]any{
		"name": e.Name,
		"unit": string(e.Unit),
	}
	if e.Target != nil {
		payload["target"] = e.Target.String()
	}
	return payload
}

func targetColumns(t *stats.TargetInterval) (any, any) {
	if t == nil {
		return nil, nil
	}
	return t.Value, string(t.Unit)
}

func copyTarget(t *stats.TargetInterval) *stats.TargetInterval {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
