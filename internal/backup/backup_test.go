package backup

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/everyday/internal/stats"
	"github.com/rewired-gh/everyday/internal/storage"
)

var base = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func mustStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.New(100, 1000, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *storage.Storage) {
	t.Helper()
	ctx := context.Background()

	plants, err := s.AddEvent(ctx, "Water plants", stats.Days, &stats.TargetInterval{Value: 3, Unit: stats.Days})
	require.NoError(t, err)
	for d := 0; d < 3; d++ {
		_, err := s.Record(ctx, plants.ID, base.AddDate(0, 0, d*3), "ok")
		require.NoError(t, err)
	}

	old, err := s.AddEvent(ctx, "Old habit", stats.Hours, nil)
	require.NoError(t, err)
	_, err = s.Record(ctx, old.ID, base, "")
	require.NoError(t, err)
	require.NoError(t, s.ArchiveEvent(ctx, old.ID))
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := mustStorage(t)
	seed(t, src)

	p, err := Export(ctx, src, base)
	require.NoError(t, err)
	require.Len(t, p.Events, 2)
	assert.Equal(t, Version, p.Version)
	assert.True(t, p.Events[1].Archived)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, p))
	decoded, err := Decode(&buf)
	require.NoError(t, err)

	dst := mustStorage(t)
	res, err := Import(ctx, dst, decoded, false)
	require.NoError(t, err)
	assert.Equal(t, Result{EventsAdded: 2, EntriesAdded: 4}, res)

	events, err := dst.GetAllEvents(ctx, true)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Water plants", events[0].Name)
	require.NotNil(t, events[0].Target)
	assert.Equal(t, 3.0, events[0].Target.Value)
	assert.True(t, events[1].IsArchived)

	// the restored history yields the same stats as the original
	now := base.AddDate(0, 0, 10)
	_, occA, err := src.Snapshot(ctx, events[0].ID)
	require.NoError(t, err)
	_, occB, err := dst.Snapshot(ctx, events[0].ID)
	require.NoError(t, err)
	a := stats.Compute(base, occA, stats.Days, stats.Options{Now: now})
	b := stats.Compute(base, occB, stats.Days, stats.Options{Now: now})
	assert.Equal(t, a.DisplayCycleDays, b.DisplayCycleDays)
	assert.Equal(t, a.Progress, b.Progress)
}

func TestImportMergeSkipsExisting(t *testing.T) {
	ctx := context.Background()
	s := mustStorage(t)
	seed(t, s)

	p, err := Export(ctx, s, base)
	require.NoError(t, err)

	res, err := Import(ctx, s, p, false)
	require.NoError(t, err)
	assert.Equal(t, Result{EventsSkipped: 2, EntriesSkipped: 4}, res)
}

func TestImportReplace(t *testing.T) {
	ctx := context.Background()
	s := mustStorage(t)
	seed(t, s)

	p := &Payload{
		Version: Version,
		Events: []Event{{
			ID:        "evt-new",
			Name:      "Stretch",
			CreatedAt: base,
			Unit:      "bogus",
			Entries:   []Entry{{ID: "ent-1", Timestamp: base.Add(time.Hour)}},
		}},
	}

	res, err := Import(ctx, s, p, true)
	require.NoError(t, err)
	assert.Equal(t, Result{EventsAdded: 1, EntriesAdded: 1}, res)

	events, err := s.GetAllEvents(ctx, true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Stretch", events[0].Name)
	assert.Equal(t, stats.Days, events[0].Unit, "unknown units fall back to days")
}

func TestPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{"valid empty", Payload{Version: Version}, false},
		{"wrong version", Payload{Version: "9"}, true},
		{"empty event ID", Payload{Version: Version, Events: []Event{{Name: "x"}}}, true},
		{"duplicate event", Payload{Version: Version, Events: []Event{{ID: "a"}, {ID: "a"}}}, true},
		{"empty entry ID", Payload{Version: Version, Events: []Event{{ID: "a", Entries: []Entry{{}}}}}, true},
		{"duplicate entry", Payload{Version: Version, Events: []Event{
			{ID: "a", Entries: []Entry{{ID: "x"}}},
			{ID: "b", Entries: []Entry{{ID: "x"}}},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Payload.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestImportRejectsInvalidPayloadBeforeWriting(t *testing.T) {
	ctx := context.Background()
	s := mustStorage(t)
	seed(t, s)

	_, err := Import(ctx, s, &Payload{Version: "0.1"}, true)
	require.Error(t, err)

	events, err := s.GetAllEvents(ctx, true)
	require.NoError(t, err)
	assert.Len(t, events, 2, "store must be untouched")
}

func TestImportReplaceWithInvalidRowKeepsStore(t *testing.T) {
	ctx := context.Background()
	s := mustStorage(t)
	seed(t, s)

	tests := []struct {
		name  string
		event Event
	}{
		{"blank name", Event{ID: "e1", Name: "   ", CreatedAt: base, Unit: stats.Days}},
		{"zero target", Event{ID: "e1", Name: "Bike", CreatedAt: base, Unit: stats.Days,
			Target: &stats.TargetInterval{Value: 0, Unit: stats.Days}}},
		{"zero timestamp", Event{ID: "e1", Name: "Bike", CreatedAt: base, Unit: stats.Days,
			Entries: []Entry{{ID: "x1", Timestamp: base}, {ID: "x2"}}}},
		{"long note", Event{ID: "e1", Name: "Bike", CreatedAt: base, Unit: stats.Days,
			Entries: []Entry{{ID: "x1", Timestamp: base, Note: strings.Repeat("n", 2001)}}}},
		{"far future", Event{ID: "e1", Name: "Bike", CreatedAt: base, Unit: stats.Days,
			Entries: []Entry{{ID: "x1", Timestamp: time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Payload{Version: Version, Events: []Event{
				{ID: "ok", Name: "Stretch", CreatedAt: base, Unit: stats.Days},
				tt.event,
			}}
			_, err := Import(ctx, s, p, true)
			require.Error(t, err)

			events, err := s.GetAllEvents(ctx, true)
			require.NoError(t, err)
			require.Len(t, events, 2, "store must be untouched")
			assert.Equal(t, "Water plants", events[0].Name)
			entries, err := s.GetEntries(ctx, events[0].ID)
			require.NoError(t, err)
			assert.Len(t, entries, 3)
		})
	}
}

func TestImportMergeIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := mustStorage(t)
	seed(t, s)

	p := &Payload{Version: Version, Events: []Event{
		{ID: "a", Name: "Stretch", CreatedAt: base, Unit: stats.Days, Entries: []Entry{{ID: "a1", Timestamp: base}}},
		{ID: "b", Name: "", CreatedAt: base, Unit: stats.Days},
	}}
	_, err := Import(ctx, s, p, false)
	require.Error(t, err)

	events, err := s.GetAllEvents(ctx, true)
	require.NoError(t, err)
	assert.Len(t, events, 2, "the valid event must not be written either")
}

func TestImportRespectsEventLimit(t *testing.T) {
	ctx := context.Background()
	s, err := storage.New(2, 1000, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	seed(t, s) // one active, one archived

	p := &Payload{Version: Version, Events: []Event{
		{ID: "a", Name: "Stretch", CreatedAt: base, Unit: stats.Days},
		{ID: "b", Name: "Read", CreatedAt: base, Unit: stats.Days},
	}}
	_, err = Import(ctx, s, p, false)
	assert.ErrorIs(t, err, storage.ErrLimitReached)
}

func TestWriteAndReadFile(t *testing.T) {
	ctx := context.Background()
	s := mustStorage(t)
	seed(t, s)

	p, err := Export(ctx, s, base)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "backups", "backup.json")
	require.NoError(t, WriteFile(path, p))
	assert.NoFileExists(t, path+".tmp")

	read, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, read.Events, 2)
	assert.True(t, read.ExportedAt.Equal(base))
	assert.Len(t, read.Events[0].Entries, 3)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(bytes.NewBufferString("{not json"))
	assert.Error(t, err)
}
