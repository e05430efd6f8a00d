package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rewired-gh/everyday/internal/backup"
	"github.com/rewired-gh/everyday/internal/models"
	"github.com/rewired-gh/everyday/internal/reminder"
	"github.com/rewired-gh/everyday/internal/stats"
	"github.com/rewired-gh/everyday/internal/storage"
)

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	unitFlag := fs.String("unit", "", "Display unit: minutes, hours, days or months (default from config)")
	targetFlag := fs.String("target", "", "Target interval, e.g. 3d, 12h, 2mo")
	pos, err := parseArgs(fs, args, 1, -1)
	if err != nil {
		return err
	}

	unit := a.cfg.Unit()
	if *unitFlag != "" {
		if unit, err = stats.ParseUnit(*unitFlag); err != nil {
			return err
		}
	}
	target, err := parseTarget(*targetFlag)
	if err != nil {
		return err
	}

	event, err := a.store.AddEvent(ctx, strings.Join(pos, " "), unit, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %q (%s)\n", event.Name, event.ID)
	return nil
}

func (a *app) cmdRecord(ctx context.Context, args []string) error {
	fs := newFlagSet("record")
	atFlag := fs.String("at", "", "When it happened: RFC3339, YYYY-MM-DD[ HH:MM] or a duration ago like 2h (default now)")
	noteFlag := fs.String("note", "", "Optional note")
	pos, err := parseArgs(fs, args, 1, 1)
	if err != nil {
		return err
	}

	event, err := a.findEvent(ctx, pos[0])
	if err != nil {
		return err
	}
	now := a.now()
	at, err := parseWhen(*atFlag, now)
	if err != nil {
		return err
	}

	entry, err := a.store.Record(ctx, event.ID, at, *noteFlag)
	if err != nil {
		return err
	}
	r, err := a.evaluate(ctx, event.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Recorded %q at %s (%s)\n", event.Name, entry.Timestamp.In(now.Location()).Format("2006-01-02 15:04"), entry.ID)
	fmt.Fprintf(a.out, "Next due in %s\n", r.Stats.FormatDueIn())
	return nil
}

func (a *app) cmdList(ctx context.Context, args []string) error {
	fs := newFlagSet("list")
	all := fs.Bool("all", false, "Include archived events")
	asJSON := fs.Bool("json", false, "Print JSON")
	if _, err := parseArgs(fs, args, 0, 0); err != nil {
		return err
	}

	events, err := a.store.GetAllEvents(ctx, *all)
	if err != nil {
		return err
	}
	reminders := make([]reminder.Reminder, 0, len(events))
	for _, e := range events {
		r, err := a.evaluate(ctx, e.ID)
		if err != nil {
			return err
		}
		reminders = append(reminders, r)
	}

	if *asJSON {
		return writeJSON(a.out, toEventViews(reminders))
	}
	if len(reminders) == 0 {
		fmt.Fprintln(a.out, "No events yet. Start with: everyday add NAME")
		return nil
	}
	printEventTable(a.out, reminders, a.now())
	return nil
}

func (a *app) cmdShow(ctx context.Context, args []string) error {
	fs := newFlagSet("show")
	n := fs.Int("n", 10, "Number of recent entries to show (0 for all)")
	asJSON := fs.Bool("json", false, "Print JSON")
	pos, err := parseArgs(fs, args, 1, 1)
	if err != nil {
		return err
	}

	event, err := a.findEvent(ctx, pos[0])
	if err != nil {
		return err
	}
	r, err := a.evaluate(ctx, event.ID)
	if err != nil {
		return err
	}
	entries, err := a.store.GetEntries(ctx, event.ID)
	if err != nil {
		return err
	}
	if *n > 0 && len(entries) > *n {
		entries = entries[:*n]
	}

	if *asJSON {
		return writeJSON(a.out, struct {
			eventView
			Entries []models.Entry `json:"entries"`
		}{toEventView(r), entries})
	}
	printEventDetail(a.out, r, entries, a.now())
	return nil
}

func (a *app) cmdDue(ctx context.Context, args []string) error {
	fs := newFlagSet("due")
	k := fs.Int("k", a.cfg.Reminder.TopK, "Maximum number of events to show")
	if _, err := parseArgs(fs, args, 0, 0); err != nil {
		return err
	}

	defaultTarget, err := a.cfg.DefaultTarget()
	if err != nil {
		return err
	}
	now := a.now()
	scanner := reminder.New(a.store, defaultTarget, "", a.cfg.Reminder.DueSoonDays)
	all, scanErrs, err := scanner.Scan(ctx, now)
	if err != nil {
		return err
	}
	for _, se := range scanErrs {
		fmt.Fprintf(os.Stderr, "warning: %v\n", se)
	}

	top := reminder.Rank(all, *k)
	if len(top) == 0 {
		fmt.Fprintln(a.out, "Nothing is due. 🎉")
		return nil
	}
	printReminders(a.out, top, now)
	return nil
}

func (a *app) cmdRename(ctx context.Context, args []string) error {
	fs := newFlagSet("rename")
	pos, err := parseArgs(fs, args, 2, 2)
	if err != nil {
		return err
	}
	event, err := a.findEvent(ctx, pos[0])
	if err != nil {
		return err
	}
	if err := a.store.RenameEvent(ctx, event.ID, pos[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Renamed %q to %q\n", event.Name, strings.TrimSpace(pos[1]))
	return nil
}

func (a *app) cmdUnit(ctx context.Context, args []string) error {
	fs := newFlagSet("unit")
	pos, err := parseArgs(fs, args, 2, 2)
	if err != nil {
		return err
	}
	unit, err := stats.ParseUnit(pos[1])
	if err != nil {
		return err
	}
	event, err := a.findEvent(ctx, pos[0])
	if err != nil {
		return err
	}
	if err := a.store.SetUnit(ctx, event.ID, unit); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%q now shows %s\n", event.Name, unit)
	return nil
}

func (a *app) cmdTarget(ctx context.Context, args []string) error {
	fs := newFlagSet("target")
	pos, err := parseArgs(fs, args, 2, 2)
	if err != nil {
		return err
	}
	target, err := parseTarget(pos[1])
	if err != nil {
		return err
	}
	event, err := a.findEvent(ctx, pos[0])
	if err != nil {
		return err
	}
	if err := a.store.SetTarget(ctx, event.ID, target); err != nil {
		return err
	}
	if target == nil {
		fmt.Fprintf(a.out, "Cleared the target of %q\n", event.Name)
	} else {
		fmt.Fprintf(a.out, "%q now targets every %s\n", event.Name, target)
	}
	return nil
}

func (a *app) cmdArchive(ctx context.Context, args []string) error {
	fs := newFlagSet("archive")
	pos, err := parseArgs(fs, args, 1, 1)
	if err != nil {
		return err
	}
	event, err := a.findEvent(ctx, pos[0])
	if err != nil {
		return err
	}
	if err := a.store.ArchiveEvent(ctx, event.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Archived %q\n", event.Name)
	return nil
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	entryID := fs.String("entry", "", "Delete a single entry by ID instead of an event")
	pos, err := parseArgs(fs, args, 0, 1)
	if err != nil {
		return err
	}

	if *entryID != "" {
		if len(pos) != 0 {
			return errors.New("use either EVENT or -entry ID, not both")
		}
		if err := a.store.DeleteEntry(ctx, *entryID); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted entry %s\n", *entryID)
		return nil
	}

	if len(pos) != 1 {
		return fmt.Errorf("usage: everyday %s", commands["delete"].usage)
	}
	event, err := a.findEvent(ctx, pos[0])
	if err != nil {
		return err
	}
	if err := a.store.DeleteEvent(ctx, event.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %q and its history\n", event.Name)
	return nil
}

func (a *app) cmdExport(ctx context.Context, args []string) error {
	fs := newFlagSet("export")
	outPath := fs.String("o", "", "Output file (default stdout)")
	if _, err := parseArgs(fs, args, 0, 0); err != nil {
		return err
	}

	p, err := backup.Export(ctx, a.store, a.now())
	if err != nil {
		return err
	}
	if *outPath == "" {
		return backup.Encode(a.out, p)
	}
	if err := backup.WriteFile(*outPath, p); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d events to %s\n", len(p.Events), *outPath)
	return nil
}

func (a *app) cmdImport(ctx context.Context, args []string) error {
	fs := newFlagSet("import")
	replace := fs.Bool("replace", false, "Delete all existing data before importing")
	pos, err := parseArgs(fs, args, 1, 1)
	if err != nil {
		return err
	}

	p, err := backup.ReadFile(pos[0])
	if err != nil {
		return err
	}
	res, err := backup.Import(ctx, a.store, p, *replace)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %d events (%d skipped) and %d entries (%d skipped)\n",
		res.EventsAdded, res.EventsSkipped, res.EntriesAdded, res.EntriesSkipped)
	return nil
}

func (a *app) cmdLog(ctx context.Context, args []string) error {
	fs := newFlagSet("log")
	n := fs.Int("n", 20, "Number of changes to show")
	if _, err := parseArgs(fs, args, 0, 0); err != nil {
		return err
	}
	changes, err := a.store.ChangeLog(ctx, *n)
	if err != nil {
		return err
	}
	printChangeLog(a.out, changes, a.now())
	return nil
}

func (a *app) findEvent(ctx context.Context, ref string) (*models.Event, error) {
	event, err := a.store.FindEvent(ctx, ref)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("no event named %q", ref)
	case errors.Is(err, storage.ErrAmbiguous):
		return nil, fmt.Errorf("%q matches several events, use the ID instead", ref)
	}
	return event, err
}

// evaluate computes the current stats of one event from a consistent
// snapshot of the store.
func (a *app) evaluate(ctx context.Context, eventID string) (reminder.Reminder, error) {
	defaultTarget, err := a.cfg.DefaultTarget()
	if err != nil {
		return reminder.Reminder{}, err
	}
	event, occurrences, err := a.store.Snapshot(ctx, eventID)
	if err != nil {
		return reminder.Reminder{}, err
	}
	return reminder.Evaluate(*event, occurrences, defaultTarget, "", a.cfg.Reminder.DueSoonDays, a.now()), nil
}

func parseTarget(s string) (*stats.TargetInterval, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	t, err := stats.ParseInterval(s)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateTarget(t); err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
