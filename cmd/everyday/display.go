package main

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rewired-gh/everyday/internal/models"
	"github.com/rewired-gh/everyday/internal/reminder"
	"github.com/rewired-gh/everyday/internal/stats"
)

const progressWidth = 10

// eventView is the JSON shape of an event with its stats.
type eventView struct {
	Event  models.Event     `json:"event"`
	Stats  stats.EventStats `json:"stats"`
	Status reminder.Status  `json:"status"`
}

func toEventView(r reminder.Reminder) eventView {
	return eventView{Event: r.Event, Stats: r.Stats, Status: r.Status}
}

func toEventViews(rs []reminder.Reminder) []eventView {
	out := make([]eventView, len(rs))
	for i, r := range rs {
		out[i] = toEventView(r)
	}
	return out
}

// printEventTable displays one row per event
func printEventTable(w io.Writer, rs []reminder.Reminder, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLAST\tAVG\tCYCLE\tDUE\tPROGRESS\tSTATUS")
	for _, r := range rs {
		name := r.Event.Name
		if r.Event.IsArchived {
			name += " (archived)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			name,
			lastSeen(r.Stats, now),
			r.Stats.FormatAverage(),
			r.Stats.FormatCycle(),
			dueLabel(r),
			progressBar(r.Stats.Progress),
			statusLabel(r.Status),
		)
	}
	_ = tw.Flush()
}

// printEventDetail displays a single event with its recent entries
func printEventDetail(w io.Writer, r reminder.Reminder, entries []models.Entry, now time.Time) {
	st := r.Stats
	e := r.Event

	fmt.Fprintf(w, "%s\n", e.Name)
	fmt.Fprintln(w, strings.Repeat("-", len([]rune(e.Name))))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", e.ID)
	fmt.Fprintf(tw, "Created:\t%s (%s)\n", e.CreatedAt.In(now.Location()).Format("2006-01-02"), humanize.RelTime(e.CreatedAt, now, "ago", "from now"))
	fmt.Fprintf(tw, "Unit:\t%s\n", e.Unit)
	if e.Target != nil {
		fmt.Fprintf(tw, "Target:\tevery %s\n", e.Target)
	} else {
		fmt.Fprintf(tw, "Target:\t%s\n", stats.UnknownInterval)
	}
	if e.IsArchived {
		fmt.Fprintf(tw, "Archived:\tyes\n")
	}
	fmt.Fprintf(tw, "Occurrences:\t%s\n", humanize.Comma(int64(st.TotalCount)))
	fmt.Fprintf(tw, "Last:\t%s\n", lastSeen(st, now))
	fmt.Fprintf(tw, "Average:\t%s\n", st.FormatAverage())
	fmt.Fprintf(tw, "Recent:\t%s\n", recentIntervals(st))
	fmt.Fprintf(tw, "Cycle:\t%s\n", st.FormatCycle())
	if st.NextDate != nil {
		fmt.Fprintf(tw, "Next:\t%s\n", st.NextDate.In(now.Location()).Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(tw, "Due:\t%s\n", dueLabel(r))
	fmt.Fprintf(tw, "Progress:\t%s\n", progressBar(st.Progress))
	fmt.Fprintf(tw, "Status:\t%s\n", statusLabel(r.Status))
	_ = tw.Flush()

	if len(entries) == 0 {
		return
	}
	fmt.Fprintln(w, "\nRecent entries:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, en := range entries {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
			en.Timestamp.In(now.Location()).Format("2006-01-02 15:04"),
			humanize.RelTime(en.Timestamp, now, "ago", "from now"),
			en.ID,
			en.Note,
		)
	}
	_ = tw.Flush()
}

// printReminders displays ranked reminders
func printReminders(w io.Writer, rs []reminder.Reminder, now time.Time) {
	for i, r := range rs {
		fmt.Fprintf(w, "%d. %s: %s (last %s, every %s)\n",
			i+1, r.Event.Name, dueLabel(r), lastSeen(r.Stats, now), r.Stats.FormatCycle())
	}
}

// printChangeLog displays audit rows, newest first
func printChangeLog(w io.Writer, changes []models.ChangeLog, now time.Time) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "No changes recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tACTION\tENTITY\tID\tDETAILS")
	for _, c := range changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			humanize.RelTime(c.CreatedAt, now, "ago", "from now"),
			c.Action, c.EntityName, c.EntityID, c.Payload)
	}
	_ = tw.Flush()
}

func lastSeen(st stats.EventStats, now time.Time) string {
	if st.LastDate == nil {
		return "never"
	}
	return humanize.RelTime(*st.LastDate, now, "ago", "from now")
}

func dueLabel(r reminder.Reminder) string {
	st := r.Stats
	if st.DueInDays == nil {
		return stats.UnknownInterval
	}
	if st.Overdue() {
		late := math.Abs(*st.DueInDays)
		return "overdue by " + stats.FormatInterval(&late, st.Unit)
	}
	return "in " + st.FormatDueIn()
}

func statusLabel(s reminder.Status) string {
	switch s {
	case reminder.StatusOverdue:
		return "overdue"
	case reminder.StatusDueSoon:
		return "due soon"
	case reminder.StatusOnTrack:
		return "on track"
	default:
		return "no history"
	}
}

func recentIntervals(st stats.EventStats) string {
	if len(st.IntervalsLast3Days) == 0 {
		return stats.UnknownInterval
	}
	parts := make([]string, len(st.IntervalsLast3Days))
	for i := range st.IntervalsLast3Days {
		parts[i] = stats.FormatInterval(&st.IntervalsLast3Days[i], st.Unit)
	}
	return strings.Join(parts, ", ")
}

// progressBar renders p in [0,1] as "[#####-----]  50%".
func progressBar(p float64) string {
	filled := int(math.Round(p * progressWidth))
	if filled < 0 {
		filled = 0
	}
	if filled > progressWidth {
		filled = progressWidth
	}
	return fmt.Sprintf("[%s%s] %3d%%",
		strings.Repeat("#", filled), strings.Repeat("-", progressWidth-filled), int(math.Round(p*100)))
}
