package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/everyday/internal/reminder"
)

func reminders(statuses ...reminder.Status) []reminder.Reminder {
	out := make([]reminder.Reminder, len(statuses))
	for i, s := range statuses {
		out[i] = reminder.Reminder{Status: s}
	}
	return out
}

func TestObserve(t *testing.T) {
	m := New()
	m.Observe(reminders(
		reminder.StatusOverdue,
		reminder.StatusOverdue,
		reminder.StatusDueSoon,
		reminder.StatusOnTrack,
		reminder.StatusNoHistory,
	), 2, 150*time.Millisecond)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.EventsTracked))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsOverdue))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDueSoon))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScanErrors))

	// gauges reflect the latest scan only
	m.Observe(reminders(reminder.StatusOnTrack), 0, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTracked))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.EventsOverdue))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScanErrors))
}

func TestNotified(t *testing.T) {
	m := New()
	m.Notified(3)
	m.Notified(0)
	m.Notified(2)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.NotificationsSent))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Observe(reminders(reminder.StatusOverdue), 0, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "everyday_events_overdue 1")
	assert.Contains(t, body, "everyday_scan_seconds_count 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestHealthEndpoint(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := NewServer(":0", New(), func(ctx context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("database is closed")
	})
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	get := func() (int, string) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(b)
	}

	code, body := get()
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"status":"up"`)

	healthy.Store(false)
	code, body = get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.True(t, strings.Contains(body, "database is closed"))
}

func TestStopWithoutStart(t *testing.T) {
	assert.NoError(t, NewServer(":0", New(), nil).Stop(context.Background()))
}
