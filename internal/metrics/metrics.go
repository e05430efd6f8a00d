// Package metrics exposes reminder scan results as Prometheus metrics.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewired-gh/everyday/internal/logger"
	"github.com/rewired-gh/everyday/internal/reminder"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	registry *prometheus.Registry

	EventsTracked     prometheus.Gauge
	EventsOverdue     prometheus.Gauge
	EventsDueSoon     prometheus.Gauge
	ScanDuration      prometheus.Histogram
	ScanErrors        prometheus.Counter
	NotificationsSent prometheus.Counter
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		EventsTracked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "everyday_events_tracked",
			Help: "Number of active events evaluated by the last scan.",
		}),
		EventsOverdue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "everyday_events_overdue",
			Help: "Number of events past their projected next occurrence.",
		}),
		EventsDueSoon: factory.NewGauge(prometheus.GaugeOpts{
			Name: "everyday_events_due_soon",
			Help: "Number of events due within the configured window.",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "everyday_scan_seconds",
			Help:    "Time spent on a reminder scan.",
			Buckets: prometheus.DefBuckets,
		}),
		ScanErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "everyday_scan_errors_total",
			Help: "Total number of per-event failures during scans.",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "everyday_notifications_sent_total",
			Help: "Total number of reminders delivered.",
		}),
	}
}

// Observe records the outcome of one scan.
func (m *Metrics) Observe(reminders []reminder.Reminder, scanErrors int, duration time.Duration) {
	var overdue, dueSoon int
	for _, r := range reminders {
		switch r.Status {
		case reminder.StatusOverdue:
			overdue++
		case reminder.StatusDueSoon:
			dueSoon++
		}
	}
	m.EventsTracked.Set(float64(len(reminders)))
	m.EventsOverdue.Set(float64(overdue))
	m.EventsDueSoon.Set(float64(dueSoon))
	m.ScanDuration.Observe(duration.Seconds())
	if scanErrors > 0 {
		m.ScanErrors.Add(float64(scanErrors))
	}
}

// Notified counts delivered reminders.
func (m *Metrics) Notified(n int) {
	if n > 0 {
		m.NotificationsSent.Add(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HealthFunc reports whether the service can reach its store.
type HealthFunc func(ctx context.Context) error

// Server serves /metrics and /health.
type Server struct {
	addr    string
	metrics *Metrics
	health  HealthFunc
	server  *http.Server
}

// NewServer creates a Server listening on addr. health may be nil.
func NewServer(addr string, m *Metrics, health HealthFunc) *Server {
	return &Server{addr: addr, metrics: m, health: health}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "up"}
		code := http.StatusOK
		if s.health != nil {
			if err := s.health(r.Context()); err != nil {
				status = map[string]string{"status": "down", "error": err.Error()}
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})
	return mux
}

// Start begins serving in the background.
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("Metrics server listening on %s", s.addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed: %v", err)
		}
	}()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
