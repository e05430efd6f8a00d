package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rewired-gh/everyday/internal/config"
	"github.com/rewired-gh/everyday/internal/logger"
	"github.com/rewired-gh/everyday/internal/metrics"
	"github.com/rewired-gh/everyday/internal/reminder"
	"github.com/rewired-gh/everyday/internal/telegram"
)

// notifier delivers reminders and scan health messages.
type notifier interface {
	Send(reminders []reminder.Reminder, now time.Time) error
	SendError(err error) error
	SendRecovery(failures int) error
}

// watcher runs scan cycles and tracks consecutive failures.
type watcher struct {
	cfg                 *config.Config
	scanner             *reminder.Scanner
	notify              notifier // nil when notifications are disabled
	metrics             *metrics.Metrics
	consecutiveFailures int
}

func (a *app) cmdWatch(ctx context.Context, args []string) error {
	fs := newFlagSet("watch")
	once := fs.Bool("once", false, "Run a single scan and exit")
	if _, err := parseArgs(fs, args, 0, 0); err != nil {
		return err
	}
	cfg := a.cfg
	if !cfg.Reminder.Enabled {
		logger.Info("Reminders are disabled (reminder.enabled is false), nothing to watch")
		return nil
	}

	defaultTarget, err := cfg.DefaultTarget()
	if err != nil {
		return err
	}
	w := &watcher{
		cfg:     cfg,
		scanner: reminder.New(a.store, defaultTarget, "", cfg.Reminder.DueSoonDays),
		metrics: metrics.New(),
	}

	// Initialize Telegram client
	if cfg.Telegram.Enabled {
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		w.notify = client
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Addr, w.metrics, a.store.Ping)
		srv.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(stopCtx); err != nil {
				logger.Warn("Failed to stop metrics server: %v", err)
			}
		}()
	}

	// Run initial scan immediately
	logger.Debug("Running initial reminder scan")
	w.handleCycleResult(w.runCycle(ctx, a.now()))
	if *once {
		if w.consecutiveFailures > 0 {
			return fmt.Errorf("reminder scan failed")
		}
		return nil
	}

	logger.Info("Starting reminder service (interval: %v, due_soon_days: %.2f, top_k: %d, cooldown: %v)",
		cfg.Reminder.Interval, cfg.Reminder.DueSoonDays, cfg.Reminder.TopK, cfg.Reminder.Cooldown)

	ticker := time.NewTicker(cfg.Reminder.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return nil

		case tickTime := <-ticker.C:
			logger.Debug("Starting scheduled reminder scan")
			w.handleCycleResult(w.runCycle(ctx, tickTime))

			// Trim old history
			if n, err := a.store.RotateEntries(ctx); err != nil {
				logger.Warn("Failed to rotate entries: %v", err)
			} else if n > 0 {
				logger.Info("Rotated %d old entries", n)
			}
		}
	}
}

func (w *watcher) handleCycleResult(err error) {
	if err != nil {
		w.consecutiveFailures++
		logger.Error("Reminder scan failed: %v", err)
		if w.consecutiveFailures == 1 && w.notify != nil {
			if sendErr := w.notify.SendError(err); sendErr != nil {
				logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
			}
		}
		return
	}
	if w.consecutiveFailures > 0 && w.notify != nil {
		if sendErr := w.notify.SendRecovery(w.consecutiveFailures); sendErr != nil {
			logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
		}
	}
	w.consecutiveFailures = 0
}

// runCycle scans every active event, ranks the actionable ones and sends
// those not reported within the cooldown.
func (w *watcher) runCycle(ctx context.Context, now time.Time) error {
	startTime := time.Now()

	all, scanErrors, err := w.scanner.Scan(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to scan events: %w", err)
	}
	for _, scanErr := range scanErrors {
		logger.Warn("Failed to evaluate event %s: %v", scanErr.EventID, scanErr.Err)
	}
	w.scanner.Forget(all)

	top := reminder.Rank(all, w.cfg.Reminder.TopK)
	actionable := len(top)
	top = w.scanner.FilterRecentlySent(top, w.cfg.Reminder.Cooldown, now)

	switch {
	case len(top) == 0:
		logger.Info("No new reminders this cycle (%d events, %d actionable)", len(all), actionable)
	case w.notify != nil:
		logger.Debug("Sending %d reminders to Telegram", len(top))
		if err := w.notify.Send(top, now); err != nil {
			logger.Error("Failed to send Telegram notification: %v", err)
		} else {
			logger.Info("Sent Telegram notification with %d reminders", len(top))
			w.scanner.RecordNotified(top, now)
			w.metrics.Notified(len(top))
		}
	default:
		for _, r := range top {
			logger.Info("Reminder: %s is %s (due %s)", r.Event.Name, r.Status, r.Stats.FormatDueIn())
		}
		w.scanner.RecordNotified(top, now)
	}

	duration := time.Since(startTime)
	w.metrics.Observe(all, len(scanErrors), duration)
	logger.Info("Reminder scan completed in %v", duration)

	return nil
}
