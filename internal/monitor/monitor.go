package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"
)

// Monitor owns the daemon-mode components and coordinates their
// lifecycle: the task scheduler and, when configured, the Telegram
// command listener.
type Monitor struct {
	logger    *slog.Logger
	tgBot     *bot.Bot
	scheduler *Scheduler
}

// NewMonitor creates the daemon orchestrator. tgBot may be nil, in which
// case only the scheduler runs.
func NewMonitor(logger *slog.Logger, tgBot *bot.Bot, scheduler *Scheduler) *Monitor {
	return &Monitor{
		logger:    logger.With("component", "monitor"),
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run starts the components and blocks until the context is cancelled or
// a component fails.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "Starting monitor components...")

	g, gCtx := errgroup.WithContext(ctx)

	if m.tgBot != nil {
		g.Go(func() error {
			m.logger.Info("Starting Telegram command listener...")

			// Start blocks until gCtx is cancelled.
			m.tgBot.Start(gCtx)
			m.logger.Info("Telegram command listener stopped.")

			if gCtx.Err() == nil {
				m.logger.Warn("Telegram listener stopped unexpectedly without context cancellation.")
				return fmt.Errorf("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	g.Go(func() error {
		m.logger.Info("Starting scheduler...")
		if err := m.scheduler.Start(); err != nil {
			m.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()

		m.logger.Info("Shutdown signal received, stopping scheduler...")
		if err := m.scheduler.Stop(); err != nil {
			m.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	m.logger.InfoContext(ctx, "Monitor running. Waiting for shutdown signal or component error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Error("Monitor stopped due to component error", "error", err)
		return err
	}

	m.logger.Info("Monitor stopped gracefully.")
	return nil
}
