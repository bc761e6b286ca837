// Package tasks implements the scheduled tasks run in daemon mode. It
// includes task definitions, dependencies, and registration.
package tasks

import (
	"context"
	"log/slog"

	"github.com/uclone1/yt-competitor-monitor/internal/config"
	"github.com/uclone1/yt-competitor-monitor/internal/database"
)

// ReportRunner triggers a full monitoring pass.
type ReportRunner interface {
	Run(ctx context.Context) (*database.Run, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
	Runner ReportRunner
}
