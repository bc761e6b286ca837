package handlers

import (
	"context"
	"log/slog"

	"github.com/uclone1/yt-competitor-monitor/internal/config"
	"github.com/uclone1/yt-competitor-monitor/internal/database"
)

// PipelineRunner triggers a full monitoring run on demand.
type PipelineRunner interface {
	Run(ctx context.Context) (*database.Run, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Pipeline PipelineRunner
}
