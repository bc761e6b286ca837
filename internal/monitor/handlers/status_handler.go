package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/uclone1/yt-competitor-monitor/internal/database"
)

// NewStatusHandler returns a handler for the /status command.
func NewStatusHandler(deps HandlerDeps) bot.HandlerFunc {
	return statusHandler{deps}.Handle
}

// statusHandler reports the latest recorded run.
type statusHandler struct {
	deps HandlerDeps
}

func (h statusHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "status")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Status handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /status command", "chat_id", chatID, "user_id", update.Message.From.ID)

	run, err := h.deps.Store.LatestRun(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load latest run", "error", err, "chat_id", chatID)
		h.reply(ctx, b, chatID, "Failed to read run history.", log)
		return
	}

	if run == nil {
		h.reply(ctx, b, chatID, "No runs recorded yet.", log)
		return
	}

	h.reply(ctx, b, chatID, formatRunStatus(run), log)
}

func (h statusHandler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string, log *slog.Logger) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send status reply", "error", err, "chat_id", chatID)
	}
}

func formatRunStatus(run *database.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run #%d: %s\n", run.ID, run.Status)
	fmt.Fprintf(&b, "Started: %s\n", run.StartedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	if run.FinishedAt.Valid {
		fmt.Fprintf(&b, "Finished: %s\n", run.FinishedAt.Time.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&b, "Channels fetched: %d/%d\n", run.ChannelsFetched, run.ChannelsRequested)
	fmt.Fprintf(&b, "Videos seen: %d\n", run.VideosSeen)
	fmt.Fprintf(&b, "Outperformers: %d\n", run.Outperformers)
	fmt.Fprintf(&b, "Email sent: %s | Telegram sent: %s", yesNo(run.EmailSent), yesNo(run.TelegramSent))
	if run.Error.Valid && run.Error.String != "" {
		fmt.Fprintf(&b, "\nError: %s", run.Error.String)
	}

	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
