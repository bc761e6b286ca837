package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewReportHandler returns a handler for the /report command.
func NewReportHandler(deps HandlerDeps) bot.HandlerFunc {
	return reportHandler{deps}.Handle
}

// reportHandler triggers a full monitoring run on demand.
type reportHandler struct {
	deps HandlerDeps
}

func (h reportHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "report")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Report handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /report command", "chat_id", chatID, "user_id", update.Message.From.ID)

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "Starting a monitoring run, this can take a minute...",
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send run acknowledgement", "error", err, "chat_id", chatID)
	}

	run, err := h.deps.Pipeline.Run(ctx)
	if err != nil {
		log.ErrorContext(ctx, "On-demand run failed", "error", err, "chat_id", chatID)

		if _, sendErr := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("Run failed: %v", err),
		}); sendErr != nil {
			log.ErrorContext(ctx, "Failed to send run failure message", "error", sendErr, "chat_id", chatID)
		}
		return
	}

	summary := fmt.Sprintf("Run #%d finished: %d outperformers across %d channels (%d videos seen).",
		run.ID, run.Outperformers, run.ChannelsFetched, run.VideosSeen)

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: summary}); err != nil {
		log.ErrorContext(ctx, "Failed to send run summary", "error", err, "chat_id", chatID)
		return
	}

	log.InfoContext(ctx, "On-demand run completed", "run_id", run.ID, "chat_id", chatID)
}
