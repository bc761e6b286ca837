package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/uclone1/yt-competitor-monitor/internal/analysis"
	"github.com/uclone1/yt-competitor-monitor/internal/config"
)

// ErrNotConfigured indicates the bot token or chat id is absent from the
// configuration.
var ErrNotConfigured = errors.New("telegram credentials not configured")

const (
	// sectionRule separates channel sections and doubles as the split
	// boundary for long alerts.
	sectionRule = "━━━━━━━━━━━━━━━━━━"

	// messageLimit keeps each part under Telegram's 4096 character cap
	// with headroom for the re-attached section rule.
	messageLimit = 4000

	maxVideosPerSection = 5
	maxTitleRunes       = 60
)

type sendMessageFunc func(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)

// Notifier posts run alerts to the configured chat.
type Notifier struct {
	cfg    config.TelegramConfig
	log    *slog.Logger
	sendFn sendMessageFunc
}

// NewNotifier creates a Notifier that sends through the given bot instance.
func NewNotifier(cfg config.TelegramConfig, b *bot.Bot, log *slog.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		log:    log.With("component", "telegram_notifier"),
		sendFn: b.SendMessage,
	}
}

// SendAlert formats the channel results as an HTML message and sends it to
// the configured chat, splitting on section boundaries when the text would
// exceed Telegram's message size limit.
func (n *Notifier) SendAlert(ctx context.Context, channels []analysis.ChannelReport, generatedAt time.Time) error {
	if !n.cfg.Enabled() {
		n.log.WarnContext(ctx, "Telegram not configured, skipping alert")
		return ErrNotConfigured
	}

	parts := splitMessage(buildAlertMessage(channels, generatedAt))

	disabled := true
	for i, part := range parts {
		_, err := n.sendFn(ctx, &bot.SendMessageParams{
			ChatID:             n.cfg.ChatID,
			Text:               part,
			ParseMode:          models.ParseModeHTML,
			LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
		})
		if err != nil {
			return fmt.Errorf("failed to send alert part %d/%d: %w", i+1, len(parts), err)
		}

		n.log.InfoContext(ctx, "Telegram message sent", "part", i+1, "parts", len(parts))
	}

	return nil
}

func buildAlertMessage(channels []analysis.ChannelReport, generatedAt time.Time) string {
	var lines []string

	lines = append(lines, "🎯 <b>YouTube Competitor Report</b>")
	lines = append(lines, "📅 "+generatedAt.Format("January 02, 2006"))
	lines = append(lines, fmt.Sprintf("📊 %d outperforming videos across %d channels",
		analysis.TotalOutperformers(channels), len(channels)))
	lines = append(lines, "")

	if len(channels) == 0 {
		lines = append(lines, "✅ No outperforming videos found today. All competitors at baseline.")
		return strings.Join(lines, "\n")
	}

	for _, ch := range channels {
		lines = append(lines, sectionRule)
		lines = append(lines, fmt.Sprintf("📺 <b>%s</b> (%s)",
			html.EscapeString(ch.ChannelName), html.EscapeString(ch.Handle)))
		lines = append(lines, fmt.Sprintf("   Avg: %s views | %d hits",
			formatViews(int64(ch.AvgViews)), len(ch.Outperformers)))
		lines = append(lines, "")

		top := ch.Outperformers
		if len(top) > maxVideosPerSection {
			top = top[:maxVideosPerSection]
		}
		for _, v := range top {
			marker := ""
			if v.Recent {
				marker = " 🆕"
			}
			lines = append(lines, fmt.Sprintf("  🔥 <a href=%q>%s</a>%s",
				v.Link, html.EscapeString(truncateTitle(v.Title, maxTitleRunes)), marker))
			lines = append(lines, fmt.Sprintf("     👁 %s views | %s above avg",
				formatViews(v.Views), formatRatio(v.Ratio)))
			lines = append(lines, "")
		}

		if remaining := len(ch.Outperformers) - maxVideosPerSection; remaining > 0 {
			lines = append(lines, fmt.Sprintf("   ... and %d more", remaining))
			lines = append(lines, "")
		}
	}

	lines = append(lines, sectionRule)
	lines = append(lines, "🤖 <i>UAbility YouTube Monitor</i>")

	return strings.Join(lines, "\n")
}

// splitMessage breaks an oversized alert into parts on section rules. Each
// part after the first gets the rule re-attached so every section keeps its
// visual separator.
func splitMessage(message string) []string {
	if len(message) <= messageLimit {
		return []string{message}
	}

	parts := strings.Split(message, sectionRule)
	current := parts[0]

	var messages []string
	for _, part := range parts[1:] {
		if len(current)+len(part)+20 > messageLimit {
			messages = append(messages, current)
			current = sectionRule + part
		} else {
			current += sectionRule + part
		}
	}
	if current != "" {
		messages = append(messages, current)
	}

	return messages
}

func truncateTitle(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}

func formatViews(views int64) string {
	switch {
	case views >= 1000000:
		return fmt.Sprintf("%.1fM", float64(views)/1000000)
	case views >= 1000:
		return fmt.Sprintf("%.1fK", float64(views)/1000)
	default:
		return strconv.FormatInt(views, 10)
	}
}

func formatRatio(ratio float64) string {
	return fmt.Sprintf("+%.0f%%", (ratio-1)*100)
}
