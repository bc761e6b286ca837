package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/uclone1/yt-competitor-monitor/internal/analysis"
	"github.com/uclone1/yt-competitor-monitor/internal/config"
	"github.com/uclone1/yt-competitor-monitor/internal/scrapingdog"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTelegramConfig() config.TelegramConfig {
	return config.TelegramConfig{Token: "12345678:token", ChatID: "-1001234"}
}

func newTestNotifier(cfg config.TelegramConfig) (*Notifier, *[]*bot.SendMessageParams) {
	var sent []*bot.SendMessageParams

	n := &Notifier{
		cfg: cfg,
		log: testLogger(),
		sendFn: func(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
			sent = append(sent, params)
			return &models.Message{ID: len(sent)}, nil
		},
	}

	return n, &sent
}

func rankedVideo(id, title string, views int64, ratio float64, recent bool) analysis.RankedVideo {
	return analysis.RankedVideo{
		Video: scrapingdog.Video{
			ID:            id,
			Title:         title,
			Link:          "https://www.youtube.com/watch?v=" + id,
			Views:         views,
			PublishedTime: "3 days ago",
		},
		Ratio:  ratio,
		Recent: recent,
	}
}

func alertDate() time.Time {
	return time.Date(2026, time.August, 25, 13, 0, 0, 0, time.UTC)
}

func TestBuildAlertMessage(t *testing.T) {
	t.Parallel()

	channels := []analysis.ChannelReport{
		{
			ChannelName: "Matt Wolfe",
			Handle:      "@MattWolfe",
			AvgViews:    52000,
			Outperformers: []analysis.RankedVideo{
				rankedVideo("vid-1", "Big Hit", 180000, 3.46, true),
				rankedVideo("vid-2", "Steady Performer", 83000, 1.6, false),
			},
		},
	}

	actual := buildAlertMessage(channels, alertDate())

	for _, want := range []string{
		"🎯 <b>YouTube Competitor Report</b>",
		"📅 August 25, 2026",
		"📊 2 outperforming videos across 1 channels",
		"📺 <b>Matt Wolfe</b> (@MattWolfe)",
		"   Avg: 52.0K views | 2 hits",
		`<a href="https://www.youtube.com/watch?v=vid-1">Big Hit</a> 🆕`,
		"     👁 180.0K views | +246% above avg",
		`<a href="https://www.youtube.com/watch?v=vid-2">Steady Performer</a>`,
		"🤖 <i>UAbility YouTube Monitor</i>",
	} {
		if !strings.Contains(actual, want) {
			t.Errorf("expected %q in message:\n%s", want, actual)
		}
	}

	if actual := strings.Count(actual, sectionRule); actual != 2 {
		t.Errorf("section rule count = %d, expected 2", actual)
	}
	if strings.Contains(actual, "Steady Performer</a> 🆕") {
		t.Error("🆕 marker should only follow recent videos")
	}
}

func TestBuildAlertMessageTruncatesAndLimits(t *testing.T) {
	t.Parallel()

	longTitle := strings.Repeat("a", 80)
	ch := analysis.ChannelReport{ChannelName: "Busy", Handle: "@busy", AvgViews: 1000}
	for i := 0; i < 8; i++ {
		ch.Outperformers = append(ch.Outperformers, rankedVideo(fmt.Sprintf("v%d", i), longTitle, 5000, 1.5, false))
	}

	actual := buildAlertMessage([]analysis.ChannelReport{ch}, alertDate())

	if actual := strings.Count(actual, "🔥"); actual != maxVideosPerSection {
		t.Errorf("listed videos = %d, expected %d", actual, maxVideosPerSection)
	}
	if !strings.Contains(actual, "   ... and 3 more") {
		t.Error("expected remaining count for videos beyond the cap")
	}
	if strings.Contains(actual, longTitle) {
		t.Error("long titles should be truncated")
	}
	if !strings.Contains(actual, strings.Repeat("a", maxTitleRunes)+"</a>") {
		t.Error("expected title truncated to the rune limit")
	}
}

func TestBuildAlertMessageEscapesHTML(t *testing.T) {
	t.Parallel()

	channels := []analysis.ChannelReport{
		{
			ChannelName:   "A&B <Studios>",
			Handle:        "@ab",
			AvgViews:      100,
			Outperformers: []analysis.RankedVideo{rankedVideo("v", "Go > Python?", 200, 2.0, false)},
		},
	}

	actual := buildAlertMessage(channels, alertDate())

	if !strings.Contains(actual, "A&amp;B &lt;Studios&gt;") {
		t.Error("channel name should be escaped")
	}
	if !strings.Contains(actual, "Go &gt; Python?") {
		t.Error("video title should be escaped")
	}
}

func TestBuildAlertMessageEmpty(t *testing.T) {
	t.Parallel()

	actual := buildAlertMessage(nil, alertDate())

	if !strings.Contains(actual, "✅ No outperforming videos found today. All competitors at baseline.") {
		t.Error("expected baseline message for empty results")
	}
	if strings.Contains(actual, sectionRule) {
		t.Error("empty report should have no channel sections")
	}
}

func TestSplitMessageShort(t *testing.T) {
	t.Parallel()

	message := "short alert"
	parts := splitMessage(message)

	if len(parts) != 1 || parts[0] != message {
		t.Errorf("splitMessage() = %v, expected the message unchanged", parts)
	}
}

func TestSplitMessageLong(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("header\n")
	for i := 0; i < 12; i++ {
		b.WriteString(sectionRule)
		b.WriteString("\nsection ")
		b.WriteString(strings.Repeat("x", 700))
		b.WriteString("\n")
	}
	message := b.String()

	parts := splitMessage(message)

	if len(parts) < 2 {
		t.Fatalf("len(parts) = %d, expected a split", len(parts))
	}
	if strings.Join(parts, "") != message {
		t.Error("concatenated parts should reproduce the original message")
	}
	for i, part := range parts {
		if len(part) > messageLimit+len(sectionRule) {
			t.Errorf("part %d length = %d, exceeds limit", i, len(part))
		}
	}
	for _, part := range parts[1:] {
		if !strings.HasPrefix(part, sectionRule) {
			t.Error("continuation parts should start with the section rule")
		}
	}
}

func TestSendAlert(t *testing.T) {
	t.Parallel()

	n, sent := newTestNotifier(testTelegramConfig())

	channels := []analysis.ChannelReport{
		{
			ChannelName:   "Matt Wolfe",
			Handle:        "@MattWolfe",
			AvgViews:      52000,
			Outperformers: []analysis.RankedVideo{rankedVideo("vid-1", "Big Hit", 180000, 3.46, true)},
		},
	}

	if err := n.SendAlert(context.Background(), channels, alertDate()); err != nil {
		t.Fatalf("SendAlert() error = %v", err)
	}

	if len(*sent) != 1 {
		t.Fatalf("sent %d messages, expected 1", len(*sent))
	}

	params := (*sent)[0]
	if params.ChatID != "-1001234" {
		t.Errorf("ChatID = %v, expected the configured chat", params.ChatID)
	}
	if params.ParseMode != models.ParseModeHTML {
		t.Errorf("ParseMode = %q, expected HTML", params.ParseMode)
	}
	if params.LinkPreviewOptions == nil || params.LinkPreviewOptions.IsDisabled == nil || !*params.LinkPreviewOptions.IsDisabled {
		t.Error("link previews should be disabled")
	}
	if !strings.Contains(params.Text, "Big Hit") {
		t.Error("expected video title in alert text")
	}
}

func TestSendAlertSplitsLongReports(t *testing.T) {
	t.Parallel()

	n, sent := newTestNotifier(testTelegramConfig())

	var channels []analysis.ChannelReport
	for i := 0; i < 30; i++ {
		ch := analysis.ChannelReport{
			ChannelName: fmt.Sprintf("Channel %02d", i),
			Handle:      fmt.Sprintf("@channel%02d", i),
			AvgViews:    10000,
		}
		for j := 0; j < 5; j++ {
			ch.Outperformers = append(ch.Outperformers,
				rankedVideo(fmt.Sprintf("v%d-%d", i, j), strings.Repeat("t", 60), 50000, 2.0, false))
		}
		channels = append(channels, ch)
	}

	if err := n.SendAlert(context.Background(), channels, alertDate()); err != nil {
		t.Fatalf("SendAlert() error = %v", err)
	}

	if len(*sent) < 2 {
		t.Errorf("sent %d messages, expected a multi-part alert", len(*sent))
	}
}

func TestSendAlertNotConfigured(t *testing.T) {
	t.Parallel()

	n, sent := newTestNotifier(config.TelegramConfig{})

	err := n.SendAlert(context.Background(), nil, alertDate())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("SendAlert() error = %v, expected ErrNotConfigured", err)
	}
	if len(*sent) != 0 {
		t.Error("nothing should be sent without credentials")
	}
}

func TestSendAlertSendFailure(t *testing.T) {
	t.Parallel()

	n, _ := newTestNotifier(testTelegramConfig())
	n.sendFn = func(context.Context, *bot.SendMessageParams) (*models.Message, error) {
		return nil, errors.New("telegram: bad request")
	}

	err := n.SendAlert(context.Background(), nil, alertDate())
	if err == nil || !strings.Contains(err.Error(), "part 1/1") {
		t.Errorf("SendAlert() error = %v, expected wrapped part failure", err)
	}
}
