// Package monitor orchestrates a monitoring pass end to end: fetch the
// competitor channels, analyze for outperformers, persist the run, and
// deliver the report. It also owns the daemon-mode scheduler and
// component lifecycle.
package monitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/uclone1/yt-competitor-monitor/internal/analysis"
	"github.com/uclone1/yt-competitor-monitor/internal/config"
	"github.com/uclone1/yt-competitor-monitor/internal/database"
	"github.com/uclone1/yt-competitor-monitor/internal/report"
	"github.com/uclone1/yt-competitor-monitor/internal/scrapingdog"
	"github.com/uclone1/yt-competitor-monitor/internal/telegram"
)

// dbFinishTimeout bounds the final run-record write, which runs on a fresh
// context so cancelled runs still get their record closed.
const dbFinishTimeout = 5 * time.Second

// ErrNoChannelData indicates every channel fetch failed.
var ErrNoChannelData = errors.New("no channel data retrieved")

// countPrinter renders view counts with thousands separators in the
// console summaries.
var countPrinter = message.NewPrinter(language.English)

// ChannelFetcher retrieves competitor channels.
type ChannelFetcher interface {
	FetchAll(ctx context.Context, handles []string) ([]*scrapingdog.Channel, error)
}

// ReportSender delivers the email report.
type ReportSender interface {
	SendReport(ctx context.Context, channels []analysis.ChannelReport, summary string, generatedAt time.Time) error
}

// AlertSender delivers the Telegram alert.
type AlertSender interface {
	SendAlert(ctx context.Context, channels []analysis.ChannelReport, generatedAt time.Time) error
}

// Summarizer produces the optional executive summary for the report.
type Summarizer interface {
	Summarize(ctx context.Context, channels []analysis.ChannelReport) (string, error)
}

// Pipeline runs one monitoring pass.
type Pipeline struct {
	log        *slog.Logger
	cfg        *config.Config
	fetcher    ChannelFetcher
	store      database.Store
	mailer     ReportSender
	alerter    AlertSender
	summarizer Summarizer
}

// NewPipeline wires the pipeline stages. The alerter and summarizer are
// optional; pass nil to run without them.
func NewPipeline(
	log *slog.Logger,
	cfg *config.Config,
	fetcher ChannelFetcher,
	store database.Store,
	mailer ReportSender,
	alerter AlertSender,
	summarizer Summarizer,
) *Pipeline {
	return &Pipeline{
		log:        log.With("component", "pipeline"),
		cfg:        cfg,
		fetcher:    fetcher,
		store:      store,
		mailer:     mailer,
		alerter:    alerter,
		summarizer: summarizer,
	}
}

// Run executes one monitoring pass. The returned run record carries the
// counters even when the pass failed partway.
func (p *Pipeline) Run(ctx context.Context) (*database.Run, error) {
	startTime := time.Now()

	p.log.InfoContext(ctx, "[START] YouTube Competitor Monitor - Starting",
		"run_time", startTime.Format("2006-01-02 15:04:05"))
	p.log.InfoContext(ctx, fmt.Sprintf("[CONFIG] Tracking %d competitor channels", len(p.cfg.Channels)))

	if !p.cfg.Email.Enabled() {
		p.log.WarnContext(ctx, "[WARN] Gmail credentials not configured. Email will not be sent.")
	}

	run := &database.Run{
		StartedAt:         startTime.UTC(),
		ChannelsRequested: len(p.cfg.Channels),
	}
	if err := p.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}

	p.log.InfoContext(ctx, "[STEP 1] Fetching competitor channel data...")

	channels, err := p.fetcher.FetchAll(ctx, p.cfg.Channels)
	if err != nil {
		p.finishRun(run, database.RunStatusFailed, err)
		return run, fmt.Errorf("channel fetch aborted: %w", err)
	}
	if len(channels) == 0 {
		p.log.ErrorContext(ctx, "[ERROR] No channel data retrieved. Check API key and network. Aborting.")
		p.finishRun(run, database.RunStatusFailed, ErrNoChannelData)
		return run, ErrNoChannelData
	}

	totalVideos := 0
	for _, ch := range channels {
		totalVideos += len(ch.Videos)
	}
	run.ChannelsFetched = len(channels)
	run.VideosSeen = totalVideos

	p.log.InfoContext(ctx, fmt.Sprintf("[OK] Fetched %d channels with %d total videos", len(channels), totalVideos))

	p.log.InfoContext(ctx, "[STEP 2] Analyzing for outperforming videos...")

	reports := analysis.AnalyzeAll(channels, analysis.Settings{
		RecentDays: p.cfg.Analysis.RecentDays,
		MinRatio:   p.cfg.Analysis.MinRatio,
	}, p.log)

	run.Outperformers = analysis.TotalOutperformers(reports)

	p.log.InfoContext(ctx, fmt.Sprintf("[OK] Found %d outperforming videos across %d channels",
		run.Outperformers, len(reports)))
	p.logChannelSummaries(ctx, reports)

	partial := false
	if err := p.persistResults(ctx, run, reports); err != nil {
		p.log.ErrorContext(ctx, "Failed to persist analysis results", "error", err)
		partial = true
	}

	summary := p.summarize(ctx, reports)

	p.log.InfoContext(ctx, "[STEP 3] Sending email report...")

	generatedAt := time.Now()
	switch err := p.mailer.SendReport(ctx, reports, summary, generatedAt); {
	case err == nil:
		run.EmailSent = true
	case errors.Is(err, report.ErrNotConfigured):
		p.log.WarnContext(ctx, "Email not configured, report not sent")
	default:
		p.log.ErrorContext(ctx, "Failed to send email report", "error", err)
		partial = true
	}

	if p.alerter != nil {
		switch err := p.alerter.SendAlert(ctx, reports, generatedAt); {
		case err == nil:
			run.TelegramSent = true
		case errors.Is(err, telegram.ErrNotConfigured):
			p.log.WarnContext(ctx, "Telegram not configured, alert not sent")
		default:
			p.log.ErrorContext(ctx, "Failed to send Telegram alert", "error", err)
			partial = true
		}
	}

	if ctx.Err() != nil {
		p.finishRun(run, database.RunStatusFailed, ctx.Err())
		return run, fmt.Errorf("run aborted: %w", ctx.Err())
	}

	status := database.RunStatusOK
	if partial {
		status = database.RunStatusPartial
	}
	p.finishRun(run, status, nil)

	elapsed := time.Since(startTime).Seconds()
	if run.EmailSent {
		p.log.InfoContext(ctx, fmt.Sprintf("[DONE] Report emailed successfully! (%.1fs)", elapsed))
	} else {
		p.log.WarnContext(ctx, fmt.Sprintf("[DONE] Completed but email failed to send. (%.1fs)", elapsed))
	}

	return run, nil
}

func (p *Pipeline) logChannelSummaries(ctx context.Context, reports []analysis.ChannelReport) {
	for _, r := range reports {
		p.log.InfoContext(ctx, fmt.Sprintf("   [CHANNEL] %s: %d outperforming (avg: %d views)",
			r.ChannelName, len(r.Outperformers), int64(r.AvgViews)))

		top := r.Outperformers
		if len(top) > 3 {
			top = top[:3]
		}
		for _, v := range top {
			p.log.InfoContext(ctx, countPrinter.Sprintf("      [HIT] %s... (%d views, %vx avg)",
				truncateTitle(v.Title, 50), v.Views, v.Ratio))
		}
	}
}

// persistResults saves the per-channel snapshots and flagged videos. As a
// side effect it marks videos never flagged in an earlier run as fresh, so
// the senders can badge them.
func (p *Pipeline) persistResults(ctx context.Context, run *database.Run, reports []analysis.ChannelReport) error {
	var ids []string
	for _, r := range reports {
		for _, v := range r.Outperformers {
			ids = append(ids, v.ID)
		}
	}

	known, err := p.store.KnownVideoIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to look up known videos: %w", err)
	}

	snapshots := make([]database.ChannelSnapshot, 0, len(reports))
	var highlights []database.VideoHighlight

	for i := range reports {
		r := &reports[i]
		snapshots = append(snapshots, database.ChannelSnapshot{
			RunID:          run.ID,
			Handle:         r.Handle,
			Name:           r.ChannelName,
			Subscribers:    r.Subscribers,
			AvgViews:       r.AvgViews,
			VideosAnalyzed: r.VideosAnalyzed,
			Outperformers:  len(r.Outperformers),
		})

		for j := range r.Outperformers {
			v := &r.Outperformers[j]
			v.Fresh = !known[v.ID]

			highlights = append(highlights, database.VideoHighlight{
				RunID:         run.ID,
				ChannelHandle: r.Handle,
				VideoID:       v.ID,
				Title:         v.Title,
				Link:          v.Link,
				Views:         v.Views,
				Ratio:         v.Ratio,
				Recent:        v.Recent,
				Fresh:         v.Fresh,
			})
		}
	}

	if err := p.store.SaveChannelSnapshots(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to save channel snapshots: %w", err)
	}
	if err := p.store.SaveVideoHighlights(ctx, highlights); err != nil {
		return fmt.Errorf("failed to save video highlights: %w", err)
	}

	return nil
}

func (p *Pipeline) summarize(ctx context.Context, reports []analysis.ChannelReport) string {
	if p.summarizer == nil || len(reports) == 0 {
		return ""
	}

	summary, err := p.summarizer.Summarize(ctx, reports)
	if err != nil {
		p.log.WarnContext(ctx, "Summary generation failed, sending report without it", "error", err)
		return ""
	}

	return summary
}

func (p *Pipeline) finishRun(run *database.Run, status string, runErr error) {
	run.Status = status
	if runErr != nil {
		run.Error = sql.NullString{String: runErr.Error(), Valid: true}
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbFinishTimeout)
	defer cancel()

	if err := p.store.FinishRun(ctx, run); err != nil {
		p.log.Error("Failed to record run completion", "error", err, "run_id", run.ID)
	}
}

func truncateTitle(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
