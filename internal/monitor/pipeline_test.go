package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/uclone1/yt-competitor-monitor/internal/analysis"
	"github.com/uclone1/yt-competitor-monitor/internal/config"
	"github.com/uclone1/yt-competitor-monitor/internal/database"
	"github.com/uclone1/yt-competitor-monitor/internal/report"
	"github.com/uclone1/yt-competitor-monitor/internal/scrapingdog"
)

type fakeFetcher struct {
	channels []*scrapingdog.Channel
	err      error
	handles  []string
}

func (f *fakeFetcher) FetchAll(_ context.Context, handles []string) ([]*scrapingdog.Channel, error) {
	f.handles = handles
	return f.channels, f.err
}

// fakeStore implements the subset of database.Store the pipeline touches.
type fakeStore struct {
	database.Store

	nextID     uint
	finished   []database.Run
	snapshots  []database.ChannelSnapshot
	highlights []database.VideoHighlight
	known      map[string]bool

	createErr error
	saveErr   error
}

func (s *fakeStore) CreateRun(_ context.Context, run *database.Run) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	run.ID = s.nextID
	run.Status = database.RunStatusRunning
	return nil
}

func (s *fakeStore) FinishRun(_ context.Context, run *database.Run) error {
	s.finished = append(s.finished, *run)
	return nil
}

func (s *fakeStore) KnownVideoIDs(_ context.Context, videoIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(videoIDs))
	for _, id := range videoIDs {
		if s.known[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (s *fakeStore) SaveChannelSnapshots(_ context.Context, snapshots []database.ChannelSnapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snapshots = append(s.snapshots, snapshots...)
	return nil
}

func (s *fakeStore) SaveVideoHighlights(_ context.Context, highlights []database.VideoHighlight) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.highlights = append(s.highlights, highlights...)
	return nil
}

type fakeMailer struct {
	err      error
	sent     bool
	channels []analysis.ChannelReport
	summary  string
}

func (m *fakeMailer) SendReport(_ context.Context, channels []analysis.ChannelReport, summary string, _ time.Time) error {
	m.sent = true
	m.channels = channels
	m.summary = summary
	return m.err
}

type fakeAlerter struct {
	err  error
	sent bool
}

func (a *fakeAlerter) SendAlert(_ context.Context, _ []analysis.ChannelReport, _ time.Time) error {
	a.sent = true
	return a.err
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (s *fakeSummarizer) Summarize(_ context.Context, _ []analysis.ChannelReport) (string, error) {
	return s.summary, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Channels: []string{"@MattWolfe", "@aiexplained"},
		Email: config.EmailConfig{
			Address:     "monitor@gmail.com",
			AppPassword: "app-password",
			Recipient:   "team@uability.io",
			SMTPHost:    "smtp.gmail.com",
			SMTPPort:    587,
		},
		Analysis: config.AnalysisConfig{RecentDays: 7, MinRatio: 1.5},
	}
}

// testChannels returns two fetched channels. Only the first has a video
// above the outperformer threshold; the second sits exactly on its own
// average and drops out of the analysis.
func testChannels() []*scrapingdog.Channel {
	return []*scrapingdog.Channel{
		{
			Name:        "Matt Wolfe",
			Handle:      "@MattWolfe",
			Subscribers: 700000,
			Videos: []scrapingdog.Video{
				{ID: "vid-1", Title: "I Tested 50 AI Tools", Link: "https://www.youtube.com/watch?v=vid-1", Views: 100000, AgeDays: 3},
				{ID: "vid-2", Title: "Weekly AI News", Link: "https://www.youtube.com/watch?v=vid-2", Views: 10000, AgeDays: 12},
				{ID: "vid-3", Title: "Midjourney Tips", Link: "https://www.youtube.com/watch?v=vid-3", Views: 10000, AgeDays: 30},
			},
		},
		{
			Name:        "AI Explained",
			Handle:      "@aiexplained",
			Subscribers: 300000,
			Videos: []scrapingdog.Video{
				{ID: "vid-4", Title: "GPT-5 Deep Dive", Views: 20000, AgeDays: 5},
				{ID: "vid-5", Title: "Model Comparison", Views: 20000, AgeDays: 9},
			},
		},
	}
}

func newTestPipeline(fetcher ChannelFetcher, store database.Store, mailer ReportSender, alerter AlertSender, summarizer Summarizer) *Pipeline {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPipeline(log, testConfig(), fetcher, store, mailer, alerter, summarizer)
}

func TestPipelineRunSuccess(t *testing.T) {
	fetcher := &fakeFetcher{channels: testChannels()}
	store := &fakeStore{}
	mailer := &fakeMailer{}
	alerter := &fakeAlerter{}
	summarizer := &fakeSummarizer{summary: "Competitors are chasing AI tool roundups this week."}

	p := newTestPipeline(fetcher, store, mailer, alerter, summarizer)

	run, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(fetcher.handles) != 2 || fetcher.handles[0] != "@MattWolfe" {
		t.Errorf("fetcher got handles %v", fetcher.handles)
	}

	if run.Status != database.RunStatusOK {
		t.Errorf("run status = %q, want %q", run.Status, database.RunStatusOK)
	}
	if run.ChannelsRequested != 2 || run.ChannelsFetched != 2 {
		t.Errorf("channel counters = %d/%d, want 2/2", run.ChannelsFetched, run.ChannelsRequested)
	}
	if run.VideosSeen != 5 {
		t.Errorf("videos seen = %d, want 5", run.VideosSeen)
	}
	if run.Outperformers != 1 {
		t.Errorf("outperformers = %d, want 1", run.Outperformers)
	}
	if !run.EmailSent || !run.TelegramSent {
		t.Errorf("delivery flags = email %v telegram %v, want both true", run.EmailSent, run.TelegramSent)
	}

	if len(store.finished) != 1 || store.finished[0].Status != database.RunStatusOK {
		t.Fatalf("finished runs = %+v, want one ok run", store.finished)
	}

	// Only the channel that produced outperformers is reported on.
	if len(store.snapshots) != 1 {
		t.Fatalf("saved %d snapshots, want 1", len(store.snapshots))
	}
	snap := store.snapshots[0]
	if snap.RunID != run.ID || snap.Handle != "@MattWolfe" || snap.Outperformers != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.VideosAnalyzed != 3 || snap.AvgViews != 40000 {
		t.Errorf("snapshot analysis fields = %+v", snap)
	}

	if len(store.highlights) != 1 {
		t.Fatalf("saved %d highlights, want 1", len(store.highlights))
	}
	hl := store.highlights[0]
	if hl.VideoID != "vid-1" || hl.Ratio != 2.5 || !hl.Recent || !hl.Fresh {
		t.Errorf("highlight = %+v", hl)
	}

	if !alerter.sent {
		t.Error("alerter was not invoked")
	}
	if mailer.summary != summarizer.summary {
		t.Errorf("mailer summary = %q, want %q", mailer.summary, summarizer.summary)
	}
	if len(mailer.channels) != 1 || !mailer.channels[0].Outperformers[0].Fresh {
		t.Error("mailer did not receive the fresh-flagged report")
	}
}

func TestPipelineRunNoChannels(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := &fakeStore{}
	mailer := &fakeMailer{}

	p := newTestPipeline(fetcher, store, mailer, nil, nil)

	run, err := p.Run(context.Background())
	if !errors.Is(err, ErrNoChannelData) {
		t.Fatalf("Run() error = %v, want ErrNoChannelData", err)
	}

	if run.Status != database.RunStatusFailed {
		t.Errorf("run status = %q, want %q", run.Status, database.RunStatusFailed)
	}
	if !run.Error.Valid || run.Error.String != ErrNoChannelData.Error() {
		t.Errorf("run error = %+v", run.Error)
	}
	if len(store.finished) != 1 {
		t.Errorf("finished runs = %d, want 1", len(store.finished))
	}
	if mailer.sent {
		t.Error("mailer should not be invoked when there is no data")
	}
}

func TestPipelineRunFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("api unreachable")}
	store := &fakeStore{}

	p := newTestPipeline(fetcher, store, &fakeMailer{}, nil, nil)

	run, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run() expected an error")
	}
	if run.Status != database.RunStatusFailed {
		t.Errorf("run status = %q, want %q", run.Status, database.RunStatusFailed)
	}
}

func TestPipelineRunCreateRunError(t *testing.T) {
	store := &fakeStore{createErr: errors.New("disk full")}

	p := newTestPipeline(&fakeFetcher{channels: testChannels()}, store, &fakeMailer{}, nil, nil)

	run, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run() expected an error")
	}
	if run != nil {
		t.Errorf("run = %+v, want nil", run)
	}
}

func TestPipelineRunEmailNotConfigured(t *testing.T) {
	mailer := &fakeMailer{err: report.ErrNotConfigured}

	p := newTestPipeline(&fakeFetcher{channels: testChannels()}, &fakeStore{}, mailer, nil, nil)

	run, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.EmailSent {
		t.Error("EmailSent = true, want false")
	}
	// Missing credentials are expected in console-only setups, not a
	// degraded run.
	if run.Status != database.RunStatusOK {
		t.Errorf("run status = %q, want %q", run.Status, database.RunStatusOK)
	}
}

func TestPipelineRunEmailFailure(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp connection refused")}

	p := newTestPipeline(&fakeFetcher{channels: testChannels()}, &fakeStore{}, mailer, nil, nil)

	run, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.EmailSent {
		t.Error("EmailSent = true, want false")
	}
	if run.Status != database.RunStatusPartial {
		t.Errorf("run status = %q, want %q", run.Status, database.RunStatusPartial)
	}
}

func TestPipelineRunPersistFailure(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("database is locked")}

	p := newTestPipeline(&fakeFetcher{channels: testChannels()}, store, &fakeMailer{}, nil, nil)

	run, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Status != database.RunStatusPartial {
		t.Errorf("run status = %q, want %q", run.Status, database.RunStatusPartial)
	}
	if !run.EmailSent {
		t.Error("a persistence failure should not block the report")
	}
}

func TestPipelineRunKnownVideosNotFresh(t *testing.T) {
	store := &fakeStore{known: map[string]bool{"vid-1": true}}

	p := newTestPipeline(&fakeFetcher{channels: testChannels()}, store, &fakeMailer{}, nil, nil)

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(store.highlights) != 1 {
		t.Fatalf("saved %d highlights, want 1", len(store.highlights))
	}
	if store.highlights[0].Fresh {
		t.Error("previously flagged video marked fresh")
	}
}

func TestPipelineRunAlertFailure(t *testing.T) {
	alerter := &fakeAlerter{err: errors.New("telegram timeout")}

	p := newTestPipeline(&fakeFetcher{channels: testChannels()}, &fakeStore{}, &fakeMailer{}, alerter, nil)

	run, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.TelegramSent {
		t.Error("TelegramSent = true, want false")
	}
	if run.Status != database.RunStatusPartial {
		t.Errorf("run status = %q, want %q", run.Status, database.RunStatusPartial)
	}
}

func TestPipelineRunSummarizerFailure(t *testing.T) {
	mailer := &fakeMailer{}
	summarizer := &fakeSummarizer{err: errors.New("model overloaded")}

	p := newTestPipeline(&fakeFetcher{channels: testChannels()}, &fakeStore{}, mailer, nil, summarizer)

	run, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if mailer.summary != "" {
		t.Errorf("mailer summary = %q, want empty", mailer.summary)
	}
	if run.Status != database.RunStatusOK {
		t.Errorf("run status = %q, want %q", run.Status, database.RunStatusOK)
	}
}

func TestTruncateTitle(t *testing.T) {
	if got := truncateTitle("short", 50); got != "short" {
		t.Errorf("truncateTitle(short) = %q", got)
	}
	long := "This Title Keeps Going And Going And Going And Going And Going"
	if got := truncateTitle(long, 50); len([]rune(got)) != 50 {
		t.Errorf("truncated length = %d, want 50", len([]rune(got)))
	}
}
