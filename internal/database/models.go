package database

import (
	"database/sql"
	"time"
)

// Run statuses recorded in the runs table.
const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// Run represents one monitoring pass, from the first channel fetch to the
// report sends. Failed runs are recorded too so problems can be inspected
// after the fact without grepping logs.
type Run struct {
	ID         uint         `db:"id"`
	StartedAt  time.Time    `db:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at"`

	Status            string `db:"status"`
	ChannelsRequested int    `db:"channels_requested"`
	ChannelsFetched   int    `db:"channels_fetched"`
	VideosSeen        int    `db:"videos_seen"`
	Outperformers     int    `db:"outperformers"`
	EmailSent         bool   `db:"email_sent"`
	TelegramSent      bool   `db:"telegram_sent"`

	Error sql.NullString `db:"error"`
}

// ChannelSnapshot stores the per-channel analysis result of a run.
type ChannelSnapshot struct {
	ID        uint      `db:"id"`
	RunID     uint      `db:"run_id"`
	CreatedAt time.Time `db:"created_at"`

	Handle         string  `db:"handle"`
	Name           string  `db:"name"`
	Subscribers    int64   `db:"subscribers"`
	AvgViews       float64 `db:"avg_views"`
	VideosAnalyzed int     `db:"videos_analyzed"`
	Outperformers  int     `db:"outperformers"`
}

// VideoHighlight stores one flagged video of a run. Fresh marks videos
// never flagged in any earlier run.
type VideoHighlight struct {
	ID        uint      `db:"id"`
	RunID     uint      `db:"run_id"`
	CreatedAt time.Time `db:"created_at"`

	ChannelHandle string  `db:"channel_handle"`
	VideoID       string  `db:"video_id"`
	Title         string  `db:"title"`
	Link          string  `db:"link"`
	Views         int64   `db:"views"`
	Ratio         float64 `db:"ratio"`
	Recent        bool    `db:"recent"`
	Fresh         bool    `db:"fresh"`
}
