package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the data access interface for the run history. Methods
// accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateRun inserts a new run record in the running state and fills
	// in its generated ID.
	CreateRun(ctx context.Context, run *Run) error

	// FinishRun records the final status and counters of a run.
	FinishRun(ctx context.Context, run *Run) error

	// LatestRun returns the most recently started run. Returns nil, nil
	// when the history is empty.
	LatestRun(ctx context.Context) (*Run, error)

	// RecentRuns returns up to limit runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]Run, error)

	// SaveChannelSnapshots stores the per-channel results of a run.
	SaveChannelSnapshots(ctx context.Context, snapshots []ChannelSnapshot) error

	// SaveVideoHighlights stores the flagged videos of a run.
	SaveVideoHighlights(ctx context.Context, highlights []VideoHighlight) error

	// KnownVideoIDs reports which of the given video ids were already
	// flagged in an earlier run.
	KnownVideoIDs(ctx context.Context, videoIDs []string) (map[string]bool, error)

	// PruneRuns deletes runs started before the cutoff along with their
	// snapshots and highlights, returning the number of runs removed.
	PruneRuns(ctx context.Context, cutoff time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateRun inserts a new run record and fills in its generated ID.
func (s *sqlxStore) CreateRun(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("cannot create nil run")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for run creation", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	query := `
        INSERT INTO runs (started_at, finished_at, status, channels_requested, channels_fetched,
                          videos_seen, outperformers, email_sent, telegram_sent, error)
        VALUES (:started_at, :finished_at, :status, :channels_requested, :channels_fetched,
                :videos_seen, :outperformers, :email_sent, :telegram_sent, :error);
    `

	result, err := tx.NamedExecContext(ctx, query, run)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating run", "error", err)
		return fmt.Errorf("failed to create run: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		run.ID = uint(id)
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after creating run", "error", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Run created", "run_id", run.ID, "started_at", run.StartedAt)
	return nil
}

// FinishRun records the final status and counters of a run.
func (s *sqlxStore) FinishRun(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("cannot finish nil run")
	}
	if run.ID == 0 {
		return fmt.Errorf("run must have a non-zero id")
	}
	if !run.FinishedAt.Valid {
		run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	query := `
        UPDATE runs SET
            finished_at = :finished_at,
            status = :status,
            channels_requested = :channels_requested,
            channels_fetched = :channels_fetched,
            videos_seen = :videos_seen,
            outperformers = :outperformers,
            email_sent = :email_sent,
            telegram_sent = :telegram_sent,
            error = :error
        WHERE id = :id;
    `

	result, err := s.db.NamedExecContext(ctx, query, run)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error finishing run", "run_id", run.ID, "error", err)
		return fmt.Errorf("failed to finish run %d: %w", run.ID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when finishing run",
			"run_id", run.ID, "affected", affected)
	}

	s.logger.DebugContext(ctx, "Run finished", "run_id", run.ID, "status", run.Status)
	return nil
}

// LatestRun returns the most recently started run, or nil, nil when the
// history is empty.
func (s *sqlxStore) LatestRun(ctx context.Context) (*Run, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var run Run
	query := `
        SELECT id, started_at, finished_at, status, channels_requested, channels_fetched,
               videos_seen, outperformers, email_sent, telegram_sent, error
        FROM runs
        ORDER BY started_at DESC, id DESC
        LIMIT 1;
    `

	err := s.db.GetContext(ctx, &run, query)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No runs recorded yet")
		return nil, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return nil, err
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting latest run", "error", err)
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return &run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *sqlxStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	} else if limit > 100 {
		limit = 100
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var runs []Run
	query := `
        SELECT id, started_at, finished_at, status, channels_requested, channels_fetched,
               videos_seen, outperformers, email_sent, telegram_sent, error
        FROM runs
        ORDER BY started_at DESC, id DESC
        LIMIT ?;
    `

	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent runs", "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent runs: %w", err)
	}

	return runs, nil
}

// SaveChannelSnapshots stores the per-channel results of a run.
func (s *sqlxStore) SaveChannelSnapshots(ctx context.Context, snapshots []ChannelSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := range snapshots {
		if snapshots[i].RunID == 0 {
			return fmt.Errorf("channel snapshot must have a non-zero run_id")
		}
		snapshots[i].CreatedAt = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for channel snapshots", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	query := `
        INSERT INTO channel_snapshots (run_id, created_at, handle, name, subscribers,
                                       avg_views, videos_analyzed, outperformers)
        VALUES (:run_id, :created_at, :handle, :name, :subscribers,
                :avg_views, :videos_analyzed, :outperformers);
    `

	if _, err := tx.NamedExecContext(ctx, query, snapshots); err != nil {
		s.logger.ErrorContext(ctx, "Error saving channel snapshots", "count", len(snapshots), "error", err)
		return fmt.Errorf("failed to save channel snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Channel snapshots saved", "count", len(snapshots))
	return nil
}

// SaveVideoHighlights stores the flagged videos of a run.
func (s *sqlxStore) SaveVideoHighlights(ctx context.Context, highlights []VideoHighlight) error {
	if len(highlights) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := range highlights {
		if highlights[i].RunID == 0 {
			return fmt.Errorf("video highlight must have a non-zero run_id")
		}
		highlights[i].CreatedAt = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for video highlights", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	query := `
        INSERT INTO video_highlights (run_id, created_at, channel_handle, video_id, title,
                                      link, views, ratio, recent, fresh)
        VALUES (:run_id, :created_at, :channel_handle, :video_id, :title,
                :link, :views, :ratio, :recent, :fresh);
    `

	if _, err := tx.NamedExecContext(ctx, query, highlights); err != nil {
		s.logger.ErrorContext(ctx, "Error saving video highlights", "count", len(highlights), "error", err)
		return fmt.Errorf("failed to save video highlights: %w", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Video highlights saved", "count", len(highlights))
	return nil
}

// KnownVideoIDs reports which of the given video ids were already flagged
// in an earlier run.
func (s *sqlxStore) KnownVideoIDs(ctx context.Context, videoIDs []string) (map[string]bool, error) {
	known := make(map[string]bool, len(videoIDs))
	if len(videoIDs) == 0 {
		return known, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	query, args, err := sqlx.In(`SELECT DISTINCT video_id FROM video_highlights WHERE video_id IN (?);`, videoIDs)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error building known video ids query", "error", err)
		return nil, fmt.Errorf("failed to build known video ids query: %w", err)
	}

	var ids []string
	query = s.db.Rebind(query)
	if err := s.db.SelectContext(ctx, &ids, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error querying known video ids", "error", err)
		return nil, fmt.Errorf("failed to query known video ids: %w", err)
	}

	for _, id := range ids {
		known[id] = true
	}

	s.logger.DebugContext(ctx, "Known video ids resolved", "requested", len(videoIDs), "known", len(known))
	return known, nil
}

// PruneRuns deletes runs started before the cutoff along with their
// snapshots and highlights.
func (s *sqlxStore) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for run pruning", "error", err)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	// Child rows go first; SQLite does not enforce the references without
	// the foreign_keys pragma.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM video_highlights WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?);`, cutoff); err != nil {
		s.logger.ErrorContext(ctx, "Error pruning video highlights", "error", err)
		return 0, fmt.Errorf("failed to prune video highlights: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM channel_snapshots WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?);`, cutoff); err != nil {
		s.logger.ErrorContext(ctx, "Error pruning channel snapshots", "error", err)
		return 0, fmt.Errorf("failed to prune channel snapshots: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?;`, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning runs", "error", err)
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	pruned, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get pruned run count", "error", err)
		pruned = 0
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Pruned old runs", "cutoff", cutoff, "runs_removed", pruned)
	return pruned, nil
}

// RunSQLMaintenance executes a VACUUM on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite; set a busy timeout
	// first so it waits briefly for in-flight writes.
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}
