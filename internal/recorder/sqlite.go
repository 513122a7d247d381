package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"

	apperrors "volscan/internal/errors"
	"volscan/internal/files"
	"volscan/internal/infrastructure"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *slog.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := files.EnsureParentDir(dbPath); err != nil {
		return nil, apperrors.NewStorageError("prepare database directory", err).WithContext("path", dbPath)
	}
	existed := files.FileExists(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.NewStorageError("open sqlite", err).WithContext("path", dbPath)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("set WAL mode", err).WithContext("path", dbPath)
	}

	r := &SQLiteRecorder{db: db, logger: infrastructure.WithComponent(logger, "recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("migrate", err).WithContext("path", dbPath)
	}

	r.logger.Debug("sqlite recorder opened",
		slog.String("path", dbPath),
		slog.Bool("created", !existed))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			started_at  INTEGER NOT NULL,
			root        TEXT,
			workers     INTEGER,
			files       INTEGER,
			drain_mode  TEXT,
			polls       INTEGER,
			duration_ms INTEGER,
			status      TEXT NOT NULL,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS instrument_volatility (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL REFERENCES runs(id),
			instrument TEXT NOT NULL,
			rank       INTEGER,
			volatility REAL,
			worker     INTEGER,
			degenerate INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_volatility_run ON instrument_volatility(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_volatility_instrument ON instrument_volatility(instrument)`,
	}

	for i, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}
	return nil
}

// RecordRun stores the run and its instruments in one transaction.
// Failures are returned as storage errors and nothing is kept.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *RunRecord) error {
	if err := r.recordRun(ctx, run); err != nil {
		return apperrors.NewStorageError("record run", err).WithContext("run_id", run.ID)
	}
	return nil
}

func (r *SQLiteRecorder) recordRun(ctx context.Context, run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, started_at, root, workers, files, drain_mode, polls, duration_ms, status, error)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.Root, run.Workers, run.Files,
		run.DrainMode, run.Polls, run.Duration.Milliseconds(), run.Status, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO instrument_volatility
		(run_id, instrument, rank, volatility, worker, degenerate)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare instrument insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range run.Ranked {
		if _, err := stmt.ExecContext(ctx, run.ID, e.Instrument, e.Rank, e.Volatility, e.Worker, 0); err != nil {
			return fmt.Errorf("insert %s: %w", e.Instrument, err)
		}
	}
	for _, name := range run.Zero {
		if _, err := stmt.ExecContext(ctx, run.ID, name, nil, nil, nil, 1); err != nil {
			return fmt.Errorf("insert %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.DebugContext(ctx, "run recorded",
		slog.String("run_id", run.ID),
		slog.String("status", run.Status),
		slog.Int("instruments", len(run.Ranked)+len(run.Zero)))
	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Debug("closing sqlite recorder")
	return r.db.Close()
}
