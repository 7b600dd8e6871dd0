package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webkb/internal/model"
)

// FileName is the database file created in the data directory.
const FileName = "webkb.db"

// HistoryDB is the run history store.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging, so the server can read history
	// while a crawl is being saved.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("database not found at %s", dbPath)
			}
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		mode = "rw"
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode+"&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		pages_count INTEGER NOT NULL DEFAULT 0,
		thin_pages_count INTEGER NOT NULL DEFAULT 0,
		total_chars INTEGER NOT NULL DEFAULT 0,
		errors_count INTEGER NOT NULL DEFAULT 0,
		skipped_links INTEGER NOT NULL DEFAULT 0,
		timed_out INTEGER NOT NULL DEFAULT 0,
		run_json TEXT NOT NULL,
		markdown TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start_url ON runs(start_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored run summary.
type RunRecord struct {
	ID    int64
	Stats model.RunStats
}

// Save stores run and returns its ID.
func (h *HistoryDB) Save(ctx context.Context, run *model.Run) (int64, error) {
	runJSON, err := json.Marshal(run)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run: %w", err)
	}
	stats := run.Stats()

	query := `
	INSERT INTO runs (start_url, started_at, elapsed_ms, pages_count, thin_pages_count,
		total_chars, errors_count, skipped_links, timed_out, run_json, markdown)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := h.db.ExecContext(ctx, query,
		stats.StartURL,
		stats.StartedAt.UTC().Format(time.RFC3339Nano),
		stats.Elapsed.Milliseconds(),
		stats.PagesCount,
		stats.ThinPagesCount,
		stats.TotalChars,
		stats.ErrorsCount,
		stats.SkippedLinks,
		stats.TimedOut,
		string(runJSON),
		run.Markdown,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	return result.LastInsertId()
}

// List returns up to limit run summaries, newest first. A non-positive
// limit returns every run.
func (h *HistoryDB) List(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, start_url, started_at, elapsed_ms, pages_count, thin_pages_count,
		total_chars, errors_count, skipped_links, timed_out
	FROM runs
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	records := make([]RunRecord, 0)
	for rows.Next() {
		var rec RunRecord
		var startedAt string
		var elapsedMS int64
		if err := rows.Scan(
			&rec.ID,
			&rec.Stats.StartURL,
			&startedAt,
			&elapsedMS,
			&rec.Stats.PagesCount,
			&rec.Stats.ThinPagesCount,
			&rec.Stats.TotalChars,
			&rec.Stats.ErrorsCount,
			&rec.Stats.SkippedLinks,
			&rec.Stats.TimedOut,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.Stats.StartedAt = parseTimestamp(startedAt)
		rec.Stats.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns the run with the given ID, or nil when there is none.
func (h *HistoryDB) Get(ctx context.Context, id int64) (*model.Run, error) {
	return h.load(ctx, `SELECT run_json, markdown FROM runs WHERE id = ?`, id)
}

// Latest returns the most recently saved run, or nil when there is none.
func (h *HistoryDB) Latest(ctx context.Context) (*model.Run, error) {
	return h.load(ctx, `SELECT run_json, markdown FROM runs ORDER BY id DESC LIMIT 1`)
}

func (h *HistoryDB) load(ctx context.Context, query string, args ...any) (*model.Run, error) {
	var runJSON, markdown string
	err := h.db.QueryRowContext(ctx, query, args...).Scan(&runJSON, &markdown)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run model.Run
	if err := json.Unmarshal([]byte(runJSON), &run); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	run.Markdown = markdown
	return &run, nil
}

// timestampFormats are tried in order by parseTimestamp.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite CURRENT_TIMESTAMP
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
