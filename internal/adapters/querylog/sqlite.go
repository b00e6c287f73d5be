package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/docqa-go/internal/domain/entities"
)

// SQLiteSink mirrors query log entries into a SQLite table.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// NewSQLiteSink opens (or creates) the database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if path == "" {
		path = "./data/querylog.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	sink := &SQLiteSink{db: db, path: path}
	if err := sink.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return sink, nil
}

// initSchema creates the necessary tables.
func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		request_id TEXT,
		query TEXT NOT NULL,
		query_length INTEGER NOT NULL,
		classification TEXT NOT NULL,
		model_used TEXT NOT NULL,
		tokens_input INTEGER NOT NULL,
		tokens_output INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		reliable INTEGER NOT NULL,
		confidence REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_log_ts ON query_log(ts);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append inserts one entry.
func (s *SQLiteSink) Append(ctx context.Context, entry entities.LogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_log (ts, request_id, query, query_length, classification, model_used,
			tokens_input, tokens_output, latency_ms, reliable, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.RequestID,
		entry.Query,
		entry.QueryLength,
		string(entry.Classification),
		entry.ModelUsed,
		entry.TokensInput,
		entry.TokensOutput,
		entry.LatencyMs,
		entry.Reliable,
		entry.Confidence,
	)
	if err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}
	return nil
}

// Summary aggregates the mirrored entries in SQL.
func (s *SQLiteSink) Summary(ctx context.Context) (entities.LogSummary, error) {
	var (
		summary      entities.LogSummary
		totalLatency float64
		latencyCount int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN classification = 'simple' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN reliable THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN latency_ms > 0 THEN latency_ms ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN latency_ms > 0 THEN 1 ELSE 0 END), 0)
		FROM query_log
	`).Scan(&summary.TotalQueries, &summary.SimpleQueries, &summary.ReliableResponses, &totalLatency, &latencyCount)
	if err != nil {
		return summary, fmt.Errorf("summarizing query log: %w", err)
	}

	summary.ComplexQueries = summary.TotalQueries - summary.SimpleQueries
	summary.Finalize(totalLatency, latencyCount)
	return summary, nil
}

// Count returns the number of mirrored entries.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM query_log").Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
