// Package journal keeps a local SQLite record of runs started through this
// machine, so the CLI can show history without re-querying the service.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/constants"
)

// Record is one journaled run invocation.
type Record struct {
	ID           int64      `json:"id"`
	RunID        string     `json:"run_id"`
	ThreadID     string     `json:"thread_id"`
	AssistantID  string     `json:"assistant_id"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	DurationMs   *int64     `json:"duration_ms,omitempty"`
}

// ThreadStats aggregates journaled runs for one thread.
type ThreadStats struct {
	ThreadID       string     `json:"thread_id"`
	RunCount       int64      `json:"run_count"`
	CompletedCount int64      `json:"completed_count"`
	FailedCount    int64      `json:"failed_count"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
}

// Service provides journal operations.
type Service struct {
	db *sql.DB
}

// NewService opens (and if needed creates) the journal database. An empty
// path uses the default location under the cache directory.
func NewService(dbPath string) (*Service, error) {
	if dbPath == "" {
		dbPath = constants.GetDatabasePath()
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	service := &Service{db: db}

	if err := service.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return service, nil
}

// Close closes the database connection.
func (s *Service) Close() error {
	return s.db.Close()
}

func (s *Service) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			thread_id TEXT NOT NULL,
			assistant_id TEXT,
			status TEXT NOT NULL,
			error_message TEXT,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_thread_id ON runs(thread_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

// RecordRun inserts a journal entry for a finished (or abandoned) run.
func (s *Service) RecordRun(rec *Record) error {
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	query := `INSERT INTO runs (
		run_id, thread_id, assistant_id, status, error_message,
		started_at, completed_at, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		rec.RunID, rec.ThreadID, rec.AssistantID, rec.Status,
		rec.ErrorMessage, rec.StartedAt, rec.CompletedAt, rec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// ListRecent returns the most recent journal entries, newest first.
func (s *Service) ListRecent(limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, run_id, thread_id, assistant_id, status, error_message,
		started_at, completed_at, duration_ms
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var assistantID sql.NullString
		var errMsg sql.NullString
		var completedAt sql.NullTime
		var durationMs sql.NullInt64

		err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.ThreadID, &assistantID, &rec.Status,
			&errMsg, &rec.StartedAt, &completedAt, &durationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.AssistantID = assistantID.String
		if errMsg.Valid {
			rec.ErrorMessage = &errMsg.String
		}
		if completedAt.Valid {
			rec.CompletedAt = &completedAt.Time
		}
		if durationMs.Valid {
			rec.DurationMs = &durationMs.Int64
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}

// StatsForThread aggregates journaled runs for a thread. A thread with no
// entries yields zero counts, not an error.
func (s *Service) StatsForThread(threadID string) (*ThreadStats, error) {
	query := `SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM runs WHERE thread_id = ?`

	stats := &ThreadStats{ThreadID: threadID}

	err := s.db.QueryRow(query, threadID).Scan(
		&stats.RunCount, &stats.CompletedCount, &stats.FailedCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate thread stats: %w", err)
	}

	// MAX(started_at) drops the column's declared type, so the driver would
	// hand the aggregate back as a string. Select the column itself instead.
	var lastRun sql.NullTime
	err = s.db.QueryRow(
		`SELECT started_at FROM runs WHERE thread_id = ? ORDER BY started_at DESC, id DESC LIMIT 1`,
		threadID,
	).Scan(&lastRun)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read last run time: %w", err)
	}
	if lastRun.Valid {
		stats.LastRunAt = &lastRun.Time
	}

	return stats, nil
}
