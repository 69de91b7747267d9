// Package history persists build reports to SQLite so daemon and watch
// modes can answer "what happened to the last N builds".
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/webstage/webstage/internal/pipeline"
)

// Record is one persisted build outcome.
type Record struct {
	ID              int64
	BuildID         string
	Outcome         string
	Start           time.Time
	DurationMS      int64
	PrunedArtifacts int
	StagedFiles     int
	Report          *pipeline.BuildReport
}

// Store persists build reports.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a new SQLite-backed history store.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		start INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		pruned_artifacts INTEGER NOT NULL,
		staged_files INTEGER NOT NULL,
		report BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_build_id ON builds(build_id);
	CREATE INDEX IF NOT EXISTS idx_builds_start ON builds(start);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records a finished build.
func (s *Store) Append(ctx context.Context, report *pipeline.BuildReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO builds (build_id, outcome, start, duration_ms, pruned_artifacts, staged_files, report) VALUES (?, ?, ?, ?, ?, ?, ?)",
		report.ID, string(report.Outcome), report.Start.Unix(), report.Duration.Milliseconds(),
		report.PrunedArtifacts, report.StagedFiles, payload,
	)
	if err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	return nil
}

// Recent returns the most recent builds, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, outcome, start, duration_ms, pruned_artifacts, staged_files, report FROM builds ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var startUnix int64
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.BuildID, &rec.Outcome, &startUnix, &rec.DurationMS, &rec.PrunedArtifacts, &rec.StagedFiles, &payload); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		rec.Start = time.Unix(startUnix, 0)
		var report pipeline.BuildReport
		if err := json.Unmarshal(payload, &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		rec.Report = &report
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
