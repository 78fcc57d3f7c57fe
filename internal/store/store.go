// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/morsekob/kob/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for the recordings index.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			wire INTEGER NOT NULL,
			stations TEXT NOT NULL,
			events INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_started_at ON recordings(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_wire ON recordings(wire);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRecording stores one finished session in the index.
func (s *Store) InsertRecording(ctx context.Context, rec model.Recording) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (id, path, wire, stations, events, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Path,
		rec.Wire,
		strings.Join(rec.Stations, ","),
		rec.Events,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.EndedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert recording: %w", err)
	}
	return nil
}

// ListRecordings returns indexed recordings matching the filter, newest
// first.
func (s *Store) ListRecordings(ctx context.Context, filter model.RecordingsFilter) ([]model.Recording, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Wire != 0 {
		clauses = append(clauses, "wire = ?")
		args = append(args, filter.Wire)
	}
	if filter.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, filter.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, path, wire, stations, events, started_at, ended_at
		FROM recordings
		WHERE %s
		ORDER BY started_at DESC`, strings.Join(clauses, " AND "))
	if filter.Last > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Last)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var recordings []model.Recording
	for rows.Next() {
		var rec model.Recording
		var stations, startedAt, endedAt string
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Wire, &stations, &rec.Events, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		if stations != "" {
			rec.Stations = strings.Split(stations, ",")
		}
		rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		rec.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recordings, nil
}

// DeleteRecording removes one index row. The JSONL file is left alone.
func (s *Store) DeleteRecording(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("recording %s not found", id)
	}
	return nil
}
