package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS term_readings (
	surface    TEXT PRIMARY KEY,
	reading    TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// TermStore persists resolved surface-form -> phonetic-reading pairs so a
// term is only looked up once across runs. Writes are last-write-wins.
type TermStore struct {
	db *sql.DB
}

func NewTermStore(path string) (*TermStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &TermStore{db: db}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// Load returns every cached reading keyed by surface form.
func (s *TermStore) Load(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT surface, reading FROM term_readings`)
	if err != nil {
		return nil, fmt.Errorf("load term readings: %w", err)
	}
	defer rows.Close()

	readings := make(map[string]string)
	for rows.Next() {
		var surface, reading string
		if err := rows.Scan(&surface, &reading); err != nil {
			return nil, fmt.Errorf("scan term reading: %w", err)
		}
		readings[surface] = reading
	}
	return readings, rows.Err()
}

// Upsert stores or replaces one reading.
func (s *TermStore) Upsert(ctx context.Context, surface, reading string) error {
	if surface == "" || reading == "" {
		return fmt.Errorf("surface and reading are required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO term_readings (surface, reading, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(surface) DO UPDATE SET reading = excluded.reading, updated_at = excluded.updated_at`,
		surface, reading, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert term reading %q: %w", surface, err)
	}
	return nil
}

func (s *TermStore) Close() error {
	return s.db.Close()
}
