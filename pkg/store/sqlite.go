// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jllopis/fincrew/pkg/errors"
)

// SQLiteStore persists records in SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens dsn with the sqlite driver and returns a store with its schema in place.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "open sqlite", err)
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore creates a SQLite-backed store and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New(errors.CodeInvalidInput, "db is nil", nil)
	}
	if err := ensureSchema(db); err != nil {
		return nil, errors.New(errors.CodeInternal, "ensure analysis schema", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close releases the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert implements Store.
func (s *SQLiteStore) Insert(ctx context.Context, rec Record) (string, error) {
	rec, err := prepare(rec, s.now)
	if err != nil {
		return "", err
	}
	analysis, err := encodeAnalysis(rec.Analysis)
	if err != nil {
		return "", errors.New(errors.CodeInternal, "encode analysis", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_results (id, username, query, file_path, analysis_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Username, rec.Query, rec.FilePath, analysis, rec.CreatedAt.UnixNano())
	if err != nil {
		return "", errors.New(errors.CodeInternal, "insert analysis record", err)
	}
	return rec.ID, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, query, file_path, analysis_json, created_at
		FROM analysis_results WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Record{}, notFound(id)
	}
	if err != nil {
		return Record{}, errors.New(errors.CodeInternal, "read analysis record", err)
	}
	return rec, nil
}

// ListByUsername implements Store.
func (s *SQLiteStore) ListByUsername(ctx context.Context, username string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, query, file_path, analysis_json, created_at
		FROM analysis_results
		WHERE username = ?
		ORDER BY created_at DESC, rowid DESC
	`, username)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "list analysis records", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.New(errors.CodeInternal, "scan analysis record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.CodeInternal, "list analysis records", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec      Record
		raw      string
		createdN int64
	)
	if err := sc.Scan(&rec.ID, &rec.Username, &rec.Query, &rec.FilePath, &raw, &createdN); err != nil {
		return Record{}, err
	}
	analysis, err := decodeAnalysis(raw)
	if err != nil {
		return Record{}, err
	}
	rec.Analysis = analysis
	rec.CreatedAt = time.Unix(0, createdN).UTC()
	return rec, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_results (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			query TEXT NOT NULL,
			file_path TEXT NOT NULL,
			analysis_json TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_analysis_results_user ON analysis_results(username, created_at);
	`)
	return err
}

var _ Store = (*SQLiteStore)(nil)
