// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps a SQLite index of mirrored records and versions so
// the local tree can be listed and exported without walking it.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"

	"github.com/pdiddy/zenodo-sync/pkg/types"
)

// Store manages the catalog database.
type Store struct {
	db   *sql.DB
	path string
	fs   afero.Fs
}

// Option configures a Store.
type Option func(*Store)

// WithFs sets the filesystem that exports are written to. SQLite itself
// always uses the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) { s.fs = fs }
}

// Open opens or creates the catalog database at path and creates the
// schema if it does not exist.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	s := &Store{db: db, path: path, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			concept_id TEXT NOT NULL,
			title TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS versions (
			id TEXT PRIMARY KEY,
			record_id TEXT NOT NULL REFERENCES records(id),
			label TEXT NOT NULL,
			dir TEXT NOT NULL,
			files INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_versions_record_id ON versions(record_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_concept_id ON records(concept_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordVersion upserts the record and version described by e. The stored
// file count never decreases, so a later dry run keeps the count of an
// earlier full run.
func (s *Store) RecordVersion(ctx context.Context, e types.CatalogEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (id, concept_id, title) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET concept_id=excluded.concept_id, title=excluded.title`,
		e.RecordID, e.ConceptID, e.Title,
	)
	if err != nil {
		return fmt.Errorf("upserting record %s: %w", e.RecordID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO versions (id, record_id, label, dir, files) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			record_id=excluded.record_id, label=excluded.label, dir=excluded.dir,
			files=max(versions.files, excluded.files)`,
		e.VersionID, e.RecordID, e.Label, e.Dir, e.Files,
	)
	if err != nil {
		return fmt.Errorf("upserting version %s: %w", e.VersionID, err)
	}

	return tx.Commit()
}

// QueryOptions filters List. Empty fields match everything.
type QueryOptions struct {
	RecordID  string
	ConceptID string
}

// List returns catalog entries ordered by concept, record, and label.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]types.CatalogEntry, error) {
	query := `SELECT r.id, r.concept_id, COALESCE(r.title, ''), v.id, v.label, v.dir, v.files
		FROM versions v
		JOIN records r ON r.id = v.record_id
		WHERE (? = '' OR r.id = ?) AND (? = '' OR r.concept_id = ?)
		ORDER BY r.concept_id, r.id, v.label, v.id`

	rows, err := s.db.QueryContext(ctx, query, opts.RecordID, opts.RecordID, opts.ConceptID, opts.ConceptID)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var entries []types.CatalogEntry
	for rows.Next() {
		var e types.CatalogEntry
		if err := rows.Scan(&e.RecordID, &e.ConceptID, &e.Title, &e.VersionID, &e.Label, &e.Dir, &e.Files); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
