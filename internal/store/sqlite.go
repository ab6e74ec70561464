// Package store provides storage backends for Serenia.
//
// This file implements the SQLite-backed store used by default on device.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/serenia-app/serenia/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists the profile and mood records in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. The DSN is a file path to the
// database file; its directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite store ready", "path", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// SaveProfileJSON stores the profile document, replacing any previous one.
func (s *SQLiteStore) SaveProfileJSON(data []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO profile (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().UTC(),
	)
	if err != nil {
		slog.Error("SQLiteStore SaveProfileJSON failed", "error", err)
		return fmt.Errorf("save profile: %w", err)
	}
	slog.Debug("SQLiteStore profile saved")
	return nil
}

// GetProfileJSON returns the stored profile document, or nil when absent.
func (s *SQLiteStore) GetProfileJSON() ([]byte, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM profile WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfileJSON failed", "error", err)
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return []byte(data), nil
}

// AddMoodRecord appends a mood selection.
func (s *SQLiteStore) AddMoodRecord(r models.MoodRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO mood_records (id, recorded_at, value) VALUES (?, ?, ?)`,
		r.ID, r.RecordedAt.UTC(), int(r.Value),
	)
	if err != nil {
		slog.Error("SQLiteStore AddMoodRecord failed", "error", err, "id", r.ID)
		return fmt.Errorf("add mood record: %w", err)
	}
	slog.Debug("SQLiteStore mood record added", "id", r.ID, "value", int(r.Value))
	return nil
}

// ListMoodRecords returns mood records recorded at or after since, oldest first.
func (s *SQLiteStore) ListMoodRecords(since time.Time) ([]models.MoodRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, recorded_at, value FROM mood_records WHERE recorded_at >= ? ORDER BY recorded_at ASC`,
		since.UTC(),
	)
	if err != nil {
		slog.Error("SQLiteStore ListMoodRecords failed", "error", err)
		return nil, fmt.Errorf("list mood records: %w", err)
	}
	defer rows.Close()

	var out []models.MoodRecord
	for rows.Next() {
		r, err := scanMoodRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list mood records: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
