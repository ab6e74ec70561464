// Package store provides storage backends for Serenia.
//
// This file implements the PostgreSQL-backed store for deployments that
// share a database server.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/serenia-app/serenia/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists the profile and mood records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres store ready")
	return &PostgresStore{db: db}, nil
}

// SaveProfileJSON stores the profile document, replacing any previous one.
func (s *PostgresStore) SaveProfileJSON(data []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO profile (id, data, updated_at) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		string(data), time.Now().UTC(),
	)
	if err != nil {
		slog.Error("PostgresStore SaveProfileJSON failed", "error", err)
		return fmt.Errorf("save profile: %w", err)
	}
	slog.Debug("PostgresStore profile saved")
	return nil
}

// GetProfileJSON returns the stored profile document, or nil when absent.
func (s *PostgresStore) GetProfileJSON() ([]byte, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM profile WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProfileJSON failed", "error", err)
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return []byte(data), nil
}

// AddMoodRecord appends a mood selection.
func (s *PostgresStore) AddMoodRecord(r models.MoodRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO mood_records (id, recorded_at, value) VALUES ($1, $2, $3)`,
		r.ID, r.RecordedAt.UTC(), int(r.Value),
	)
	if err != nil {
		slog.Error("PostgresStore AddMoodRecord failed", "error", err, "id", r.ID)
		return fmt.Errorf("add mood record: %w", err)
	}
	slog.Debug("PostgresStore mood record added", "id", r.ID, "value", int(r.Value))
	return nil
}

// ListMoodRecords returns mood records recorded at or after since, oldest first.
func (s *PostgresStore) ListMoodRecords(since time.Time) ([]models.MoodRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, recorded_at, value FROM mood_records WHERE recorded_at >= $1 ORDER BY recorded_at ASC`,
		since.UTC(),
	)
	if err != nil {
		slog.Error("PostgresStore ListMoodRecords failed", "error", err)
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
