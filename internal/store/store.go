// Package store provides storage backends for Serenia.
//
// It persists the profile document and mood records. Conversation messages
// are deliberately never stored: sessions live and die with the screen.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/serenia-app/serenia/internal/models"
)

// Store is the persistence interface the profile and mood features use.
type Store interface {
	// SaveProfileJSON stores the profile document, replacing any previous one.
	SaveProfileJSON(data []byte) error

	// GetProfileJSON returns the stored profile document, or nil when no
	// profile has been saved yet.
	GetProfileJSON() ([]byte, error)

	// AddMoodRecord appends a mood selection.
	AddMoodRecord(r models.MoodRecord) error

	// ListMoodRecords returns mood records recorded at or after since,
	// oldest first.
	ListMoodRecords(since time.Time) ([]models.MoodRecord, error)

	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithDSN sets the database connection string (file path for SQLite).
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// InMemoryStore is a simple in-memory store for tests and ephemeral runs.
type InMemoryStore struct {
	mu      sync.Mutex
	profile []byte
	moods   []models.MoodRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// SaveProfileJSON stores the profile document.
func (s *InMemoryStore) SaveProfileJSON(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = append([]byte(nil), data...)
	return nil
}

// GetProfileJSON returns the stored profile document, or nil when absent.
func (s *InMemoryStore) GetProfileJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil, nil
	}
	return append([]byte(nil), s.profile...), nil
}

// AddMoodRecord appends a mood record.
func (s *InMemoryStore) AddMoodRecord(r models.MoodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moods = append(s.moods, r)
	return nil
}

// ListMoodRecords returns mood records recorded at or after since, oldest first.
func (s *InMemoryStore) ListMoodRecords(since time.Time) ([]models.MoodRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.MoodRecord
	for _, r := range s.moods {
		if !r.RecordedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
