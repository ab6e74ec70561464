// Package profile loads and saves the patient profile against a store.
//
// Stored documents may be malformed (hand-edited, or written by an older
// build); loading recovers locally by coercing bad fields to empty/nil
// defaults instead of propagating decode errors.
package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/serenia-app/serenia/internal/models"
	"github.com/serenia-app/serenia/internal/store"
)

// emailRe matches the usual local@domain.tld shape.
var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// IsValidEmail reports whether email (after trimming) looks like a valid
// address.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(strings.TrimSpace(email))
}

// Service reads and writes the profile document through a store.
type Service struct {
	store store.Store
}

// NewService creates a profile service backed by st.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Load returns the stored profile, or nil when none has been saved. An
// undecodable document is treated as absent.
func (s *Service) Load() (*models.Profile, error) {
	data, err := s.store.GetProfileJSON()
	if err != nil {
		slog.Error("Profile load failed", "error", err)
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if data == nil {
		slog.Debug("Profile not found")
		return nil, nil
	}

	var p models.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("Profile document undecodable, treating as absent", "error", err)
		return nil, nil
	}
	slog.Debug("Profile loaded", "has_avatar", p.AvatarURI != nil)
	return &p, nil
}

// Save sanitizes and stores the profile. The email must be valid; callers
// are expected to have validated it already, so a failure here wraps
// models.ErrInvalidEmail to flag the caller bug.
func (s *Service) Save(p models.Profile) error {
	sanitized := models.Profile{
		Name:  strings.TrimSpace(p.Name),
		Email: strings.TrimSpace(p.Email),
	}
	if p.AvatarURI != nil && *p.AvatarURI != "" {
		uri := *p.AvatarURI
		sanitized.AvatarURI = &uri
	}

	if !IsValidEmail(sanitized.Email) {
		return fmt.Errorf("%w: %q", models.ErrInvalidEmail, sanitized.Email)
	}

	data, err := json.Marshal(sanitized)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.store.SaveProfileJSON(data); err != nil {
		slog.Error("Profile save failed", "error", err)
		return fmt.Errorf("save profile: %w", err)
	}
	slog.Debug("Profile saved")
	return nil
}
