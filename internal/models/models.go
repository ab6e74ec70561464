// Package models defines the core data structures for Serenia.
//
// It includes the conversation message types, mood tracking types, guided
// action plans, and the shared error variables used across modules.
package models

import (
	"errors"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleAssistant marks messages produced by the companion bot.
	RoleAssistant Role = "assistant"
	// RoleProfessional marks messages from a care professional.
	RoleProfessional Role = "professional"
	// RolePatient marks messages authored by the patient.
	RolePatient Role = "patient"
)

// IsValidRole checks if the given role is one of the supported authors.
func IsValidRole(r Role) bool {
	switch r {
	case RoleAssistant, RoleProfessional, RolePatient:
		return true
	default:
		return false
	}
}

// Severity is the patient's self-declared severity level.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	// SeverityUnset is the initial value before the patient picks a level.
	SeverityUnset Severity = "unset"
)

// IsValidSeverity checks if the given severity can be recorded by a session.
// SeverityUnset is a valid internal state but not a recordable choice.
func IsValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh:
		return true
	default:
		return false
	}
}

// Error variables for better error handling and testability
var (
	ErrUnknownPlanKey  = errors.New("unknown action plan key")
	ErrInvalidSeverity = errors.New("invalid severity level")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrSessionClosed   = errors.New("session is closed")
)

// Message represents a single conversation message. Messages are immutable
// once created and the session history is append-only.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// Reply is the composed assistant turn: the reply text plus the suggestion
// labels to show once the reply is displayed.
type Reply struct {
	Text        string   `json:"text"`
	Suggestions []string `json:"suggestions"`
}

// MoodValue is a recorded mood on the 1..5 scale.
type MoodValue int

// MoodAggregate accumulates mood values recorded on a single calendar day.
// Count is never negative; Sum is the running total of recorded values.
type MoodAggregate struct {
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
}

// MoodPoint is one sample of the daily mood time series. Value is nil for
// days with no recorded mood.
type MoodPoint struct {
	Date  time.Time `json:"date"`
	Value *float64  `json:"value"`
}

// MoodRecord is a single persisted mood selection.
type MoodRecord struct {
	ID         string    `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
	Value      MoodValue `json:"value"`
}

// ActionStep is one step of a guided action plan. Duration is a suggested
// on-screen pacing hint; the core exposes it as data and does not enforce it.
type ActionStep struct {
	Text     string        `json:"text"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ActionPlan is a guided multi-step exercise attached to a suggestion label.
type ActionPlan struct {
	Preface    string       `json:"preface"`
	Steps      []ActionStep `json:"steps"`
	Completion string       `json:"completion"`
	FollowUp   string       `json:"follow_up"`
}
