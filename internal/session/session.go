// Package session implements the conversation state machine behind the
// patient space screen.
//
// A Session owns its message history, suggestion visibility, severity and
// exercise playback state exclusively. The UI drives it through five
// intents: SendMessage, PickSuggestion, ContinueExercise, StopExercise and
// SetSeverity. Assistant replies and exercise prefaces are appended after a
// short simulated typing delay scheduled on the injected Timer; Close
// suppresses any delay still in flight so a discarded session is never
// mutated.
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/serenia-app/serenia/internal/models"
	"github.com/serenia-app/serenia/internal/plans"
)

// Simulated typing delays. UX pacing only, not retry or backoff machinery.
const (
	// ReplyDelay is how long the assistant "types" before a reply appears.
	ReplyDelay = 400 * time.Millisecond
	// PrefaceDelay is the pause before an exercise preface appears.
	PrefaceDelay = 250 * time.Millisecond
)

// SeedMessageText is the assistant message every new session starts with.
const SeedMessageText = "Bonjour, je suis là pour vous accompagner. Dites-moi ce que vous ressentez en ce moment."

// severityLabels is the natural-language form recorded in the history when
// the patient picks a severity level.
var severityLabels = map[models.Severity]string{
	models.SeverityLow:      "Faible",
	models.SeverityModerate: "Modérée",
	models.SeverityHigh:     "Élevée",
}

// Composer produces the assistant reply for a patient turn. history is the
// message list before the current turn was appended.
type Composer interface {
	Compose(history []models.Message, userText string, severity models.Severity) models.Reply
}

// Snapshot is the render-ready view of a session handed to the UI.
type Snapshot struct {
	Messages        []models.Message
	IsTyping        bool
	Suggestions     []string
	ShowSuggestions bool
	Exercising      bool
	StepIndex       int
	Severity        models.Severity
}

// Opts holds configuration options for a session.
type Opts struct {
	OnChange func(Snapshot)
}

// Option defines a configuration option for a session.
type Option func(*Opts)

// WithOnChange registers a rendering-surface callback invoked after every
// state mutation. It is called outside the session lock.
func WithOnChange(fn func(Snapshot)) Option {
	return func(o *Opts) {
		o.OnChange = fn
	}
}

// Session is the conversation state machine. All state transitions happen
// in response to discrete UI intents; the mutex only serializes those
// intents against the deferred typing callbacks.
type Session struct {
	mu       sync.Mutex
	composer Composer
	timer    Timer
	onChange func(Snapshot)

	messages        []models.Message
	severity        models.Severity
	suggestions     []string
	showSuggestions bool
	isTyping        bool
	exercising      bool
	plan            *models.ActionPlan
	stepIndex       int
	pending         map[string]struct{}
	closed          bool
}

// New creates a session seeded with the welcome assistant message and the
// initial suggestion set.
func New(composer Composer, timer Timer, initialSuggestions []string, opts ...Option) *Session {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		composer:        composer,
		timer:           timer,
		onChange:        cfg.OnChange,
		severity:        models.SeverityUnset,
		suggestions:     initialSuggestions,
		showSuggestions: true,
		pending:         make(map[string]struct{}),
	}
	s.messages = append(s.messages, newMessage(models.RoleAssistant, SeedMessageText))
	slog.Debug("Session created", "suggestions", len(initialSuggestions))
	return s
}

// SendMessage appends a patient message and schedules the assistant reply.
// Empty input (after trimming) is a silent no-op, not an error.
func (s *Session) SendMessage(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrSessionClosed
	}

	// History snapshot before this turn: the composer's back-reference
	// quotes the previous patient message, not the one being sent.
	history := make([]models.Message, len(s.messages))
	copy(history, s.messages)

	s.messages = append(s.messages, newMessage(models.RolePatient, trimmed))
	s.isTyping = true
	s.showSuggestions = false
	slog.Debug("Session patient message appended", "messages", len(s.messages))

	s.scheduleLocked(ReplyDelay, func() {
		reply := s.composer.Compose(history, trimmed, s.severity)
		s.messages = append(s.messages, newMessage(models.RoleAssistant, reply.Text))
		s.suggestions = reply.Suggestions
		s.isTyping = false
		s.showSuggestions = true
		slog.Debug("Session assistant reply appended", "messages", len(s.messages), "suggestions", len(reply.Suggestions))
	})

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// PickSuggestion records the patient's choice and starts the guided plan
// attached to label. An unknown label returns the catalog's lookup error
// and leaves the session untouched.
func (s *Session) PickSuggestion(label string) error {
	plan, err := plans.Get(label)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrSessionClosed
	}

	picked := &plan
	s.messages = append(s.messages, newMessage(models.RolePatient, "Choix: "+label))
	s.plan = picked
	s.exercising = true
	s.stepIndex = 0
	s.showSuggestions = false
	slog.Debug("Session exercise started", "plan", label, "steps", len(plan.Steps))

	s.scheduleLocked(PrefaceDelay, func() {
		// The patient may have stopped or replaced the exercise before the
		// preface landed; a stale callback appends nothing.
		if s.plan != picked {
			return
		}
		s.messages = append(s.messages, newMessage(models.RoleAssistant, picked.Preface))
	})

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// ContinueExercise advances the active plan: while steps remain it appends
// the current step and moves the cursor; once the cursor reaches the step
// count it appends the completion and follow-up messages and ends the
// exercise. A no-op when no exercise is active.
func (s *Session) ContinueExercise() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrSessionClosed
	}
	if s.plan == nil {
		s.mu.Unlock()
		return nil
	}

	if s.stepIndex >= len(s.plan.Steps) {
		s.finishExerciseLocked()
	} else {
		step := s.plan.Steps[s.stepIndex]
		s.messages = append(s.messages, newMessage(models.RoleAssistant, step.Text))
		s.stepIndex++
		slog.Debug("Session exercise step", "cursor", s.stepIndex, "steps", len(s.plan.Steps))
	}

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// StopExercise ends the active plan early, appending the completion and
// follow-up messages regardless of the cursor position. A no-op when no
// exercise is active.
func (s *Session) StopExercise() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrSessionClosed
	}
	if s.plan == nil {
		s.mu.Unlock()
		return nil
	}

	slog.Debug("Session exercise stopped early", "cursor", s.stepIndex)
	s.finishExerciseLocked()

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// SetSeverity records the patient's declared severity level and appends a
// patient message stating it. It does not otherwise change the flow.
func (s *Session) SetSeverity(level models.Severity) error {
	if !models.IsValidSeverity(level) {
		return fmt.Errorf("%w: %q", models.ErrInvalidSeverity, level)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.ErrSessionClosed
	}

	s.severity = level
	s.messages = append(s.messages, newMessage(models.RolePatient, "Gravité: "+severityLabels[level]))
	slog.Debug("Session severity recorded", "severity", level)

	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// Snapshot returns the current render-ready view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close tears the session down: pending typing callbacks are cancelled and
// any that already fired are suppressed, so a closed session is never
// mutated. Further operations return models.ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id := range s.pending {
		_ = s.timer.Cancel(id)
	}
	s.pending = make(map[string]struct{})
	slog.Debug("Session closed", "messages", len(s.messages))
}

// scheduleLocked schedules fn on the timer and tracks the handle so Close
// can cancel it. fn runs under the session lock with the closed guard
// already applied. Callers must hold s.mu.
func (s *Session) scheduleLocked(delay time.Duration, fn func()) {
	var id string
	id, err := s.timer.ScheduleAfter(delay, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		delete(s.pending, id)
		fn()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
	})
	if err != nil {
		// The in-process timers never fail to schedule; if one ever does,
		// surface it loudly rather than losing the reply.
		slog.Error("Session failed to schedule deferred callback", "error", err, "delay", delay)
		return
	}
	s.pending[id] = struct{}{}
}

// finishExerciseLocked appends the completion and follow-up messages and
// resets the exercise sub-machine. Callers must hold s.mu.
func (s *Session) finishExerciseLocked() {
	s.messages = append(s.messages, newMessage(models.RoleAssistant, s.plan.Completion))
	s.messages = append(s.messages, newMessage(models.RoleAssistant, s.plan.FollowUp))
	s.exercising = false
	s.plan = nil
	s.stepIndex = 0
	s.showSuggestions = true
}

// snapshotLocked builds a Snapshot. Callers must hold s.mu.
func (s *Session) snapshotLocked() Snapshot {
	msgs := make([]models.Message, len(s.messages))
	copy(msgs, s.messages)
	sugs := make([]string, len(s.suggestions))
	copy(sugs, s.suggestions)
	return Snapshot{
		Messages:        msgs,
		IsTyping:        s.isTyping,
		Suggestions:     sugs,
		ShowSuggestions: s.showSuggestions,
		Exercising:      s.exercising,
		StepIndex:       s.stepIndex,
		Severity:        s.severity,
	}
}

// notify hands a snapshot to the rendering surface, outside the lock.
func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}

// newMessage creates an immutable message with a fresh ID.
func newMessage(role models.Role, text string) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
}
