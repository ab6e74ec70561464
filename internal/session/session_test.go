package session

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/serenia-app/serenia/internal/models"
	"github.com/serenia-app/serenia/internal/reply"
)

// fakeTimer collects scheduled callbacks and fires them on demand, so tests
// control exactly when the simulated typing delays elapse.
type fakeTimer struct {
	mu     sync.Mutex
	fns    map[string]func()
	order  []string
	nextID int
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{fns: make(map[string]func())}
}

func (t *fakeTimer) ScheduleAfter(_ time.Duration, fn func()) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := fmt.Sprintf("fake_%d", t.nextID)
	t.fns[id] = fn
	t.order = append(t.order, id)
	return id, nil
}

func (t *fakeTimer) Cancel(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.fns, id)
	return nil
}

func (t *fakeTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fns = make(map[string]func())
	t.order = nil
}

// Fire runs every pending callback in scheduling order.
func (t *fakeTimer) Fire() {
	t.mu.Lock()
	var pending []func()
	for _, id := range t.order {
		if fn, ok := t.fns[id]; ok {
			pending = append(pending, fn)
			delete(t.fns, id)
		}
	}
	t.order = nil
	t.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *fakeTimer) {
	t.Helper()
	ft := newFakeTimer()
	composer := reply.NewComposer(rand.New(rand.NewSource(1)))
	return New(composer, ft, reply.InitialSuggestions(), opts...), ft
}

func TestNewSessionSeedsWelcomeMessage(t *testing.T) {
	s, _ := newTestSession(t)
	snap := s.Snapshot()

	if len(snap.Messages) != 1 {
		t.Fatalf("expected 1 seed message, got %d", len(snap.Messages))
	}
	if snap.Messages[0].Role != models.RoleAssistant {
		t.Errorf("seed message role = %q, want assistant", snap.Messages[0].Role)
	}
	if snap.Messages[0].Text != SeedMessageText {
		t.Errorf("seed message text = %q", snap.Messages[0].Text)
	}
	if !snap.ShowSuggestions || len(snap.Suggestions) != 7 {
		t.Errorf("expected 7 visible suggestions, got %d (visible=%v)", len(snap.Suggestions), snap.ShowSuggestions)
	}
	if snap.Severity != models.SeverityUnset {
		t.Errorf("severity = %q, want unset", snap.Severity)
	}
}

func TestSendMessageEndToEnd(t *testing.T) {
	s, ft := newTestSession(t)

	if err := s.SendMessage("je suis triste"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Messages) != 2 {
		t.Fatalf("expected seed + patient before reply, got %d messages", len(snap.Messages))
	}
	if !snap.IsTyping {
		t.Error("expected typing indicator while reply is pending")
	}
	if snap.ShowSuggestions {
		t.Error("suggestions should be hidden while the assistant is typing")
	}

	ft.Fire()

	snap = s.Snapshot()
	if len(snap.Messages) != 3 {
		t.Fatalf("expected exactly 3 messages after the reply, got %d", len(snap.Messages))
	}
	last := snap.Messages[2]
	if last.Role != models.RoleAssistant || last.Text == "" {
		t.Errorf("expected non-empty assistant reply, got %+v", last)
	}
	if snap.IsTyping {
		t.Error("typing indicator should clear once the reply lands")
	}
	if !snap.ShowSuggestions {
		t.Error("suggestions should be restored after the reply")
	}
	for _, sug := range snap.Suggestions {
		if sug == "Urgence" {
			t.Error("Urgence offered without high severity or overwhelm")
		}
	}
}

func TestSendMessageEmptyInputIsSilentNoOp(t *testing.T) {
	s, ft := newTestSession(t)

	for _, input := range []string{"", "   ", "\n\t"} {
		if err := s.SendMessage(input); err != nil {
			t.Errorf("SendMessage(%q) returned error: %v", input, err)
		}
	}

	ft.Fire()
	snap := s.Snapshot()
	if len(snap.Messages) != 1 {
		t.Errorf("empty input must not change state; got %d messages", len(snap.Messages))
	}
	if snap.IsTyping {
		t.Error("empty input must not start typing")
	}
}

func TestSendMessageOverwhelmedOffersUrgence(t *testing.T) {
	s, ft := newTestSession(t)
	if err := s.SendMessage("je me sens submergé"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ft.Fire()

	var found bool
	for _, sug := range s.Snapshot().Suggestions {
		if sug == "Urgence" {
			found = true
		}
	}
	if !found {
		t.Error("expected Urgence suggestion for an overwhelmed message")
	}
}

func TestPickSuggestionUnknownLabel(t *testing.T) {
	s, _ := newTestSession(t)
	before := s.Snapshot()

	err := s.PickSuggestion("Méditation")
	if err == nil {
		t.Fatal("expected an error for an unknown suggestion label")
	}
	if !errors.Is(err, models.ErrUnknownPlanKey) {
		t.Errorf("expected ErrUnknownPlanKey, got %v", err)
	}

	after := s.Snapshot()
	if len(after.Messages) != len(before.Messages) || after.Exercising {
		t.Error("failed lookup must leave the session untouched")
	}
}

func TestExercisePlayback(t *testing.T) {
	s, ft := newTestSession(t)

	if err := s.PickSuggestion("Respiration"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := s.Snapshot()
	if !snap.Exercising || snap.StepIndex != 0 {
		t.Fatalf("expected exercising with cursor 0, got %+v", snap)
	}
	if got := snap.Messages[len(snap.Messages)-1].Text; got != "Choix: Respiration" {
		t.Errorf("expected choice message, got %q", got)
	}
	if snap.ShowSuggestions {
		t.Error("suggestions should hide during an exercise")
	}

	ft.Fire() // preface lands
	snap = s.Snapshot()
	if len(snap.Messages) != 3 {
		t.Fatalf("expected seed + choice + preface, got %d", len(snap.Messages))
	}

	// Respiration has 4 steps: each continue appends one and moves the cursor.
	for i := 1; i <= 4; i++ {
		if err := s.ContinueExercise(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		snap = s.Snapshot()
		if snap.StepIndex != i {
			t.Fatalf("after continue %d, cursor = %d", i, snap.StepIndex)
		}
		if len(snap.Messages) != 3+i {
			t.Fatalf("after continue %d, expected %d messages, got %d", i, 3+i, len(snap.Messages))
		}
	}

	// Fifth continue completes the exercise.
	if err := s.ContinueExercise(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap = s.Snapshot()
	if snap.Exercising {
		t.Error("expected exercise to end after the final continue")
	}
	if snap.StepIndex != 0 {
		t.Errorf("cursor should reset to 0, got %d", snap.StepIndex)
	}
	if len(snap.Messages) != 9 {
		t.Fatalf("expected completion + follow-up appended, got %d messages", len(snap.Messages))
	}
	if !snap.ShowSuggestions {
		t.Error("suggestions should be restored after the exercise")
	}
	completion := snap.Messages[len(snap.Messages)-2].Text
	followUp := snap.Messages[len(snap.Messages)-1].Text
	if completion != "Bien. Laissez votre souffle revenir naturellement." {
		t.Errorf("unexpected completion message %q", completion)
	}
	if followUp != "Comment vous sentez-vous après cette respiration ?" {
		t.Errorf("unexpected follow-up message %q", followUp)
	}
}

func TestStopExerciseMidPlan(t *testing.T) {
	s, ft := newTestSession(t)
	if err := s.PickSuggestion("Respiration"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ft.Fire()
	if err := s.ContinueExercise(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Snapshot().StepIndex; got != 1 {
		t.Fatalf("cursor = %d, want 1", got)
	}

	if err := s.StopExercise(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := s.Snapshot()
	if snap.Exercising || snap.StepIndex != 0 {
		t.Errorf("expected exercise reset, got exercising=%v cursor=%d", snap.Exercising, snap.StepIndex)
	}
	// seed + choice + preface + step 1 + completion + follow-up
	if len(snap.Messages) != 6 {
		t.Fatalf("expected 6 messages after early stop, got %d", len(snap.Messages))
	}
}

func TestStopExerciseWithoutPlanIsNoOp(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.StopExercise(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got := len(s.Snapshot().Messages); got != 1 {
		t.Errorf("expected no messages appended, got %d", got)
	}
}

func TestStopBeforePrefaceSuppressesPreface(t *testing.T) {
	s, ft := newTestSession(t)
	if err := s.PickSuggestion("Ancrage"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.StopExercise(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ft.Fire()

	snap := s.Snapshot()
	// seed + choice + completion + follow-up, no preface.
	if len(snap.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(snap.Messages))
	}
	for _, m := range snap.Messages {
		if strings.Contains(m.Text, "ancrage 5-4-3-2-1") {
			t.Error("preface must not land after the exercise was stopped")
		}
	}
}

func TestSwitchPlanBeforePrefaceAppendsOnlyNewPreface(t *testing.T) {
	s, ft := newTestSession(t)
	if err := s.PickSuggestion("Respiration"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.PickSuggestion("Ancrage"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ft.Fire()

	snap := s.Snapshot()
	// seed + two choices + a single preface, the replacement plan's.
	if len(snap.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(snap.Messages))
	}
	if got := snap.Messages[3].Text; !strings.Contains(got, "ancrage 5-4-3-2-1") {
		t.Errorf("expected the replacement plan's preface, got %q", got)
	}
	for _, m := range snap.Messages {
		if strings.Contains(m.Text, "respiration en douceur") {
			t.Error("replaced plan's preface must not land")
		}
	}
}

func TestSetSeverity(t *testing.T) {
	s, ft := newTestSession(t)
	if err := s.SetSeverity(models.SeverityHigh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := s.Snapshot()
	if snap.Severity != models.SeverityHigh {
		t.Errorf("severity = %q, want high", snap.Severity)
	}
	if got := snap.Messages[len(snap.Messages)-1].Text; got != "Gravité: Élevée" {
		t.Errorf("expected severity message, got %q", got)
	}

	// High severity makes the next suggestion set include Urgence.
	if err := s.SendMessage("bonjour"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ft.Fire()
	var found bool
	for _, sug := range s.Snapshot().Suggestions {
		if sug == "Urgence" {
			found = true
		}
	}
	if !found {
		t.Error("expected Urgence suggestion under high severity")
	}
}

func TestSetSeverityInvalidLevel(t *testing.T) {
	s, _ := newTestSession(t)
	err := s.SetSeverity(models.Severity("critical"))
	if !errors.Is(err, models.ErrInvalidSeverity) {
		t.Errorf("expected ErrInvalidSeverity, got %v", err)
	}
	if err := s.SetSeverity(models.SeverityUnset); !errors.Is(err, models.ErrInvalidSeverity) {
		t.Errorf("unset is not a recordable choice, got %v", err)
	}
}

func TestCloseSuppressesPendingReply(t *testing.T) {
	s, ft := newTestSession(t)
	if err := s.SendMessage("je suis triste"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()
	ft.Fire()

	snap := s.Snapshot()
	if len(snap.Messages) != 2 {
		t.Errorf("reply landed on a closed session: %d messages", len(snap.Messages))
	}
	if err := s.SendMessage("encore"); !errors.Is(err, models.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if err := s.PickSuggestion("Respiration"); !errors.Is(err, models.ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
}

func TestOnChangeNotifiesRenderingSurface(t *testing.T) {
	var calls int
	var last Snapshot
	s, ft := newTestSession(t, WithOnChange(func(snap Snapshot) {
		calls++
		last = snap
	}))

	if err := s.SendMessage("bonjour"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 notification after send, got %d", calls)
	}
	ft.Fire()
	if calls != 2 {
		t.Fatalf("expected 2 notifications after reply, got %d", calls)
	}
	if len(last.Messages) != 3 || last.IsTyping {
		t.Errorf("unexpected final snapshot: %d messages, typing=%v", len(last.Messages), last.IsTyping)
	}
}
