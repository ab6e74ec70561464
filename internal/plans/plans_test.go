package plans

import (
	"errors"
	"reflect"
	"testing"

	"github.com/serenia-app/serenia/internal/models"
)

func TestGetCoversAllKnownKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != 8 {
		t.Fatalf("expected 8 plan keys, got %d", len(keys))
	}
	for _, k := range keys {
		plan, err := Get(k)
		if err != nil {
			t.Fatalf("Get(%q) returned error: %v", k, err)
		}
		if plan.Preface == "" || plan.Completion == "" || plan.FollowUp == "" {
			t.Errorf("plan %q has empty preface/completion/follow-up", k)
		}
		if len(plan.Steps) == 0 {
			t.Errorf("plan %q has no steps", k)
		}
		for i, s := range plan.Steps {
			if s.Text == "" {
				t.Errorf("plan %q step %d has empty text", k, i)
			}
		}
	}
}

func TestGetIsIdempotent(t *testing.T) {
	first, err := Get(KeyRespiration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Get(KeyRespiration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("expected structurally identical plans on repeated lookups")
	}
}

func TestGetReturnsACopy(t *testing.T) {
	plan, err := Get(KeyAncrage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plan.Steps[0].Text = "mutated"

	again, err := Get(KeyAncrage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Steps[0].Text == "mutated" {
		t.Error("mutating a returned plan leaked into the catalog")
	}
}

func TestGetUnknownKey(t *testing.T) {
	_, err := Get("Méditation")
	if err == nil {
		t.Fatal("expected an error for an unknown plan key")
	}
	if !errors.Is(err, models.ErrUnknownPlanKey) {
		t.Errorf("expected ErrUnknownPlanKey, got %v", err)
	}
}

func TestRespirationStepCount(t *testing.T) {
	plan, err := Get(KeyRespiration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Steps) != 4 {
		t.Errorf("expected 4 respiration steps, got %d", len(plan.Steps))
	}
}
