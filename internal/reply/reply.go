// Package reply composes the assistant's templated replies and derives the
// next suggestion set.
package reply

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/serenia-app/serenia/internal/intent"
	"github.com/serenia-app/serenia/internal/models"
	"github.com/serenia-app/serenia/internal/plans"
)

// BackRefLimit is the maximum number of runes quoted back from the
// patient's previous message.
const BackRefLimit = 80

var openers = []string{
	"Merci pour votre partage.",
	"Je vous entends.",
	"C’est précieux ce que vous dites.",
	"Merci de me confier cela.",
}

var clarifiers = []string{
	"Qu’est-ce qui pèse le plus en ce moment ?",
	"Qu’aimeriez-vous voir évoluer dès aujourd’hui ?",
	"Qu’est-ce qui vous aiderait à vous sentir un peu mieux ?",
	"Quelle serait une petite étape accessible maintenant ?",
}

var actionPrompts = []string{
	"Souhaitez-vous essayer une action douce pour vous aider ?",
	"On peut tester un petit exercice si vous voulez.",
	"Partons sur une proposition concrète, d’accord ?",
	"On avance pas à pas, je vous propose une option utile.",
}

// moodPhrases acknowledges the declared severity. Unset severity adds
// nothing to the reply.
var moodPhrases = map[models.Severity]string{
	models.SeverityHigh:     "Je prends au sérieux ce que vous vivez.",
	models.SeverityModerate: "On va avancer tranquillement, ensemble.",
	models.SeverityLow:      "Merci de ce point, commençons par une petite action accessible.",
	models.SeverityUnset:    "",
}

// bodyPhrases is keyed by the primary intent signal.
var bodyPhrases = map[string]string{
	"overwhelmed": "On va fractionner et simplifier.",
	"negative":    "On accueille ces ressentis sans jugement.",
	"physical":    "On peut commencer par réguler le corps.",
	"social":      "Se relier à quelqu’un peut aider.",
	"none":        "Merci, je suis avec vous.",
}

// baseSuggestions are always offered after a reply.
var baseSuggestions = []string{
	plans.KeyEcriture,
	plans.KeyRespiration,
	plans.KeyMarche,
	plans.KeyPlaylist,
	plans.KeyAncrage,
	plans.KeyAppelerProche,
}

// initialSuggestions are shown when a session starts, before any reply.
var initialSuggestions = []string{
	plans.KeyEcriture,
	plans.KeyRespiration,
	plans.KeyMarche,
	plans.KeyPlaylist,
	plans.KeyAppelerProche,
	plans.KeyAncrage,
	plans.KeyPrendreRDV,
}

// Composer builds assistant replies from templates. The random source is
// injected so tests can seed it for reproducible output; production wiring
// seeds it from real entropy.
type Composer struct {
	rng *rand.Rand
}

// NewComposer creates a composer drawing templates from rng.
func NewComposer(rng *rand.Rand) *Composer {
	return &Composer{rng: rng}
}

// Compose builds the assistant reply for a patient turn. history is the
// message list before the current turn was appended; the most recent patient
// message in it, when present, is quoted back truncated to BackRefLimit
// runes.
func (c *Composer) Compose(history []models.Message, userText string, severity models.Severity) models.Reply {
	it := intent.Detect(userText)
	slog.Debug("Composing reply", "severity", severity, "primary_intent", it.Primary())

	parts := make([]string, 0, 6)
	parts = append(parts, c.pick(openers))
	if ref := lastPatientText(history); ref != "" {
		parts = append(parts, fmt.Sprintf("Vous évoquiez: “%s”.", truncate(ref, BackRefLimit)))
	}
	if mood := moodPhrases[severity]; mood != "" {
		parts = append(parts, mood)
	}
	parts = append(parts, bodyPhrases[it.Primary()])
	parts = append(parts, c.pick(clarifiers))
	parts = append(parts, c.pick(actionPrompts))

	return models.Reply{
		Text:        strings.Join(parts, " "),
		Suggestions: BuildSuggestions(it, severity),
	}
}

// BuildSuggestions derives the next suggestion set: the base labels, then
// "Urgence" when severity is high or the patient sounds overwhelmed, then
// always "Prendre RDV" last. The base list and the conditional additions are
// disjoint today; the appendUnique guard keeps the list duplicate-free if
// that ever changes.
func BuildSuggestions(it intent.Intent, severity models.Severity) []string {
	result := make([]string, 0, len(baseSuggestions)+2)
	for _, s := range baseSuggestions {
		result = appendUnique(result, s)
	}
	if severity == models.SeverityHigh || it.Overwhelmed {
		result = appendUnique(result, plans.KeyUrgence)
	}
	return appendUnique(result, plans.KeyPrendreRDV)
}

// InitialSuggestions returns the suggestion labels a fresh session shows.
func InitialSuggestions() []string {
	out := make([]string, len(initialSuggestions))
	copy(out, initialSuggestions)
	return out
}

func (c *Composer) pick(pool []string) string {
	return pool[c.rng.Intn(len(pool))]
}

// lastPatientText returns the text of the most recent patient message, or
// the empty string when the patient has not spoken yet.
func lastPatientText(history []models.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RolePatient {
			return history[i].Text
		}
	}
	return ""
}

// truncate cuts s to at most limit runes, appending an ellipsis when cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

// appendUnique appends label unless it is already present.
func appendUnique(list []string, label string) []string {
	for _, s := range list {
		if s == label {
			return list
		}
	}
	return append(list, label)
}
