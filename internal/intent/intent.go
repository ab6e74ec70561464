// Package intent derives coarse signals from free-text patient input.
//
// Detection is keyword matching over four fixed French word families. It is
// deliberately shallow: there is no scoring, no language model, just the
// substring families the reply composer keys its phrases on.
package intent

import (
	"regexp"
	"strings"
)

// Keyword families. Matching is done on the lowercased input.
var (
	negativeRe    = regexp.MustCompile(`angoiss|anxious|stress|triste|déprime|peur|colère|fatigue|épuisé|mal`)
	overwhelmedRe = regexp.MustCompile(`envahi|trop|submergé|écrasé|crise`)
	physicalRe    = regexp.MustCompile(`respire|respiration|coeur|tête|douleur`)
	socialRe      = regexp.MustCompile(`proche|ami|famille|seul|isolement`)
)

// Intent holds the non-exclusive signals detected in a patient message.
// All flags false is a valid result (no family matched).
type Intent struct {
	Negative    bool `json:"negative"`
	Overwhelmed bool `json:"overwhelmed"`
	Physical    bool `json:"physical"`
	Social      bool `json:"social"`
}

// Primary names the dominant signal in fixed priority order:
// overwhelmed > negative > physical > social. It returns "none" when no
// family matched.
func (i Intent) Primary() string {
	switch {
	case i.Overwhelmed:
		return "overwhelmed"
	case i.Negative:
		return "negative"
	case i.Physical:
		return "physical"
	case i.Social:
		return "social"
	default:
		return "none"
	}
}

// Detect matches text against the four keyword families, case-insensitively.
// Pure and stateless; multiple flags may be set at once.
func Detect(text string) Intent {
	t := strings.ToLower(text)
	return Intent{
		Negative:    negativeRe.MatchString(t),
		Overwhelmed: overwhelmedRe.MatchString(t),
		Physical:    physicalRe.MatchString(t),
		Social:      socialRe.MatchString(t),
	}
}
