// Package plans holds the static catalog of guided action plans.
//
// The catalog is total over a closed set of eight suggestion labels; looking
// up any other key is a caller bug and is reported as an explicit error
// rather than silently falling back to a default plan.
package plans

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/serenia-app/serenia/internal/models"
)

// Suggestion labels with a guided plan attached.
const (
	KeyRespiration   = "Respiration"
	KeyMarche        = "Marche légère"
	KeyAncrage       = "Ancrage"
	KeyEcriture      = "Écriture guidée"
	KeyPlaylist      = "Playlist apaisante"
	KeyAppelerProche = "Appeler un proche"
	KeyPrendreRDV    = "Prendre RDV"
	KeyUrgence       = "Urgence"
)

var catalog = map[string]models.ActionPlan{
	KeyRespiration: {
		Preface: "On va pratiquer une respiration en douceur, ensemble.",
		Steps: []models.ActionStep{
			{Text: "Installez-vous confortablement, épaules relâchées.", Duration: 1500 * time.Millisecond},
			{Text: "Inspiration 5 secondes…", Duration: 5 * time.Second},
			{Text: "Expiration 5 secondes…", Duration: 5 * time.Second},
			{Text: "Encore 3 cycles: inspire 5s, expire 5s.", Duration: 15 * time.Second},
		},
		Completion: "Bien. Laissez votre souffle revenir naturellement.",
		FollowUp:   "Comment vous sentez-vous après cette respiration ?",
	},
	KeyMarche: {
		Preface: "Je vous propose une marche légère, ici et maintenant.",
		Steps: []models.ActionStep{
			{Text: "Levez-vous si possible, portez attention à vos appuis.", Duration: 2 * time.Second},
			{Text: "Marchez doucement pendant 2 minutes, rythme tranquille.", Duration: 2 * time.Minute},
			{Text: "Notez votre respiration et ce que vous percevez autour de vous.", Duration: 4 * time.Second},
		},
		Completion: "Vous pouvez vous arrêter et revenir à votre place.",
		FollowUp:   "Comment est votre état après cette marche ?",
	},
	KeyAncrage: {
		Preface: "Allons vers un exercice d’ancrage 5-4-3-2-1.",
		Steps: []models.ActionStep{
			{Text: "5 choses que vous voyez.", Duration: 6 * time.Second},
			{Text: "4 choses que vous pouvez toucher.", Duration: 6 * time.Second},
			{Text: "3 sons que vous entendez.", Duration: 6 * time.Second},
			{Text: "2 odeurs que vous percevez.", Duration: 6 * time.Second},
			{Text: "1 goût ou sensation interne.", Duration: 6 * time.Second},
		},
		Completion: "Restez encore un instant, respirez calmement.",
		FollowUp:   "Qu’est-ce qui a changé dans votre ressenti ?",
	},
	KeyEcriture: {
		Preface: "Prenons un moment d’écriture simple.",
		Steps: []models.ActionStep{
			{Text: "Pendant 5 minutes, répondez: «Qu’est-ce qui me pèse le plus aujourd’hui ?»", Duration: 5 * time.Minute},
			{Text: "Ensuite: «Quelle petite action accessible pourrais-je tenter ?»", Duration: 2 * time.Minute},
		},
		Completion: "Relisez brièvement sans jugement.",
		FollowUp:   "Que retenez-vous de votre écriture ?",
	},
	KeyPlaylist: {
		Preface: "Musique apaisante: choisissez un titre calme ou une playlist douce.",
		Steps: []models.ActionStep{
			{Text: "Écoutez 3 minutes, respirez doucement, fermez les yeux si vous voulez.", Duration: 3 * time.Minute},
		},
		Completion: "Coupez le son progressivement.",
		FollowUp:   "Comment était ce moment musical pour vous ?",
	},
	KeyAppelerProche: {
		Preface: "Se relier peut aider. Choisissez une personne ressource.",
		Steps: []models.ActionStep{
			{Text: "Envoyez un message ou appelez 2-3 minutes pour donner des nouvelles.", Duration: 3 * time.Minute},
		},
		Completion: "Revenez à vous, notez ce que cela a changé.",
		FollowUp:   "Comment vous sentez-vous après ce contact ?",
	},
	KeyPrendreRDV: {
		Preface: "Planifions un prochain rendez-vous si vous le souhaitez.",
		Steps: []models.ActionStep{
			{Text: "Ouvrez votre agenda ou un lien de prise de RDV.", Duration: 4 * time.Second},
			{Text: "Choisissez un créneau. Prenez 2 minutes.", Duration: 2 * time.Minute},
		},
		Completion: "Validez le créneau et notez-le.",
		FollowUp:   "Souhaitez-vous recevoir un rappel ?",
	},
	KeyUrgence: {
		Preface: "Si vous vivez une situation de gravité élevée, priorisons votre sécurité.",
		Steps: []models.ActionStep{
			{Text: "Appelez un service d’urgence ou un contact ressource immédiatement.", Duration: time.Minute},
		},
		Completion: "Restez en ligne ici si besoin, vous n’êtes pas seul·e.",
		FollowUp:   "Souhaitez-vous que je propose d’autres options de soutien ?",
	},
}

// keyOrder is the stable listing order for Keys.
var keyOrder = []string{
	KeyRespiration,
	KeyMarche,
	KeyAncrage,
	KeyEcriture,
	KeyPlaylist,
	KeyAppelerProche,
	KeyPrendreRDV,
	KeyUrgence,
}

// Get looks up the guided plan for a suggestion label. The returned plan is
// a copy: callers may not mutate the catalog through it. Keys outside the
// closed set yield an error wrapping models.ErrUnknownPlanKey.
func Get(key string) (models.ActionPlan, error) {
	plan, ok := catalog[key]
	if !ok {
		slog.Error("Action plan lookup miss", "key", key)
		return models.ActionPlan{}, fmt.Errorf("%w: %q", models.ErrUnknownPlanKey, key)
	}
	out := plan
	out.Steps = make([]models.ActionStep, len(plan.Steps))
	copy(out.Steps, plan.Steps)
	return out, nil
}

// Keys returns the closed set of plan keys in a stable order.
func Keys() []string {
	out := make([]string, len(keyOrder))
	copy(out, keyOrder)
	return out
}
