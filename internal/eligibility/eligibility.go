// Package eligibility computes per-user safety and preference verdicts for
// single meals. Evaluation is pure: no I/O, no mutation of its inputs.
package eligibility

import (
	"sort"
	"strings"

	"mensahub/internal/lookup"
	"mensahub/internal/menu"
	"mensahub/internal/user"
)

// Verdict is the derived result for one meal/user pair.
type Verdict struct {
	Safe              bool
	MatchesPref       bool
	AllergyViolations []string
	PrefMatches       []string
	PrefViolations    []string
}

// Display names for preference keys in violation lists.
var prefDisplay = map[string]string{
	user.PrefVegan:      "Vegan",
	user.PrefVegetarian: "Vegetarian",
	user.PrefLowCO2:     "Low CO2",
	user.PrefLowH2O:     "Low H2O",
}

// Qualifying phrases in the upstream sustainability text. These are content
// heuristics tied to the source's German wording, not structural signals;
// they break if the upstream copy changes.
const (
	co2PhraseA = "wesentlich"
	co2PhraseB = "leicht"
	h2oPhrase  = "unter dem durchschnitt"
)

// Evaluator evaluates meals against user profiles.
type Evaluator struct {
	tables *lookup.Tables
}

// New returns an Evaluator using the given lookup tables for allergen
// descriptions.
func New(tables *lookup.Tables) *Evaluator {
	return &Evaluator{tables: tables}
}

// Evaluate checks whether the meal is safe for the user and whether it
// matches any requested dietary/sustainability preference.
func (e *Evaluator) Evaluate(m *menu.Meal, p *user.Profile) Verdict {
	verdict := Verdict{Safe: true}

	mealCodes := make(map[string]string, len(m.Allergens))
	for _, a := range m.Allergens {
		mealCodes[strings.ToLower(a.Code)] = a.Name
	}
	for _, code := range p.AllergyCodes {
		code = strings.ToLower(code)
		name, hit := mealCodes[code]
		if !hit {
			continue
		}
		verdict.Safe = false
		// The lookup table wins; the tooltip's own label covers unknown
		// codes.
		if name == "" {
			name = "Unknown"
		}
		text := e.tables.AllergenText(code, name)
		verdict.AllergyViolations = append(verdict.AllergyViolations,
			strings.ToUpper(code)+": "+text)
	}
	sortUnique(&verdict.AllergyViolations)

	if len(p.DietPreferences) == 0 {
		return verdict
	}

	satisfied := e.satisfiedPrefs(m)
	for _, pref := range p.DietPreferences {
		if satisfied[pref] {
			verdict.MatchesPref = true
			verdict.PrefMatches = append(verdict.PrefMatches, pref)
		} else {
			display := prefDisplay[pref]
			if display == "" {
				display = pref
			}
			verdict.PrefViolations = append(verdict.PrefViolations, display)
		}
	}
	sortUnique(&verdict.PrefMatches)
	sortUnique(&verdict.PrefViolations)
	return verdict
}

// satisfiedPrefs collects every preference key the meal satisfies, from
// dietary icons and from the sustainability metric text. A vegan tag also
// satisfies vegetarian; the implication is one-way.
func (e *Evaluator) satisfiedPrefs(m *menu.Meal) map[string]bool {
	satisfied := map[string]bool{}
	for _, icon := range m.DietaryIcons {
		switch strings.ToLower(icon.Type) {
		case user.PrefVegan:
			satisfied[user.PrefVegan] = true
			satisfied[user.PrefVegetarian] = true
		case user.PrefVegetarian:
			satisfied[user.PrefVegetarian] = true
		case user.PrefLowCO2:
			satisfied[user.PrefLowCO2] = true
		case user.PrefLowH2O:
			satisfied[user.PrefLowH2O] = true
		}
	}

	text := m.SustainabilityText()
	if strings.Contains(text, co2PhraseA) || strings.Contains(text, co2PhraseB) {
		satisfied[user.PrefLowCO2] = true
	}
	if strings.Contains(text, h2oPhrase) {
		satisfied[user.PrefLowH2O] = true
	}
	return satisfied
}

func sortUnique(items *[]string) {
	if len(*items) < 2 {
		return
	}
	sort.Strings(*items)
	out := (*items)[:1]
	for _, item := range (*items)[1:] {
		if item != out[len(out)-1] {
			out = append(out, item)
		}
	}
	*items = out
}
