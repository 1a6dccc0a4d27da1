// Package lookup holds the static allergen/additive and pictogram tables.
// The tables are loaded once at startup and read-only afterwards.
package lookup

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Tables maps allergen/additive codes and pictogram identifiers to their
// human readable descriptions.
type Tables struct {
	AllergensAndAdditives map[string]string `json:"allergens_and_additives"`
	Pictograms            map[string]string `json:"pictograms"`
}

// Empty returns tables with no entries. Lookups degrade to the raw code.
func Empty() *Tables {
	return &Tables{
		AllergensAndAdditives: map[string]string{},
		Pictograms:            map[string]string{},
	}
}

// Load reads the lookup table document. A missing or corrupt file yields
// empty tables and an error the caller may log; lookups stay usable.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Empty(), fmt.Errorf("reading lookup tables: %w", err)
	}

	tables := Empty()
	if err := json.Unmarshal(data, tables); err != nil {
		return Empty(), fmt.Errorf("parsing lookup tables: %w", err)
	}
	if tables.AllergensAndAdditives == nil {
		tables.AllergensAndAdditives = map[string]string{}
	}
	if tables.Pictograms == nil {
		tables.Pictograms = map[string]string{}
	}
	return tables, nil
}

// AllergenText returns the description for an allergen/additive code, or
// fallback when the code is unknown.
func (t *Tables) AllergenText(code, fallback string) string {
	if text, ok := t.AllergensAndAdditives[strings.ToLower(code)]; ok {
		return text
	}
	return fallback
}

// KnownAllergen reports whether the code exists in the table.
func (t *Tables) KnownAllergen(code string) bool {
	_, ok := t.AllergensAndAdditives[strings.ToLower(code)]
	return ok
}

// IconText returns the description for a pictogram identifier, or "" when
// the identifier is unknown.
func (t *Tables) IconText(iconID string) string {
	return t.Pictograms[iconID]
}

var codeSplit = regexp.MustCompile(`^(\d+)([a-zA-Z]*)`)

// SortedAllergenCodes returns all allergen codes ordered by their numeric
// part first and letter suffix second ("2", "21", "21a", "21b", "30").
func (t *Tables) SortedAllergenCodes() []string {
	codes := make([]string, 0, len(t.AllergensAndAdditives))
	for code := range t.AllergensAndAdditives {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		ni, si := splitCode(codes[i])
		nj, sj := splitCode(codes[j])
		if ni != nj {
			return ni < nj
		}
		if si != sj {
			return si < sj
		}
		return codes[i] < codes[j]
	})
	return codes
}

func splitCode(code string) (int, string) {
	m := codeSplit.FindStringSubmatch(code)
	if m == nil {
		return 999, strings.ToLower(code)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 999, strings.ToLower(code)
	}
	return n, strings.ToLower(m[2])
}
