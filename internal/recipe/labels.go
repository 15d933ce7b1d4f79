package recipe

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CanonicalLabel normalizes a classification label (cuisine, meal type,
// dietary tag, difficulty) so that "vegetarian", " VEGETARIAN " and
// "Vegetarian" are stored and filtered as the same value.
func CanonicalLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	// Casers keep state, so one is built per call.
	return cases.Title(language.English).String(s)
}

// CanonicalTags canonicalizes tags and drops empties and duplicates.
func CanonicalTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.Join(strings.Fields(t), " "))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
