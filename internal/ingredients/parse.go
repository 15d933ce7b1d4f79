// Package ingredients turns the free-text ingredient field into a clean list.
package ingredients

import "strings"

// Parse splits a comma separated ingredient list. Each entry is trimmed and
// has inner whitespace collapsed; empty entries and case-insensitive
// duplicates are dropped. The first spelling of a duplicate is kept and input
// order is preserved. Newlines and semicolons are accepted as separators too.
func Parse(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == ';'
	})

	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		name := strings.Join(strings.Fields(f), " ")
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
