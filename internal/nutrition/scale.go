// Package nutrition scales per-100g nutrient densities into recipe totals.
package nutrition

// NoMatchNote is attached to rows whose ingredient had no nutrient data.
const NoMatchNote = "No USDA match"

// Sample is one ingredient of a recipe together with the nutrient density
// found for it. Matched is false when the lookup produced nothing usable.
type Sample struct {
	Name    string
	Grams   float64
	Per100g Macros
	Matched bool
}

// Row is the scaled contribution of a single ingredient.
type Row struct {
	Name    string  `json:"name"`
	Grams   float64 `json:"grams"`
	Macros  Macros  `json:"macros"`
	Matched bool    `json:"matched"`
	Note    string  `json:"note,omitempty"`
}

// Breakdown is the result of scaling a whole ingredient list.
type Breakdown struct {
	Rows    []Row  `json:"rows"`
	Total   Macros `json:"total"`
	Partial bool   `json:"partial"`
}

// Scale converts every sample to its gram quantity and sums the results.
// Unmatched samples contribute zero and mark the breakdown partial. Values are
// not rounded.
func Scale(samples []Sample) Breakdown {
	b := Breakdown{Rows: make([]Row, 0, len(samples))}
	for _, s := range samples {
		row := Row{Name: s.Name, Grams: s.Grams, Matched: s.Matched}
		if s.Matched {
			row.Macros = s.Per100g.ForGrams(s.Grams)
		} else {
			row.Note = NoMatchNote
			b.Partial = true
		}
		b.Total = b.Total.Add(row.Macros)
		b.Rows = append(b.Rows, row)
	}
	return b
}

// MatchedCount reports how many rows had nutrient data.
func (b Breakdown) MatchedCount() int {
	n := 0
	for _, r := range b.Rows {
		if r.Matched {
			n++
		}
	}
	return n
}
