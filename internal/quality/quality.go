// Package quality scores a recipe draft against the ingredients the user
// asked for.
package quality

import (
	"fmt"
	"math"
	"strings"

	"macrochef/internal/recipe"
)

// Check names.
const (
	CheckRequiredFields = "required_fields"
	CheckServings       = "servings"
	CheckGrams          = "grams"
	CheckUsage          = "ingredient_usage"
	CheckFidelity       = "fidelity"
)

// Weights sum to 100.
const (
	weightRequiredFields = 25
	weightServings       = 15
	weightGrams          = 15
	weightUsage          = 30
	weightFidelity       = 15
)

// Check is the outcome of a single rule.
type Check struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
	Passed bool   `json:"passed"`
}

// Report is the quality score of a draft with one feedback line per failed
// check.
type Report struct {
	Score    int      `json:"score"`
	Feedback []string `json:"feedback"`
	Checks   []Check  `json:"checks"`
}

// Passed reports whether the named check passed.
func (r Report) Passed(name string) bool {
	for _, c := range r.Checks {
		if c.Name == name {
			return c.Passed
		}
	}
	return false
}

// pantry staples may appear in a draft without being requested.
var pantry = map[string]bool{
	"salt":            true,
	"pepper":          true,
	"water":           true,
	"black pepper":    true,
	"sea salt":        true,
	"kosher salt":     true,
	"salt and pepper": true,
}

// Score runs every check against d. requested is the parsed user input.
func Score(d *recipe.Draft, requested []string) Report {
	r := Report{Feedback: []string{}}
	add := func(name string, weight int, passed bool, feedback string) {
		r.Checks = append(r.Checks, Check{Name: name, Weight: weight, Passed: passed})
		if passed {
			r.Score += weight
		} else {
			r.Feedback = append(r.Feedback, feedback)
		}
	}

	var missing []string
	if d.Title == "" {
		missing = append(missing, "title")
	}
	if len(d.Ingredients) == 0 {
		missing = append(missing, "ingredients")
	}
	if len(d.Steps) == 0 {
		missing = append(missing, "steps")
	}
	add(CheckRequiredFields, weightRequiredFields, len(missing) == 0,
		"Missing required fields: "+strings.Join(missing, ", "))

	add(CheckServings, weightServings,
		d.Servings >= recipe.MinServings && d.Servings <= recipe.MaxServings,
		fmt.Sprintf("Servings should be a whole number between %d and %d, got %d", recipe.MinServings, recipe.MaxServings, d.Servings))

	var noGrams []string
	for _, ing := range d.Ingredients {
		if !(ing.Grams > 0) || math.IsInf(ing.Grams, 0) {
			noGrams = append(noGrams, ing.Name)
		}
	}
	add(CheckGrams, weightGrams, len(d.Ingredients) > 0 && len(noGrams) == 0,
		gramsFeedback(noGrams))

	stepText := words(strings.Join(d.Steps, " "))
	var unused []string
	for _, name := range requested {
		if !mentions(stepText, name) {
			unused = append(unused, name)
		}
	}
	add(CheckUsage, weightUsage, len(unused) == 0,
		"Ingredients not used in the steps: "+strings.Join(unused, ", "))

	var extra []string
	for _, ing := range d.Ingredients {
		if pantry[strings.Join(words(ing.Name), " ")] {
			continue
		}
		if !requestedAny(ing.Name, requested) {
			extra = append(extra, ing.Name)
		}
	}
	add(CheckFidelity, weightFidelity, len(extra) == 0,
		"Ingredients added that were not requested: "+strings.Join(extra, ", "))

	return r
}

// requestedAny reports whether name matches one requested phrase, either
// way round: "garlic" requested covers "garlic cloves" and "chicken breast"
// requested covers "chicken".
func requestedAny(name string, requested []string) bool {
	nw := words(name)
	for _, req := range requested {
		if mentions(nw, req) || mentions(words(req), name) {
			return true
		}
	}
	return false
}

func gramsFeedback(names []string) string {
	if len(names) == 0 {
		return "Recipe lists no ingredient quantities"
	}
	return "Ingredients without a positive gram quantity: " + strings.Join(names, ", ")
}
