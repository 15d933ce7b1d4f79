package recipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrNoJSON is returned when a model response holds no JSON object.
	ErrNoJSON = errors.New("response contains no JSON object")
	// ErrInvalidDraft is returned when a decoded draft breaks the schema.
	ErrInvalidDraft = errors.New("invalid recipe draft")
)

// Draft is the recipe as proposed by the language model, before nutrient
// lookup and persistence.
type Draft struct {
	Title            string       `json:"title"`
	Servings         int          `json:"servings"`
	Ingredients      []Ingredient `json:"ingredients"`
	Steps            []string     `json:"steps"`
	Cuisine          string       `json:"cuisine"`
	MealType         string       `json:"meal_type"`
	DietaryTag       string       `json:"dietary_tag"`
	Difficulty       string       `json:"difficulty"`
	TotalTimeMinutes int          `json:"total_time_minutes"`
	Tags             []string     `json:"tags"`
}

// UnmarshalJSON accepts the shapes models actually return: numbers as
// strings, "ingredients_grams" instead of "ingredients", and free-form label
// casing.
func (d *Draft) UnmarshalJSON(data []byte) error {
	type Alias Draft
	aux := &struct {
		Servings         flexNumber       `json:"servings"`
		Ingredients      []flexIngredient `json:"ingredients"`
		IngredientsGrams []flexIngredient `json:"ingredients_grams"`
		TotalTimeMinutes flexNumber       `json:"total_time_minutes"`
		*Alias
	}{
		Alias: (*Alias)(d),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.Servings.set {
		if aux.Servings.v != math.Trunc(aux.Servings.v) {
			return fmt.Errorf("servings must be a whole number, got %v", aux.Servings.v)
		}
		d.Servings = int(aux.Servings.v)
	}
	if aux.TotalTimeMinutes.set {
		d.TotalTimeMinutes = int(math.Round(aux.TotalTimeMinutes.v))
	}

	items := aux.Ingredients
	if len(items) == 0 {
		items = aux.IngredientsGrams
	}
	d.Ingredients = make([]Ingredient, 0, len(items))
	for _, it := range items {
		d.Ingredients = append(d.Ingredients, Ingredient{
			Name:  strings.Join(strings.Fields(it.Name), " "),
			Grams: it.Grams.v,
		})
	}

	d.Title = strings.TrimSpace(d.Title)
	d.Cuisine = CanonicalLabel(d.Cuisine)
	d.MealType = CanonicalLabel(d.MealType)
	d.DietaryTag = CanonicalLabel(d.DietaryTag)
	d.Difficulty = CanonicalLabel(d.Difficulty)
	d.Tags = CanonicalTags(d.Tags)

	steps := d.Steps[:0]
	for _, s := range d.Steps {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	d.Steps = steps

	return nil
}

// DecodeDraft extracts the JSON object from a model response and decodes it.
// Prose or markdown fences around the object are ignored.
func DecodeDraft(response string) (*Draft, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSON
	}

	var d Draft
	if err := json.Unmarshal([]byte(response[start:end+1]), &d); err != nil {
		return nil, fmt.Errorf("failed to decode recipe draft: %w", err)
	}
	return &d, nil
}

// Validate enforces the schema a draft must satisfy before it is stored.
func (d *Draft) Validate() error {
	var problems []string
	if d.Title == "" {
		problems = append(problems, "missing title")
	}
	if d.Servings < MinServings || d.Servings > MaxServings {
		problems = append(problems, fmt.Sprintf("servings %d outside %d-%d", d.Servings, MinServings, MaxServings))
	}
	if len(d.Ingredients) == 0 {
		problems = append(problems, "missing ingredients")
	}
	for _, ing := range d.Ingredients {
		if ing.Name == "" {
			problems = append(problems, "ingredient without a name")
		}
		switch {
		case math.IsNaN(ing.Grams) || math.IsInf(ing.Grams, 0):
			problems = append(problems, fmt.Sprintf("grams for %q not a finite number", ing.Name))
		case ing.Grams < 0:
			problems = append(problems, fmt.Sprintf("negative grams for %q", ing.Name))
		}
	}
	if len(d.Steps) == 0 {
		problems = append(problems, "missing steps")
	}
	if d.TotalTimeMinutes < 0 {
		problems = append(problems, "negative total time")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDraft, strings.Join(problems, "; "))
	}
	return nil
}

type flexIngredient struct {
	Name  string     `json:"name"`
	Grams flexNumber `json:"grams"`
}

// flexNumber decodes a JSON number or a numeric string such as "200",
// "200 g" or "25 minutes".
type flexNumber struct {
	v   float64
	set bool
}

// Longest first so "grams" is not cut to "gram".
var numberUnits = []string{"minutes", "grams", "mins", "gram", "min", "g"}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ToLower(s))
		for _, unit := range numberUnits {
			if strings.HasSuffix(s, unit) {
				s = strings.TrimSpace(strings.TrimSuffix(s, unit))
				break
			}
		}
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("not a number: %q", s)
		}
		n.v, n.set = v, true
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.v, n.set = v, true
	return nil
}
