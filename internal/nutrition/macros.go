package nutrition

import (
	"errors"
	"fmt"
)

// ErrInvalidServings is returned when a serving count below one is used.
var ErrInvalidServings = errors.New("servings must be at least 1")

// Macros is a macro-nutrient vector. Grams for protein, carbs, fat and fiber,
// kilocalories for Calories.
type Macros struct {
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Calories float64 `json:"calories"`
}

// Add returns the component-wise sum of m and o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
		Fiber:    m.Fiber + o.Fiber,
		Calories: m.Calories + o.Calories,
	}
}

// Mul returns m with every component multiplied by f.
func (m Macros) Mul(f float64) Macros {
	return Macros{
		Protein:  m.Protein * f,
		Carbs:    m.Carbs * f,
		Fat:      m.Fat * f,
		Fiber:    m.Fiber * f,
		Calories: m.Calories * f,
	}
}

// ForGrams scales a per-100g vector to the given quantity.
func (m Macros) ForGrams(grams float64) Macros {
	return m.Mul(grams / 100)
}

// PerServing divides a recipe total by the serving count.
func (m Macros) PerServing(servings int) (Macros, error) {
	if servings < 1 {
		return Macros{}, fmt.Errorf("%w: got %d", ErrInvalidServings, servings)
	}
	return m.Mul(1 / float64(servings)), nil
}
