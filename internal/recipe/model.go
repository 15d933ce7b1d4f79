package recipe

import (
	"errors"
	"strings"
	"time"

	"macrochef/internal/nutrition"
)

var (
	// ErrNotFound is returned by mutations that target a missing recipe.
	ErrNotFound = errors.New("recipe not found")
	// ErrInvalidRating is returned for ratings outside 0-5.
	ErrInvalidRating = errors.New("rating must be between 0 and 5")
)

const (
	MaxRating    = 5
	MinServings  = 1
	MaxServings  = 12
	DefaultLimit = 50
	SearchLimit  = 20
	maxLimit     = 200
)

// Ingredient is a single ingredient with its quantity in grams.
type Ingredient struct {
	Name  string  `json:"name"`
	Grams float64 `json:"grams"`
}

// Recipe represents a generated recipe as stored in the database. Only the
// macro totals are persisted; per-serving values are derived from them.
type Recipe struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Servings         int              `json:"servings"`
	Ingredients      []Ingredient     `json:"ingredients"`
	Steps            []string         `json:"steps"`
	Macros           nutrition.Macros `json:"macros"`
	Partial          bool             `json:"partial"`
	Cuisine          string           `json:"cuisine"`
	MealType         string           `json:"meal_type"`
	DietaryTag       string           `json:"dietary_tag"`
	Difficulty       string           `json:"difficulty"`
	TotalTimeMinutes int              `json:"total_time_minutes"`
	Tags             []string         `json:"tags"`
	QualityScore     int              `json:"quality_score"`
	Feedback         []string         `json:"feedback"`
	Rating           int              `json:"rating"`
	Favorite         bool             `json:"favorite"`
	CreatedAt        time.Time        `json:"created_at"`
}

// PerServing returns the macro totals divided by the serving count. A recipe
// with an invalid serving count yields the zero vector.
func (r *Recipe) PerServing() nutrition.Macros {
	m, err := r.Macros.PerServing(r.Servings)
	if err != nil {
		return nutrition.Macros{}
	}
	return m
}

// TimeBucket returns the bucket the recipe's total time falls in.
func (r *Recipe) TimeBucket() TimeBucket {
	return BucketFor(r.TotalTimeMinutes)
}

// Sort selects the ordering of list queries.
type Sort string

const (
	SortRecent Sort = "recent"
	SortRating Sort = "rating"
)

// ParseSort maps a query value to a Sort, defaulting to SortRecent.
func ParseSort(s string) Sort {
	if Sort(strings.ToLower(strings.TrimSpace(s))) == SortRating {
		return SortRating
	}
	return SortRecent
}

// TimeBucket classifies total cooking time.
type TimeBucket string

const (
	TimeAny    TimeBucket = ""
	TimeQuick  TimeBucket = "quick"
	TimeMedium TimeBucket = "medium"
	TimeLong   TimeBucket = "long"
)

// BucketFor classifies minutes: quick up to 30, medium up to 60, long above.
// Unknown (zero) time is treated as quick.
func BucketFor(minutes int) TimeBucket {
	switch {
	case minutes <= 30:
		return TimeQuick
	case minutes <= 60:
		return TimeMedium
	default:
		return TimeLong
	}
}

// ParseTimeBucket maps a query value to a bucket. Unknown values mean any.
func ParseTimeBucket(s string) TimeBucket {
	switch b := TimeBucket(strings.ToLower(strings.TrimSpace(s))); b {
	case TimeQuick, TimeMedium, TimeLong:
		return b
	default:
		return TimeAny
	}
}

// bounds returns the inclusive minute range for the bucket. hi < 0 means
// unbounded.
func (b TimeBucket) bounds() (lo, hi int, ok bool) {
	switch b {
	case TimeQuick:
		return 0, 30, true
	case TimeMedium:
		return 31, 60, true
	case TimeLong:
		return 61, -1, true
	default:
		return 0, 0, false
	}
}

// Filter narrows a listing. Empty fields are ignored.
type Filter struct {
	DietaryTag    string
	Cuisine       string
	MealType      string
	Difficulty    string
	Time          TimeBucket
	Query         string
	FavoritesOnly bool
	Sort          Sort
	Limit         int
	Offset        int
}

// Page returns the effective limit and offset of f.
func (f Filter) Page() (limit, offset int) {
	return f.limit(), f.offset()
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > maxLimit:
		return maxLimit
	default:
		return f.Limit
	}
}

func (f Filter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}

// Attempt is one entry of the generation history.
type Attempt struct {
	ID        string    `json:"id"`
	Input     string    `json:"input"`
	RecipeID  string    `json:"recipe_id,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats summarizes the stored recipes and generation history.
type Stats struct {
	TotalRecipes    int     `json:"total_recipes"`
	FavoriteRecipes int     `json:"favorite_recipes"`
	AverageRating   float64 `json:"average_rating"`
	TotalAttempts   int     `json:"total_attempts"`
	SuccessRate     float64 `json:"success_rate"`
}
