// Package chef turns an ingredient list into a stored recipe with macros.
package chef

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"macrochef/internal/ingredients"
	"macrochef/internal/logger"
	"macrochef/internal/nutrition"
	"macrochef/internal/quality"
	"macrochef/internal/recipe"
)

var (
	// ErrNoIngredients is returned before any network call when the input
	// holds no ingredients.
	ErrNoIngredients = errors.New("please enter at least one ingredient")
	// ErrGeneration covers model failures and unusable model output.
	ErrGeneration = errors.New("recipe generation failed")
	// ErrPersistence is returned when the recipe could not be stored.
	ErrPersistence = errors.New("failed to store recipe")
)

// Generator produces text from a system and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// NutrientLookup returns per-100g macros for an ingredient name.
type NutrientLookup interface {
	Per100g(ctx context.Context, name string) (nutrition.Macros, bool, error)
}

// Store is the persistence the service needs.
type Store interface {
	Save(ctx context.Context, r *recipe.Recipe) error
	LogGeneration(ctx context.Context, a *recipe.Attempt) error
}

// Request is a generation request as submitted by the user.
type Request struct {
	Ingredients       string `json:"ingredients" form:"ingredients"`
	DietaryPreference string `json:"dietary_preference" form:"dietary_preference"`
	Cuisine           string `json:"cuisine" form:"cuisine"`
	MealType          string `json:"meal_type" form:"meal_type"`
}

// Result is a stored recipe together with its per-ingredient breakdown and
// quality report.
type Result struct {
	Recipe     *recipe.Recipe      `json:"recipe"`
	PerServing nutrition.Macros    `json:"per_serving"`
	Breakdown  nutrition.Breakdown `json:"breakdown"`
	Report     quality.Report      `json:"quality"`
}

// Service orchestrates a generation.
type Service struct {
	gen    Generator
	lookup NutrientLookup
	store  Store
}

// NewService creates a new Service.
func NewService(gen Generator, lookup NutrientLookup, store Store) *Service {
	return &Service{gen: gen, lookup: lookup, store: store}
}

// Generate asks the model for a recipe, computes its macros and stores it.
// Every attempt that reaches the model is recorded in the history.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	items := ingredients.Parse(req.Ingredients)
	if len(items) == 0 {
		return nil, ErrNoIngredients
	}
	input := strings.Join(items, ", ")

	system, prompt := BuildPrompt(items, req)
	text, err := s.gen.Generate(ctx, system, prompt)
	if err != nil {
		s.logAttempt(ctx, input, "", err)
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	draft, err := recipe.DecodeDraft(text)
	if err == nil {
		err = draft.Validate()
	}
	if err != nil {
		logger.Warn("unusable model output", zap.Error(err), zap.String("response", text))
		s.logAttempt(ctx, input, "", err)
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	report := quality.Score(draft, items)
	breakdown := s.macros(ctx, draft.Ingredients)

	r := &recipe.Recipe{
		Title:            draft.Title,
		Servings:         draft.Servings,
		Ingredients:      draft.Ingredients,
		Steps:            draft.Steps,
		Macros:           breakdown.Total,
		Partial:          breakdown.Partial,
		Cuisine:          firstNonEmpty(draft.Cuisine, recipe.CanonicalLabel(req.Cuisine)),
		MealType:         firstNonEmpty(draft.MealType, recipe.CanonicalLabel(req.MealType)),
		DietaryTag:       firstNonEmpty(draft.DietaryTag, recipe.CanonicalLabel(req.DietaryPreference)),
		Difficulty:       draft.Difficulty,
		TotalTimeMinutes: draft.TotalTimeMinutes,
		Tags:             draft.Tags,
		QualityScore:     report.Score,
		Feedback:         report.Feedback,
	}

	if err := s.store.Save(ctx, r); err != nil {
		s.logAttempt(ctx, input, "", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.logAttempt(ctx, input, r.ID, nil)

	logger.Info("recipe generated",
		zap.String("id", r.ID),
		zap.String("title", r.Title),
		zap.Int("quality", report.Score),
		zap.Bool("partial", breakdown.Partial),
	)

	return &Result{
		Recipe:     r,
		PerServing: r.PerServing(),
		Breakdown:  breakdown,
		Report:     report,
	}, nil
}

// macros looks up every ingredient. Lookup errors count as misses.
func (s *Service) macros(ctx context.Context, items []recipe.Ingredient) nutrition.Breakdown {
	samples := make([]nutrition.Sample, 0, len(items))
	for _, ing := range items {
		per100, found, err := s.lookup.Per100g(ctx, ing.Name)
		if err != nil {
			logger.Warn("nutrient lookup failed", zap.String("ingredient", ing.Name), zap.Error(err))
			found = false
		}
		samples = append(samples, nutrition.Sample{
			Name:    ing.Name,
			Grams:   ing.Grams,
			Per100g: per100,
			Matched: found,
		})
	}
	return nutrition.Scale(samples)
}

func (s *Service) logAttempt(ctx context.Context, input, recipeID string, cause error) {
	a := &recipe.Attempt{Input: input, RecipeID: recipeID, Success: cause == nil}
	if cause != nil {
		a.Error = cause.Error()
	}
	// The request context may already be past its deadline.
	ctx = context.WithoutCancel(ctx)
	if err := s.store.LogGeneration(ctx, a); err != nil {
		logger.Warn("failed to log generation attempt", zap.Error(err))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
