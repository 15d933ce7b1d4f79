package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"macrochef/internal/chef"
	"macrochef/internal/logger"
	"macrochef/internal/nutrition"
	"macrochef/internal/recipe"
)

const (
	generateTimeout = 45 * time.Second
	dbTimeout       = 5 * time.Second
)

// RecipeGenerator defines the generation workflow used by the handlers.
type RecipeGenerator interface {
	Generate(ctx context.Context, req chef.Request) (*chef.Result, error)
}

// RecipeStore defines the interface for recipe data operations.
type RecipeStore interface {
	Get(ctx context.Context, id string) (*recipe.Recipe, error)
	List(ctx context.Context, f recipe.Filter) ([]*recipe.Recipe, error)
	UpdateRating(ctx context.Context, id string, rating int) error
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*recipe.Stats, error)
}

// Handler handles HTTP requests.
type Handler struct {
	Chef        RecipeGenerator
	RecipeStore RecipeStore
}

// NewHandler creates a new Handler.
func NewHandler(chef RecipeGenerator, recipeStore RecipeStore) *Handler {
	return &Handler{Chef: chef, RecipeStore: recipeStore}
}

// recipeView is a stored recipe with its derived per-serving macros.
type recipeView struct {
	*recipe.Recipe
	PerServing nutrition.Macros `json:"per_serving"`
	TimeBucket string           `json:"time_bucket"`
}

func viewOf(r *recipe.Recipe) recipeView {
	return recipeView{Recipe: r, PerServing: r.PerServing(), TimeBucket: string(r.TimeBucket())}
}

func viewsOf(recipes []*recipe.Recipe) []recipeView {
	views := make([]recipeView, 0, len(recipes))
	for _, r := range recipes {
		views = append(views, viewOf(r))
	}
	return views
}

// statusFor maps service and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chef.ErrNoIngredients), errors.Is(err, recipe.ErrInvalidRating):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.Is(err, recipe.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chef.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the text shown to the user for err.
func messageFor(err error) string {
	switch {
	case errors.Is(err, chef.ErrNoIngredients):
		return chef.ErrNoIngredients.Error()
	case errors.Is(err, recipe.ErrInvalidRating):
		return recipe.ErrInvalidRating.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.Is(err, recipe.ErrNotFound):
		return "Recipe not found"
	case errors.Is(err, chef.ErrGeneration):
		return "Recipe generation failed. The AI service returned an error or an unusable recipe; please try again."
	default:
		return "A database error occurred. Please try again."
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError || status == http.StatusRequestTimeout {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": messageFor(err)})
}

// filterFromQuery reads listing filters from the query string.
func filterFromQuery(c *gin.Context) recipe.Filter {
	f := recipe.Filter{
		DietaryTag:    c.Query("dietary_tag"),
		Cuisine:       c.Query("cuisine"),
		MealType:      c.Query("meal_type"),
		Difficulty:    c.Query("difficulty"),
		Time:          recipe.ParseTimeBucket(c.Query("time")),
		Query:         c.Query("q"),
		FavoritesOnly: truthy(c.Query("favorites")),
		Sort:          recipe.ParseSort(c.Query("sort")),
	}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Offset, _ = strconv.Atoi(c.Query("offset"))
	return f
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Health reports that the server is up.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateRecipe generates and stores a recipe from a JSON request.
func (h *Handler) CreateRecipe(c *gin.Context) {
	var req chef.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), generateTimeout)
	defer cancel()

	res, err := h.Chef.Generate(ctx, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListRecipes returns recipes matching the query filters.
func (h *Handler) ListRecipes(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	recipes, err := h.RecipeStore.List(ctx, filterFromQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewsOf(recipes))
}

// GetRecipe returns a single recipe.
func (h *Handler) GetRecipe(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	r, err := h.RecipeStore.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if r == nil {
		h.fail(c, recipe.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, viewOf(r))
}

// RateRecipe sets the rating of a recipe.
func (h *Handler) RateRecipe(c *gin.Context) {
	var body struct {
		Rating *int `json:"rating"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Rating == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	id := c.Param("id")
	if err := h.RecipeStore.UpdateRating(ctx, id, *body.Rating); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "rating": *body.Rating})
}

// ToggleFavorite flips the favorite flag of a recipe.
func (h *Handler) ToggleFavorite(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	id := c.Param("id")
	favorite, err := h.RecipeStore.ToggleFavorite(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "favorite": favorite})
}

// DeleteRecipe removes a recipe.
func (h *Handler) DeleteRecipe(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	if err := h.RecipeStore.Delete(ctx, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetStats returns recipe and generation statistics.
func (h *Handler) GetStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	stats, err := h.RecipeStore.Stats(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
