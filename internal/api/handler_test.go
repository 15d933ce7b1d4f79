package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrochef/internal/chef"
	"macrochef/internal/nutrition"
	"macrochef/internal/quality"
	"macrochef/internal/recipe"
)

// mockChef is a mock of the generation service.
type mockChef struct {
	returnError error
	received    chef.Request
}

func (m *mockChef) Generate(ctx context.Context, req chef.Request) (*chef.Result, error) {
	m.received = req
	if m.returnError != nil {
		return nil, m.returnError
	}
	r := &recipe.Recipe{
		ID:          "r-new",
		Title:       "Mock Chicken Bowl",
		Servings:    2,
		Ingredients: []recipe.Ingredient{{Name: "chicken", Grams: 200}},
		Steps:       []string{"Cook the chicken"},
		Macros:      nutrition.Macros{Protein: 62, Fat: 7.2, Calories: 330},
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	return &chef.Result{
		Recipe:     r,
		PerServing: r.PerServing(),
		Breakdown: nutrition.Breakdown{
			Rows:  []nutrition.Row{{Name: "chicken", Grams: 200, Macros: r.Macros, Matched: true}},
			Total: r.Macros,
		},
		Report: quality.Report{Score: 100, Feedback: []string{}},
	}, nil
}

// mockRecipeStore is an in-memory RecipeStore.
type mockRecipeStore struct {
	recipes    map[string]*recipe.Recipe
	err        error
	lastFilter recipe.Filter
}

func newMockRecipeStore(recipes ...*recipe.Recipe) *mockRecipeStore {
	m := &mockRecipeStore{recipes: map[string]*recipe.Recipe{}}
	for _, r := range recipes {
		m.recipes[r.ID] = r
	}
	return m
}

func (m *mockRecipeStore) Get(ctx context.Context, id string) (*recipe.Recipe, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.recipes[id], nil
}

func (m *mockRecipeStore) List(ctx context.Context, f recipe.Filter) ([]*recipe.Recipe, error) {
	m.lastFilter = f
	if m.err != nil {
		return nil, m.err
	}
	var out []*recipe.Recipe
	for _, r := range m.recipes {
		if f.DietaryTag != "" && r.DietaryTag != f.DietaryTag {
			continue
		}
		out = append(out, r)
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *mockRecipeStore) UpdateRating(ctx context.Context, id string, rating int) error {
	if rating < 0 || rating > recipe.MaxRating {
		return recipe.ErrInvalidRating
	}
	r, ok := m.recipes[id]
	if !ok {
		return recipe.ErrNotFound
	}
	r.Rating = rating
	return nil
}

func (m *mockRecipeStore) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	r, ok := m.recipes[id]
	if !ok {
		return false, recipe.ErrNotFound
	}
	r.Favorite = !r.Favorite
	return r.Favorite, nil
}

func (m *mockRecipeStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.recipes[id]; !ok {
		return recipe.ErrNotFound
	}
	delete(m.recipes, id)
	return nil
}

func (m *mockRecipeStore) Stats(ctx context.Context) (*recipe.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &recipe.Stats{TotalRecipes: len(m.recipes), TotalAttempts: 4, SuccessRate: 75}, nil
}

func storedRecipe(id, tag string) *recipe.Recipe {
	return &recipe.Recipe{
		ID:          id,
		Title:       "Stored " + id,
		Servings:    4,
		Ingredients: []recipe.Ingredient{{Name: "lentils", Grams: 400}},
		Steps:       []string{"Simmer the lentils"},
		Macros:      nutrition.Macros{Protein: 36, Carbs: 80, Fat: 2, Fiber: 30, Calories: 464},
		DietaryTag:  tag,
		CreatedAt:   time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func setupRouter(t *testing.T, c RecipeGenerator, s RecipeStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	require.NoError(t, NewHandler(c, s).RegisterRoutes(router))
	return router
}

func TestHealth(t *testing.T) {
	router := setupRouter(t, &mockChef{}, newMockRecipeStore())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateRecipe(t *testing.T) {
	mc := &mockChef{}
	router := setupRouter(t, mc, newMockRecipeStore())

	body := `{"ingredients": "chicken, rice", "cuisine": "Thai"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/recipes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "chicken, rice", mc.received.Ingredients)
	assert.Equal(t, "Thai", mc.received.Cuisine)

	var res chef.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Mock Chicken Bowl", res.Recipe.Title)
	assert.Equal(t, 31.0, res.PerServing.Protein)
	assert.Len(t, res.Breakdown.Rows, 1)
}

func TestCreateRecipeErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"empty input", chef.ErrNoIngredients, http.StatusBadRequest},
		{"model failure", fmt.Errorf("%w: %w", chef.ErrGeneration, errors.New("bad json")), http.StatusBadGateway},
		{"model timeout", fmt.Errorf("%w: %w", chef.ErrGeneration, context.DeadlineExceeded), http.StatusRequestTimeout},
		{"database", fmt.Errorf("%w: %w", chef.ErrPersistence, errors.New("disk full")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(t, &mockChef{returnError: tt.err}, newMockRecipeStore())

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/recipes", strings.NewReader(`{"ingredients": "x"}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
			assert.NotContains(t, w.Body.String(), "disk full")
		})
	}
}

func TestListRecipesFilters(t *testing.T) {
	store := newMockRecipeStore(storedRecipe("a", "Vegetarian"), storedRecipe("b", "Vegan"))
	router := setupRouter(t, &mockChef{}, store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/recipes?dietary_tag=Vegetarian&cuisine=Indian&meal_type=Dinner&time=quick&difficulty=Easy&q=dal&favorites=1&sort=rating&limit=10&offset=20", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, recipe.Filter{
		DietaryTag:    "Vegetarian",
		Cuisine:       "Indian",
		MealType:      "Dinner",
		Difficulty:    "Easy",
		Time:          recipe.TimeQuick,
		Query:         "dal",
		FavoritesOnly: true,
		Sort:          recipe.SortRating,
		Limit:         10,
		Offset:        20,
	}, store.lastFilter)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Vegetarian", got[0]["dietary_tag"])
	assert.Equal(t, 9.0, got[0]["per_serving"].(map[string]interface{})["protein"])
}

func TestGetRecipe(t *testing.T) {
	router := setupRouter(t, &mockChef{}, newMockRecipeStore(storedRecipe("a", "")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recipes/a", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Stored a"`)
	assert.Contains(t, w.Body.String(), `"time_bucket":"quick"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recipes/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRecipeTimeout(t *testing.T) {
	store := newMockRecipeStore()
	store.err = context.DeadlineExceeded
	router := setupRouter(t, &mockChef{}, store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recipes/a", nil))
	assert.Equal(t, http.StatusRequestTimeout, w.Code)
}

func TestRateRecipe(t *testing.T) {
	store := newMockRecipeStore(storedRecipe("a", ""))
	router := setupRouter(t, &mockChef{}, store)

	rate := func(id, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/recipes/"+id+"/rating", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	w := rate("a", `{"rating": 4}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, store.recipes["a"].Rating)

	assert.Equal(t, http.StatusBadRequest, rate("a", `{"rating": 9}`).Code)
	assert.Equal(t, http.StatusBadRequest, rate("a", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, rate("missing", `{"rating": 3}`).Code)
}

func TestToggleFavoriteAndDelete(t *testing.T) {
	store := newMockRecipeStore(storedRecipe("a", ""))
	router := setupRouter(t, &mockChef{}, store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/recipes/a/favorite", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"a","favorite":true}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/recipes/a", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, store.recipes)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/recipes/a", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStats(t *testing.T) {
	router := setupRouter(t, &mockChef{}, newMockRecipeStore(storedRecipe("a", "")))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_recipes":1`)
	assert.Contains(t, w.Body.String(), `"success_rate":75`)
}

func postForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)
	return w
}

func TestHTMLPages(t *testing.T) {
	store := newMockRecipeStore(storedRecipe("a", "Vegetarian"))
	router := setupRouter(t, &mockChef{}, store)

	pages := []struct {
		path string
		want string
	}{
		{"/", "in your kitchen?"},
		{"/recipes", "Stored a"},
		{"/recipes?dietary_tag=Vegetarian", "Stored a"},
		{"/recipes/a", "Simmer the lentils"},
		{"/stats", "Generation attempts"},
	}
	for _, p := range pages {
		t.Run(p.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), p.want)
		})
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recipes/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipesPagePagination(t *testing.T) {
	store := newMockRecipeStore(storedRecipe("a", "Vegan"), storedRecipe("b", "Vegan"), storedRecipe("c", "Vegan"))
	router := setupRouter(t, &mockChef{}, store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recipes?dietary_tag=Vegan&limit=2&offset=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/recipes?dietary_tag=Vegan&amp;limit=2&amp;offset=0")
	assert.Contains(t, w.Body.String(), "/recipes?dietary_tag=Vegan&amp;limit=2&amp;offset=4")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recipes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Previous")
	assert.NotContains(t, w.Body.String(), "Next")
}

func TestPageLinks(t *testing.T) {
	u, err := url.Parse("/recipes?q=rice&offset=5")
	require.NoError(t, err)

	prev, next := pageLinks(u, recipe.Filter{Limit: 10, Offset: 5}, 10)
	assert.Equal(t, "/recipes?limit=10&offset=0&q=rice", prev)
	assert.Equal(t, "/recipes?limit=10&offset=15&q=rice", next)

	prev, next = pageLinks(u, recipe.Filter{Offset: 0}, 3)
	assert.Empty(t, prev)
	assert.Empty(t, next)
}

func TestSurprisePrefillsForm(t *testing.T) {
	router := setupRouter(t, &mockChef{}, newMockRecipeStore())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/surprise", nil))
	require.Equal(t, http.StatusOK, w.Code)

	found := false
	for _, preset := range chef.Presets {
		if strings.Contains(w.Body.String(), preset) {
			found = true
		}
	}
	assert.True(t, found, "one preset is placed in the textarea")
}

func TestGenerateForm(t *testing.T) {
	mc := &mockChef{}
	router := setupRouter(t, mc, newMockRecipeStore())

	w := postForm(router, "/generate", url.Values{
		"ingredients":        {"chicken"},
		"dietary_preference": {"High-Protein"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "High-Protein", mc.received.DietaryPreference)
	assert.Contains(t, w.Body.String(), "Mock Chicken Bowl")
	assert.Contains(t, w.Body.String(), "62.0")
	assert.Contains(t, w.Body.String(), "31.0")
}

func TestGenerateFormError(t *testing.T) {
	router := setupRouter(t, &mockChef{returnError: chef.ErrNoIngredients}, newMockRecipeStore())

	w := postForm(router, "/generate", url.Values{"ingredients": {" , "}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "please enter at least one ingredient")
}

func TestRecipeForms(t *testing.T) {
	store := newMockRecipeStore(storedRecipe("a", ""))
	router := setupRouter(t, &mockChef{}, store)

	w := postForm(router, "/recipes/a/rating", url.Values{"rating": {"5"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/recipes/a", w.Header().Get("Location"))
	assert.Equal(t, 5, store.recipes["a"].Rating)

	w = postForm(router, "/recipes/a/rating", url.Values{"rating": {"lots"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postForm(router, "/recipes/a/favorite", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.True(t, store.recipes["a"].Favorite)

	w = postForm(router, "/recipes/a/delete", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/recipes", w.Header().Get("Location"))
	assert.Empty(t, store.recipes)

	w = postForm(router, "/recipes/a/delete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
