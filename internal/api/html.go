package api

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"macrochef/internal/chef"
	"macrochef/internal/recipe"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"f1":   func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"join": strings.Join,
	"stars": func(n int) string {
		if n <= 0 {
			return "unrated"
		}
		return strings.Repeat("★", n) + strings.Repeat("☆", recipe.MaxRating-n)
	},
	"seq": func(n int) []int {
		s := make([]int, n)
		for i := range s {
			s[i] = i + 1
		}
		return s
	},
}

// Templates parses the embedded HTML templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.tmpl")
}

// filterOptions feed the select boxes of the listing page.
var filterOptions = gin.H{
	"DietaryTags":  []string{"Vegetarian", "Vegan", "High-Protein", "Gluten-Free", "Low-Carb", "Dairy-Free"},
	"Cuisines":     []string{"American", "Chinese", "French", "Greek", "Indian", "Italian", "Japanese", "Mediterranean", "Mexican", "Thai"},
	"MealTypes":    []string{"Breakfast", "Lunch", "Dinner", "Snack", "Dessert"},
	"Difficulties": []string{"Easy", "Medium", "Hard"},
	"TimeBuckets":  []recipe.TimeBucket{recipe.TimeQuick, recipe.TimeMedium, recipe.TimeLong},
}

// Index renders the ingredient form.
func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"Ingredients": c.Query("ingredients"),
		"Request":     chef.Request{},
		"Options":     filterOptions,
	})
}

// Surprise renders the form prefilled with a random preset.
func (h *Handler) Surprise(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"Ingredients": chef.Surprise(),
		"Request":     chef.Request{},
		"Options":     filterOptions,
	})
}

// GenerateForm handles the form post and renders the generated recipe.
func (h *Handler) GenerateForm(c *gin.Context) {
	var req chef.Request
	if err := c.ShouldBind(&req); err != nil {
		h.renderError(c, http.StatusBadRequest, "Invalid form submission", req)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), generateTimeout)
	defer cancel()

	res, err := h.Chef.Generate(ctx, req)
	if err != nil {
		h.renderError(c, statusFor(err), messageFor(err), req)
		return
	}

	c.HTML(http.StatusOK, "recipe.tmpl", gin.H{
		"Recipe":    viewOf(res.Recipe),
		"Breakdown": res.Breakdown,
		"Report":    res.Report,
		"Fresh":     true,
	})
}

func (h *Handler) renderError(c *gin.Context, status int, msg string, req chef.Request) {
	c.HTML(status, "index.tmpl", gin.H{
		"Error":       msg,
		"Ingredients": req.Ingredients,
		"Request":     req,
		"Options":     filterOptions,
	})
}

// RecipesPage renders the filtered recipe list.
func (h *Handler) RecipesPage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	f := filterFromQuery(c)
	recipes, err := h.RecipeStore.List(ctx, f)
	if err != nil {
		c.HTML(statusFor(err), "error.tmpl", gin.H{"Error": messageFor(err)})
		return
	}

	prev, next := pageLinks(c.Request.URL, f, len(recipes))
	c.HTML(http.StatusOK, "recipes.tmpl", gin.H{
		"Recipes": viewsOf(recipes),
		"Filter":  f,
		"Options": filterOptions,
		"PrevURL": prev,
		"NextURL": next,
	})
}

// pageLinks returns the previous and next page URLs of a listing that
// returned n recipes; an empty string means there is no such page.
func pageLinks(u *url.URL, f recipe.Filter, n int) (prev, next string) {
	limit, offset := f.Page()
	link := func(off int) string {
		q := u.Query()
		q.Set("limit", strconv.Itoa(limit))
		q.Set("offset", strconv.Itoa(off))
		return u.Path + "?" + q.Encode()
	}
	if offset > 0 {
		prev = link(max(offset-limit, 0))
	}
	if n == limit {
		next = link(offset + limit)
	}
	return prev, next
}

// RecipePage renders a stored recipe.
func (h *Handler) RecipePage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	r, err := h.RecipeStore.Get(ctx, c.Param("id"))
	if err == nil && r == nil {
		err = recipe.ErrNotFound
	}
	if err != nil {
		c.HTML(statusFor(err), "error.tmpl", gin.H{"Error": messageFor(err)})
		return
	}
	c.HTML(http.StatusOK, "recipe.tmpl", gin.H{"Recipe": viewOf(r)})
}

// RateForm handles the rating form.
func (h *Handler) RateForm(c *gin.Context) {
	id := c.Param("id")
	rating, err := strconv.Atoi(c.PostForm("rating"))
	if err != nil {
		c.HTML(http.StatusBadRequest, "error.tmpl", gin.H{"Error": recipe.ErrInvalidRating.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	if err := h.RecipeStore.UpdateRating(ctx, id, rating); err != nil {
		c.HTML(statusFor(err), "error.tmpl", gin.H{"Error": messageFor(err)})
		return
	}
	c.Redirect(http.StatusSeeOther, "/recipes/"+id)
}

// FavoriteForm toggles the favorite flag and returns to the recipe.
func (h *Handler) FavoriteForm(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	if _, err := h.RecipeStore.ToggleFavorite(ctx, id); err != nil {
		c.HTML(statusFor(err), "error.tmpl", gin.H{"Error": messageFor(err)})
		return
	}
	c.Redirect(http.StatusSeeOther, "/recipes/"+id)
}

// DeleteForm removes a recipe and returns to the list.
func (h *Handler) DeleteForm(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	if err := h.RecipeStore.Delete(ctx, c.Param("id")); err != nil {
		c.HTML(statusFor(err), "error.tmpl", gin.H{"Error": messageFor(err)})
		return
	}
	c.Redirect(http.StatusSeeOther, "/recipes")
}

// StatsPage renders the statistics page.
func (h *Handler) StatsPage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	stats, err := h.RecipeStore.Stats(ctx)
	if err != nil {
		c.HTML(statusFor(err), "error.tmpl", gin.H{"Error": messageFor(err)})
		return
	}
	c.HTML(http.StatusOK, "stats.tmpl", gin.H{"Stats": stats})
}
