package recipe

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"macrochef/internal/nutrition"
)

// Store defines the interface for recipe data operations.
type Store interface {
	Save(ctx context.Context, r *Recipe) error
	Get(ctx context.Context, id string) (*Recipe, error)
	List(ctx context.Context, f Filter) ([]*Recipe, error)
	Search(ctx context.Context, query string, limit int) ([]*Recipe, error)
	Favorites(ctx context.Context) ([]*Recipe, error)
	UpdateRating(ctx context.Context, id string, rating int) error
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	LogGeneration(ctx context.Context, a *Attempt) error
	Stats(ctx context.Context) (*Stats, error)
}

// SQLStore implements Store on top of sqlx. It works against SQLite and
// PostgreSQL; queries use ? placeholders and are rebound per driver.
type SQLStore struct {
	db *sqlx.DB
}

var schema = []string{`
	CREATE TABLE IF NOT EXISTS recipes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		servings INTEGER NOT NULL,
		ingredients TEXT NOT NULL,
		steps TEXT NOT NULL,
		protein DOUBLE PRECISION NOT NULL DEFAULT 0,
		carbs DOUBLE PRECISION NOT NULL DEFAULT 0,
		fat DOUBLE PRECISION NOT NULL DEFAULT 0,
		fiber DOUBLE PRECISION NOT NULL DEFAULT 0,
		calories DOUBLE PRECISION NOT NULL DEFAULT 0,
		partial BOOLEAN NOT NULL DEFAULT FALSE,
		cuisine TEXT NOT NULL DEFAULT '',
		meal_type TEXT NOT NULL DEFAULT '',
		dietary_tag TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		total_time_minutes INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '[]',
		quality_score INTEGER NOT NULL DEFAULT 0,
		feedback TEXT NOT NULL DEFAULT '[]',
		rating INTEGER NOT NULL DEFAULT 0,
		is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS recipe_history (
		id TEXT PRIMARY KEY,
		input_ingredients TEXT NOT NULL,
		recipe_id TEXT,
		success BOOLEAN NOT NULL,
		error_message TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recipes_created_at ON recipes (created_at)`,
}

// NewStore connects to the database and creates the tables if needed.
// driver is "sqlite3" or "postgres".
func NewStore(driver, dataSourceName string) (*SQLStore, error) {
	db, err := sqlx.Connect(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == "sqlite3" {
		// One connection keeps :memory: databases alive and serializes writers.
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLStore{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const recipeColumns = `id, title, servings, ingredients, steps, protein, carbs, fat, fiber, calories,
	partial, cuisine, meal_type, dietary_tag, difficulty, total_time_minutes, tags,
	quality_score, feedback, rating, is_favorite, created_at`

// recipeRow is the flat database shape of a Recipe. List columns are JSON.
type recipeRow struct {
	ID               string    `db:"id"`
	Title            string    `db:"title"`
	Servings         int       `db:"servings"`
	Ingredients      string    `db:"ingredients"`
	Steps            string    `db:"steps"`
	Protein          float64   `db:"protein"`
	Carbs            float64   `db:"carbs"`
	Fat              float64   `db:"fat"`
	Fiber            float64   `db:"fiber"`
	Calories         float64   `db:"calories"`
	Partial          bool      `db:"partial"`
	Cuisine          string    `db:"cuisine"`
	MealType         string    `db:"meal_type"`
	DietaryTag       string    `db:"dietary_tag"`
	Difficulty       string    `db:"difficulty"`
	TotalTimeMinutes int       `db:"total_time_minutes"`
	Tags             string    `db:"tags"`
	QualityScore     int       `db:"quality_score"`
	Feedback         string    `db:"feedback"`
	Rating           int       `db:"rating"`
	Favorite         bool      `db:"is_favorite"`
	CreatedAt        time.Time `db:"created_at"`
}

func (row *recipeRow) toRecipe() (*Recipe, error) {
	r := &Recipe{
		ID:       row.ID,
		Title:    row.Title,
		Servings: row.Servings,
		Macros: nutrition.Macros{
			Protein:  row.Protein,
			Carbs:    row.Carbs,
			Fat:      row.Fat,
			Fiber:    row.Fiber,
			Calories: row.Calories,
		},
		Partial:          row.Partial,
		Cuisine:          row.Cuisine,
		MealType:         row.MealType,
		DietaryTag:       row.DietaryTag,
		Difficulty:       row.Difficulty,
		TotalTimeMinutes: row.TotalTimeMinutes,
		QualityScore:     row.QualityScore,
		Rating:           row.Rating,
		Favorite:         row.Favorite,
		CreatedAt:        row.CreatedAt.UTC(),
	}

	if err := json.Unmarshal([]byte(row.Ingredients), &r.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Steps), &r.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Tags), &r.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Feedback), &r.Feedback); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feedback: %w", err)
	}
	return r, nil
}

// marshalList encodes v without HTML escaping so LIKE search sees "&", "<"
// and ">" as typed.
func marshalList(v any, name string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Save inserts a new recipe. ID and CreatedAt are assigned when empty.
func (s *SQLStore) Save(ctx context.Context, r *Recipe) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Feedback == nil {
		r.Feedback = []string{}
	}

	ingredientsJSON, err := marshalList(r.Ingredients, "ingredients")
	if err != nil {
		return err
	}
	stepsJSON, err := marshalList(r.Steps, "steps")
	if err != nil {
		return err
	}
	tagsJSON, err := marshalList(r.Tags, "tags")
	if err != nil {
		return err
	}
	feedbackJSON, err := marshalList(r.Feedback, "feedback")
	if err != nil {
		return err
	}

	query := s.db.Rebind(`INSERT INTO recipes (` + recipeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.Title,
		r.Servings,
		ingredientsJSON,
		stepsJSON,
		r.Macros.Protein,
		r.Macros.Carbs,
		r.Macros.Fat,
		r.Macros.Fiber,
		r.Macros.Calories,
		r.Partial,
		r.Cuisine,
		r.MealType,
		r.DietaryTag,
		r.Difficulty,
		r.TotalTimeMinutes,
		tagsJSON,
		r.QualityScore,
		feedbackJSON,
		r.Rating,
		r.Favorite,
		r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}
	return nil
}

// Get retrieves a recipe by id. It returns nil, nil when none exists.
func (s *SQLStore) Get(ctx context.Context, id string) (*Recipe, error) {
	var row recipeRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind("SELECT "+recipeColumns+" FROM recipes WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return row.toRecipe()
}

// List returns recipes matching every non-empty field of f.
func (s *SQLStore) List(ctx context.Context, f Filter) ([]*Recipe, error) {
	var args []interface{}
	query := "SELECT " + recipeColumns + " FROM recipes WHERE 1=1"

	if v := CanonicalLabel(f.DietaryTag); v != "" {
		query += " AND dietary_tag = ?"
		args = append(args, v)
	}
	if v := CanonicalLabel(f.Cuisine); v != "" {
		query += " AND cuisine = ?"
		args = append(args, v)
	}
	if v := CanonicalLabel(f.MealType); v != "" {
		query += " AND meal_type = ?"
		args = append(args, v)
	}
	if v := CanonicalLabel(f.Difficulty); v != "" {
		query += " AND difficulty = ?"
		args = append(args, v)
	}
	if lo, hi, ok := f.Time.bounds(); ok {
		query += " AND total_time_minutes >= ?"
		args = append(args, lo)
		if hi >= 0 {
			query += " AND total_time_minutes <= ?"
			args = append(args, hi)
		}
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := likePattern(q)
		query += ` AND (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(ingredients) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	if f.FavoritesOnly {
		query += " AND is_favorite = ?"
		args = append(args, true)
	}

	switch f.Sort {
	case SortRating:
		query += " ORDER BY rating DESC, created_at DESC, id"
	default:
		query += " ORDER BY created_at DESC, id"
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, f.limit(), f.offset())

	var rows []recipeRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	recipes := make([]*Recipe, 0, len(rows))
	for i := range rows {
		r, err := rows[i].toRecipe()
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

// Search matches query against titles and ingredient names, newest first.
func (s *SQLStore) Search(ctx context.Context, query string, limit int) ([]*Recipe, error) {
	if limit <= 0 {
		limit = SearchLimit
	}
	return s.List(ctx, Filter{Query: query, Limit: limit})
}

// Favorites returns every favorite recipe, newest first.
func (s *SQLStore) Favorites(ctx context.Context) ([]*Recipe, error) {
	return s.List(ctx, Filter{FavoritesOnly: true, Limit: maxLimit})
}

// UpdateRating sets the rating of a recipe. Zero clears it.
func (s *SQLStore) UpdateRating(ctx context.Context, id string, rating int) error {
	if rating < 0 || rating > MaxRating {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE recipes SET rating = ? WHERE id = ?"), rating, id)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	return requireOneRow(res)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *SQLStore) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE recipes SET is_favorite = NOT is_favorite WHERE id = ?"), id)
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	if err := requireOneRow(res); err != nil {
		return false, err
	}

	var favorite bool
	if err := tx.GetContext(ctx, &favorite, tx.Rebind("SELECT is_favorite FROM recipes WHERE id = ?"), id); err != nil {
		return false, fmt.Errorf("failed to read favorite: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit favorite: %w", err)
	}
	return favorite, nil
}

// Delete removes a recipe permanently.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM recipes WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return requireOneRow(res)
}

// LogGeneration records one generation attempt.
func (s *SQLStore) LogGeneration(ctx context.Context, a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO recipe_history (id, input_ingredients, recipe_id, success, error_message, created_at) VALUES (?, ?, ?, ?, ?, ?)"),
		a.ID,
		a.Input,
		nullString(a.RecipeID),
		a.Success,
		nullString(a.Error),
		a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to log generation: %w", err)
	}
	return nil
}

// Stats aggregates recipe and history counts.
func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	queries := []struct {
		dest  interface{}
		query string
		args  []interface{}
	}{
		{&st.TotalRecipes, "SELECT COUNT(*) FROM recipes", nil},
		{&st.FavoriteRecipes, "SELECT COUNT(*) FROM recipes WHERE is_favorite = ?", []interface{}{true}},
		{&st.AverageRating, "SELECT COALESCE(AVG(CAST(rating AS DOUBLE PRECISION)), 0) FROM recipes WHERE rating > 0", nil},
		{&st.TotalAttempts, "SELECT COUNT(*) FROM recipe_history", nil},
	}
	for _, q := range queries {
		if err := s.db.GetContext(ctx, q.dest, s.db.Rebind(q.query), q.args...); err != nil {
			return nil, fmt.Errorf("failed to read stats: %w", err)
		}
	}

	if st.TotalAttempts > 0 {
		var succeeded int
		if err := s.db.GetContext(ctx, &succeeded, s.db.Rebind("SELECT COUNT(*) FROM recipe_history WHERE success = ?"), true); err != nil {
			return nil, fmt.Errorf("failed to read stats: %w", err)
		}
		st.SuccessRate = float64(succeeded) / float64(st.TotalAttempts) * 100
	}
	return &st, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(q string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
}
