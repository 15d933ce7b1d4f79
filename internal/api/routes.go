package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"macrochef/internal/logger"
)

// RegisterRoutes wires the HTML pages, the JSON API and the health check.
func (h *Handler) RegisterRoutes(r *gin.Engine) error {
	tmpl, err := Templates()
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(tmpl)

	r.GET("/healthz", h.Health)

	r.GET("/", h.Index)
	r.GET("/surprise", h.Surprise)
	r.POST("/generate", h.GenerateForm)
	r.GET("/recipes", h.RecipesPage)
	r.GET("/recipes/:id", h.RecipePage)
	r.POST("/recipes/:id/rating", h.RateForm)
	r.POST("/recipes/:id/favorite", h.FavoriteForm)
	r.POST("/recipes/:id/delete", h.DeleteForm)
	r.GET("/stats", h.StatsPage)

	api := r.Group("/api")
	api.POST("/recipes", h.CreateRecipe)
	api.GET("/recipes", h.ListRecipes)
	api.GET("/recipes/:id", h.GetRecipe)
	api.PUT("/recipes/:id/rating", h.RateRecipe)
	api.POST("/recipes/:id/favorite", h.ToggleFavorite)
	api.DELETE("/recipes/:id", h.DeleteRecipe)
	api.GET("/stats", h.GetStats)

	return nil
}

// RequestLogger logs every request through the global zap logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
