package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"macrochef/internal/api"
	"macrochef/internal/chef"
	"macrochef/internal/config"
	"macrochef/internal/logger"
	"macrochef/internal/platform/gemini"
	"macrochef/internal/platform/groq"
	"macrochef/internal/platform/localllm"
	"macrochef/internal/platform/rediscache"
	"macrochef/internal/platform/usda"
	"macrochef/internal/recipe"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("config.json")
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, closeGen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGen()

	store, err := recipe.NewStore(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("error creating recipe store: %w", err)
	}
	defer store.Close()

	lookup, closeLookup := newLookup(ctx, cfg)
	defer closeLookup()

	handler := api.NewHandler(chef.NewService(gen, lookup, store), store)
	router, err := setupRouter(handler, cfg.AllowOrigins)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Addr),
			zap.String("provider", cfg.Provider),
			zap.String("database", cfg.DatabaseDriver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newGenerator builds the LLM client for the configured provider.
func newGenerator(ctx context.Context, cfg *config.Config) (chef.Generator, func(), error) {
	noop := func() {}
	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, noop, fmt.Errorf("error creating gemini client: %w", err)
		}
		return c, func() { _ = c.Close() }, nil
	case config.ProviderLocal:
		return localllm.NewClient(cfg.LocalLLMURL, cfg.Model), noop, nil
	default:
		c, err := groq.NewClient(cfg.GroqAPIKey, cfg.Model)
		if err != nil {
			return nil, noop, fmt.Errorf("error creating groq client: %w", err)
		}
		return c, noop, nil
	}
}

// newLookup returns the USDA client, cached in Redis when REDIS_URL is set.
// An unreachable Redis is logged and skipped.
func newLookup(ctx context.Context, cfg *config.Config) (chef.NutrientLookup, func()) {
	client := usda.NewClient(cfg.USDAAPIKey, "")
	if cfg.RedisURL == "" {
		return client, func() {}
	}

	rdb, err := rediscache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, nutrient cache disabled", zap.Error(err))
		return client, func() {}
	}
	return rediscache.New(client, rdb, rediscache.DefaultTTL), func() { _ = rdb.Close() }
}

func setupRouter(handler *api.Handler, origins []string) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := handler.RegisterRoutes(r); err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}
	return r, nil
}
