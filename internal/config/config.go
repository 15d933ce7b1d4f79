package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Supported LLM providers.
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config represents the application configuration.
type Config struct {
	GroqAPIKey     string   `json:"groq_api_key"`
	GeminiAPIKey   string   `json:"gemini_api_key"`
	USDAAPIKey     string   `json:"usda_api_key"`
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	LocalLLMURL    string   `json:"local_llm_url"`
	DatabaseDriver string   `json:"database_driver"`
	DatabaseURL    string   `json:"DATABASE_URL"`
	RedisURL       string   `json:"redis_url"`
	Addr           string   `json:"addr"`
	AllowOrigins   []string `json:"allow_origins"`
	LogLevel       string   `json:"log_level"`
	Env            string   `json:"env"`
}

// Load builds a Config from, in increasing priority: defaults, the JSON file
// at path, a .env file in the working directory and the process environment.
// Missing files are not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.GroqAPIKey, "GROQ_API_KEY", "groq_api_key")
	override(&cfg.GeminiAPIKey, "GEMINI_API_KEY", "gemini_api_key")
	override(&cfg.USDAAPIKey, "USDA_API_KEY", "usda_api_key")
	override(&cfg.Provider, "LLM_PROVIDER")
	override(&cfg.Model, "LLM_MODEL")
	override(&cfg.LocalLLMURL, "LOCAL_LLM_URL")
	override(&cfg.DatabaseDriver, "DATABASE_DRIVER")
	override(&cfg.DatabaseURL, "DATABASE_URL")
	override(&cfg.RedisURL, "REDIS_URL")
	override(&cfg.Addr, "ADDR")
	override(&cfg.LogLevel, "LOG_LEVEL")
	override(&cfg.Env, "ENV")

	if origins := strings.TrimSpace(os.Getenv("ALLOW_ORIGINS")); origins != "" {
		cfg.AllowOrigins = splitList(origins)
	}
}

// override replaces *dst with the first non-empty variable among keys.
func override(dst *string, keys ...string) {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
			return
		}
	}
}

func applyDefaults(cfg *Config) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = ProviderGroq
	}
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = DriverSQLite
	}
	if cfg.DatabaseURL == "" && cfg.DatabaseDriver == DriverSQLite {
		cfg.DatabaseURL = "recipes.db"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:8081"}
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.USDAAPIKey) == "" {
		problems = append(problems, "usda_api_key (USDA_API_KEY) is required")
	}

	switch c.Provider {
	case ProviderGroq:
		if strings.TrimSpace(c.GroqAPIKey) == "" {
			problems = append(problems, "groq_api_key (GROQ_API_KEY) is required for the groq provider")
		}
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			problems = append(problems, "gemini_api_key (GEMINI_API_KEY) is required for the gemini provider")
		}
	case ProviderLocal:
	default:
		problems = append(problems, fmt.Sprintf("unknown provider %q", c.Provider))
	}

	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		problems = append(problems, fmt.Sprintf("unknown database driver %q", c.DatabaseDriver))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		problems = append(problems, "DATABASE_URL is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
