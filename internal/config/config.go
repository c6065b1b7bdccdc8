package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/rain-outlook/internal/weather"
)

type AppConfig struct {
	AppEnv   string `validate:"oneof=dev prod"`
	LogLevel slog.Level

	Port string `validate:"required,numeric"`

	// DatasetPath is the CSV export read at startup and on every reload.
	DatasetPath string `validate:"required_without=DatasetURL"`
	// DatasetURL, when set, takes precedence over DatasetPath.
	DatasetURL  string `validate:"omitempty,url"`
	HTTPTimeout time.Duration

	// ReloadInterval controls how often history is reloaded (0 = never).
	ReloadInterval time.Duration `validate:"gte=0"`

	StoreDriver string `validate:"oneof=memory sqlite"`
	SQLitePath  string `validate:"required_if=StoreDriver sqlite"`

	MissingFeatures  weather.MissingPolicy
	ExcludeLookahead bool

	DefaultLocation string `validate:"required"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.DatasetPath = getenvDefault("DATASET_PATH", "weatherAUS_cleaned.csv")
	cfg.DatasetURL = getenvDefault("DATASET_URL", "")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.ReloadInterval, err = getenvDuration("RELOAD_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", "memory"))
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "data/history.db")

	switch strings.ToLower(getenvDefault("MISSING_FEATURES", "zero")) {
	case "zero":
		cfg.MissingFeatures = weather.MissingAsZero
	case "exclude":
		cfg.MissingFeatures = weather.MissingExcluded
	default:
		return nil, fmt.Errorf("invalid MISSING_FEATURES %q (allowed: zero, exclude)", os.Getenv("MISSING_FEATURES"))
	}

	cfg.ExcludeLookahead, err = strconv.ParseBool(getenvDefault("EXCLUDE_LOOKAHEAD", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXCLUDE_LOOKAHEAD: %w", err)
	}

	cfg.DefaultLocation = getenvDefault("DEFAULT_LOCATION", "Sydney")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EstimatorOptions translates the configured policies into estimator options.
func (c *AppConfig) EstimatorOptions() []weather.Option {
	opts := []weather.Option{weather.WithMissingPolicy(c.MissingFeatures)}
	if c.ExcludeLookahead {
		opts = append(opts, weather.WithoutLookahead())
	}
	return opts
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
