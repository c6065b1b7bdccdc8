// Package app assembles the service graph shared by the HTTP and MCP binaries.
package app

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/i474232898/rain-outlook/internal/config"
	"github.com/i474232898/rain-outlook/internal/dataset"
	"github.com/i474232898/rain-outlook/internal/store"
	"github.com/i474232898/rain-outlook/internal/weather"
)

// Build creates the store, source and service described by cfg. The returned
// cleanup closes the database when the SQLite store is used.
func Build(cfg *config.AppConfig, logger *slog.Logger) (*weather.Service, func(), error) {
	var (
		st      weather.Store
		cleanup = func() {}
	)

	switch cfg.StoreDriver {
	case "sqlite":
		db, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		st = store.NewSQLiteStore(db)
		cleanup = func() { closeDB(db, logger) }
	default:
		st = store.NewMemoryStore()
	}

	var src weather.Source
	if cfg.DatasetURL != "" {
		src = dataset.NewHTTPSource(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.DatasetURL).WithLogger(logger)
	} else {
		src = dataset.NewFileSource(cfg.DatasetPath)
	}

	estimator := weather.NewEstimator(cfg.EstimatorOptions()...)
	service := weather.NewService(st, src, estimator, logger)

	logger.Info("service assembled",
		"store", cfg.StoreDriver,
		"source", src.Name(),
		"missingFeatures", cfg.MissingFeatures.String(),
		"excludeLookahead", cfg.ExcludeLookahead,
	)
	return service, cleanup, nil
}

// InitialLoad loads history once at startup. With the SQLite store a failed
// load is tolerated when a previous run already persisted tables.
func InitialLoad(ctx context.Context, cfg *config.AppConfig, service *weather.Service, logger *slog.Logger) error {
	err := service.Reload(ctx)
	if err == nil {
		return nil
	}
	if cfg.StoreDriver == "sqlite" {
		if locs, locErr := service.Locations(); locErr == nil && len(locs) > 0 {
			logger.Warn("initial load failed; serving persisted history", "error", err, "locations", len(locs))
			return nil
		}
	}
	return err
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("db close", "error", err)
	}
}
