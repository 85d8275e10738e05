// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/config"
	"github.com/aristath/portfolio-analytics/internal/database"
)

// InitializeDatabases opens both databases and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. analytics.db - portfolios, holdings, price history, option quotes, metadata
	analyticsDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("analytics"),
		Driver:  cfg.DBDriver,
		Profile: database.ProfileStandard,
		Name:    "analytics",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analytics database: %w", err)
	}
	container.AnalyticsDB = analyticsDB

	// 2. cache.db - cached analysis results (ephemeral)
	cacheDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath("cache"),
		Driver:  cfg.DBDriver,
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}
	container.CacheDB = cacheDB

	for _, db := range []*database.DB{analyticsDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().Msg("All databases initialized and schemas applied")

	return container, nil
}
