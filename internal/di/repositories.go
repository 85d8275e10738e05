package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/config"
	"github.com/aristath/portfolio-analytics/internal/modules/calculations"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
	"github.com/aristath/portfolio-analytics/internal/modules/portfolio"
)

// InitializeRepositories creates all repositories
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.AnalyticsDB == nil || container.CacheDB == nil {
		return fmt.Errorf("databases must be initialized first")
	}

	conn := container.AnalyticsDB.Conn()
	container.PortfolioRepo = portfolio.NewRepository(conn, log)
	container.HistoryRepo = marketdata.NewHistoryRepository(conn, log)
	container.OptionsRepo = marketdata.NewOptionsRepository(conn, log)
	container.MetadataRepo = marketdata.NewMetadataRepository(conn, log)
	container.ResultCache = calculations.NewCache(container.CacheDB.Conn(), cfg.CacheTTL, log)

	log.Info().Msg("Repositories initialized")
	return nil
}
