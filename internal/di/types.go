/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for route registration.
 */
package di

import (
	"github.com/aristath/portfolio-analytics/internal/clients/alphavantage"
	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/aristath/portfolio-analytics/internal/modules/advisor"
	"github.com/aristath/portfolio-analytics/internal/modules/calculations"
	"github.com/aristath/portfolio-analytics/internal/modules/diversification"
	"github.com/aristath/portfolio-analytics/internal/modules/hedging"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
	"github.com/aristath/portfolio-analytics/internal/modules/portfolio"
	"github.com/aristath/portfolio-analytics/internal/modules/risk"
	"github.com/aristath/portfolio-analytics/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: analytics (portfolios, prices, options, metadata) and cache (analysis results)
 * - Clients: Alpha Vantage (optional, enabled by API key)
 * - Repositories: Data access layer
 * - Services: Portfolio import and the three analytics services
 * - Scheduler: Background refresh and maintenance jobs
 */
type Container struct {
	// Databases
	AnalyticsDB *database.DB
	CacheDB     *database.DB

	// Clients (nil when not configured)
	AlphaVantageClient *alphavantage.Client

	// Repositories
	PortfolioRepo *portfolio.Repository
	HistoryRepo   *marketdata.HistoryRepository
	OptionsRepo   *marketdata.OptionsRepository
	MetadataRepo  *marketdata.MetadataRepository
	ResultCache   *calculations.Cache

	// Services
	MarketData             *marketdata.Loader
	Advisor                *advisor.Advisor
	PortfolioService       *portfolio.Service
	RiskEngine             *risk.Engine
	RiskService            *risk.Service
	DiversificationService *diversification.Service
	HedgingService         *hedging.Service

	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered jobs for manual triggering.
// RefreshPrices and SyncMetadata are nil without an upstream client.
type JobInstances struct {
	RefreshPrices *scheduler.RefreshPricesJob
	SyncMetadata  *scheduler.SyncMetadataJob
	Maintenance   *scheduler.MaintenanceJob
}

// Close closes every open database.
func (c *Container) Close() {
	for _, db := range []*database.DB{c.AnalyticsDB, c.CacheDB} {
		if db != nil {
			_ = db.Close()
		}
	}
}
