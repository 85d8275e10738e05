package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/config"
	"github.com/aristath/portfolio-analytics/internal/scheduler"
)

// RegisterJobs creates the scheduler and registers the background jobs.
// Upstream jobs are only registered when the Alpha Vantage client exists.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	sched := scheduler.New(log)
	instances := &JobInstances{}

	instances.Maintenance = scheduler.NewMaintenanceJob(container.ResultCache, log, container.AnalyticsDB, container.CacheDB)
	if err := sched.AddJob(cfg.MaintenanceSchedule, instances.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register maintenance job: %w", err)
	}

	if client := container.AlphaVantageClient; client != nil {
		refreshDeps := scheduler.RefreshPricesDeps{
			Tickers:   container.PortfolioRepo,
			Fetcher:   client,
			History:   container.HistoryRepo,
			Holdings:  container.PortfolioRepo,
			Cache:     container.ResultCache,
			Benchmark: cfg.BenchmarkTicker,
		}
		if cfg.LiveQuotes {
			refreshDeps.Quotes = client
		}
		instances.RefreshPrices = scheduler.NewRefreshPricesJob(refreshDeps, log)
		if err := sched.AddJob(cfg.RefreshSchedule, instances.RefreshPrices); err != nil {
			return nil, fmt.Errorf("failed to register refresh job: %w", err)
		}

		instances.SyncMetadata = scheduler.NewSyncMetadataJob(
			container.PortfolioRepo, container.MetadataRepo, client, container.ResultCache, log,
		)
		if err := sched.AddJob(cfg.MetadataSchedule, instances.SyncMetadata); err != nil {
			return nil, fmt.Errorf("failed to register metadata job: %w", err)
		}
	}

	container.Scheduler = sched
	log.Info().Int("jobs", sched.Entries()).Msg("Jobs registered")
	return instances, nil
}
