package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/database"
)

// ExpiredCachePurger removes expired result-cache entries.
type ExpiredCachePurger interface {
	DeleteExpired() (int64, error)
}

// MaintenanceJob checks database integrity, truncates WAL files and purges
// expired cache entries.
type MaintenanceJob struct {
	databases []*database.DB
	cache     ExpiredCachePurger
	log       zerolog.Logger
}

// NewMaintenanceJob creates the job. Nil databases are skipped.
func NewMaintenanceJob(cache ExpiredCachePurger, log zerolog.Logger, dbs ...*database.DB) *MaintenanceJob {
	return &MaintenanceJob{
		databases: dbs,
		cache:     cache,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	checked := 0
	for _, db := range j.databases {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(ctx); err != nil {
			// Corruption cannot be repaired automatically
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Database integrity check failed")
			return fmt.Errorf("database %s failed integrity check: %w", db.Name(), err)
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}
		checked++
	}

	var purged int64
	if j.cache != nil {
		n, err := j.cache.DeleteExpired()
		if err != nil {
			j.log.Warn().Err(err).Msg("Failed to purge expired cache entries")
		}
		purged = n
	}

	j.log.Info().
		Int("databases", checked).
		Int64("cache_purged", purged).
		Msg("Maintenance completed")
	return nil
}
