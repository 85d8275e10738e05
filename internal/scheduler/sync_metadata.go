package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// MetadataStore persists ticker classification.
type MetadataStore interface {
	Missing(ctx context.Context, tickers []string) ([]string, error)
	Upsert(ctx context.Context, m domain.TickerMetadata) error
}

// MetadataFetcher looks up classification upstream.
type MetadataFetcher interface {
	TickerMetadata(ctx context.Context, ticker string) (domain.TickerMetadata, error)
}

// SyncMetadataJob fetches classification for held tickers that have none
// stored yet. Known tickers are never refetched.
type SyncMetadataJob struct {
	tickers TickerSource
	store   MetadataStore
	fetcher MetadataFetcher
	cache   Invalidator
	log     zerolog.Logger
}

// NewSyncMetadataJob creates the job. cache may be nil.
func NewSyncMetadataJob(tickers TickerSource, store MetadataStore, fetcher MetadataFetcher, cache Invalidator, log zerolog.Logger) *SyncMetadataJob {
	return &SyncMetadataJob{
		tickers: tickers,
		store:   store,
		fetcher: fetcher,
		cache:   cache,
		log:     log.With().Str("job", "sync_metadata").Logger(),
	}
}

// Name returns the job name
func (j *SyncMetadataJob) Name() string {
	return "sync_metadata"
}

// Run executes the job
func (j *SyncMetadataJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	_, err := j.Sync(ctx)
	return err
}

// Sync stores metadata for every missing ticker and returns how many were stored.
func (j *SyncMetadataJob) Sync(ctx context.Context) (int, error) {
	all, err := j.tickers.AllTickers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tickers: %w", err)
	}
	missing, err := j.store.Missing(ctx, all)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, ticker := range missing {
		m, err := j.fetcher.TickerMetadata(ctx, ticker)
		if err != nil {
			j.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to fetch metadata")
			if isRateLimit(err) {
				break
			}
			continue
		}
		m.Ticker = ticker
		if err := j.store.Upsert(ctx, m); err != nil {
			return stored, err
		}
		stored++
	}

	// diversification results depend on sector data
	if stored > 0 && j.cache != nil {
		if err := j.cache.InvalidateAnalytics(); err != nil {
			j.log.Warn().Err(err).Msg("Failed to invalidate analytics cache")
		}
	}

	j.log.Info().
		Int("missing", len(missing)).
		Int("stored", stored).
		Msg("Metadata sync completed")
	return stored, nil
}
