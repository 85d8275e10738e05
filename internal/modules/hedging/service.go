package hedging

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// HoldingsSource returns the holdings of a stored portfolio.
type HoldingsSource interface {
	Holdings(ctx context.Context, portfolioID string) ([]domain.Holding, error)
}

// ChainLoader loads options chains for several tickers.
type ChainLoader interface {
	OptionsChains(ctx context.Context, tickers []string) (map[string][]domain.OptionQuote, error)
}

// ResultCache stores computed results by key.
type ResultCache interface {
	Get(key string, dest interface{}) (bool, error)
	Set(key string, value interface{}) error
}

// ChainStore persists quoted option contracts.
type ChainStore interface {
	Upsert(ctx context.Context, quotes []domain.OptionQuote) error
}

// Invalidator drops cached hedging results after new quotes arrive.
type Invalidator interface {
	InvalidateHedging() error
}

// KeyFunc builds the cache key of a hedging analysis.
type KeyFunc func(portfolioID string, asOf time.Time, targetProtection, targetPremium float64) string

// ServiceDeps are the service collaborators. Cache, Key, Store and
// Invalidator are optional.
type ServiceDeps struct {
	Holdings    HoldingsSource
	Chains      ChainLoader
	Cache       ResultCache
	Key         KeyFunc
	Store       ChainStore
	Invalidator Invalidator
}

// Service produces hedging suggestions for stored portfolios.
type Service struct {
	holdings    HoldingsSource
	chains      ChainLoader
	cache       ResultCache
	key         KeyFunc
	store       ChainStore
	invalidator Invalidator
	now         func() time.Time
	log         zerolog.Logger
}

// NewService creates a new hedging service
func NewService(deps ServiceDeps, log zerolog.Logger) *Service {
	return &Service{
		holdings:    deps.Holdings,
		chains:      deps.Chains,
		cache:       deps.Cache,
		key:         deps.Key,
		store:       deps.Store,
		invalidator: deps.Invalidator,
		now:         time.Now,
		log:         log.With().Str("service", "hedging").Logger(),
	}
}

// PortfolioHedging suggests hedges for every holding of a stored portfolio as of today.
func (s *Service) PortfolioHedging(ctx context.Context, portfolioID string, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	asOf := domain.TruncateDay(s.now())

	var key string
	if s.cache != nil && s.key != nil {
		key = s.key(portfolioID, asOf, req.TargetProtection, req.TargetPremium)
		var cached Result
		found, err := s.cache.Get(key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to read cached hedging result")
		} else if found {
			return cached, nil
		}
	}

	holdings, err := s.holdings.Holdings(ctx, portfolioID)
	if err != nil {
		return Result{}, err
	}
	chains, err := s.chains.OptionsChains(ctx, domain.Tickers(holdings))
	if err != nil {
		return Result{}, err
	}

	result, err := Analyze(Snapshot{AsOf: asOf, Holdings: holdings, Chains: chains}, req)
	if err != nil {
		return Result{}, err
	}
	s.log.Debug().
		Str("portfolio_id", portfolioID).
		Int("suggestions", len(result.Suggestions)).
		Int("skipped", len(result.Skipped)).
		Msg("Hedging analysis complete")

	if key != "" {
		if err := s.cache.Set(key, result); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache hedging result")
		}
	}
	return result, nil
}

// StoreResult summarizes an options chain upload.
type StoreResult struct {
	Stored  int      `json:"stored"`
	Tickers []string `json:"tickers"`
}

// StoreQuotes validates and persists option quotes, then drops cached
// hedging results so the next analysis sees the new chain. Tickers are
// upper-cased and a missing as-of date defaults to today.
func (s *Service) StoreQuotes(ctx context.Context, quotes []domain.OptionQuote) (StoreResult, error) {
	if s.store == nil {
		return StoreResult{}, fmt.Errorf("options chain storage is not configured")
	}
	if len(quotes) == 0 {
		return StoreResult{}, fmt.Errorf("%w: no quotes supplied", domain.ErrInvalidOptionQuote)
	}

	today := domain.TruncateDay(s.now())
	normalized := make([]domain.OptionQuote, len(quotes))
	seen := make(map[string]bool)
	var tickers []string
	for i, q := range quotes {
		q.Ticker = strings.ToUpper(strings.TrimSpace(q.Ticker))
		if q.AsOf.IsZero() {
			q.AsOf = today
		}
		q.AsOf = domain.TruncateDay(q.AsOf)
		q.ExpirationDate = domain.TruncateDay(q.ExpirationDate)
		if err := q.Validate(); err != nil {
			return StoreResult{}, fmt.Errorf("quote %d: %w", i, err)
		}
		normalized[i] = q
		if !seen[q.Ticker] {
			seen[q.Ticker] = true
			tickers = append(tickers, q.Ticker)
		}
	}
	sort.Strings(tickers)

	if err := s.store.Upsert(ctx, normalized); err != nil {
		return StoreResult{}, fmt.Errorf("failed to store option quotes: %w", err)
	}
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateHedging(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to invalidate cached hedging results")
		}
	}
	s.log.Info().
		Int("quotes", len(normalized)).
		Strs("tickers", tickers).
		Msg("Stored option quotes")
	return StoreResult{Stored: len(normalized), Tickers: tickers}, nil
}
