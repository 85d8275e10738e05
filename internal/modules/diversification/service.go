package diversification

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// HoldingsSource returns the holdings of a stored portfolio.
type HoldingsSource interface {
	Holdings(ctx context.Context, portfolioID string) ([]domain.Holding, error)
}

// Enricher fills missing holding classification.
type Enricher interface {
	Enrich(ctx context.Context, holdings []domain.Holding) ([]domain.Holding, error)
}

// ResultCache stores computed results by key.
type ResultCache interface {
	Get(key string, dest interface{}) (bool, error)
	Set(key string, value interface{}) error
}

// ServiceDeps are the service collaborators. Enricher, Cache and Key are optional.
type ServiceDeps struct {
	Holdings HoldingsSource
	Enricher Enricher
	Cache    ResultCache
	Key      func(portfolioID string) string
}

// Service scores stored portfolios.
type Service struct {
	holdings HoldingsSource
	enricher Enricher
	cache    ResultCache
	key      func(string) string
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a new diversification service
func NewService(deps ServiceDeps, log zerolog.Logger) *Service {
	return &Service{
		holdings: deps.Holdings,
		enricher: deps.Enricher,
		cache:    deps.Cache,
		key:      deps.Key,
		now:      time.Now,
		log:      log.With().Str("service", "diversification").Logger(),
	}
}

// PortfolioDiversification scores a stored portfolio.
func (s *Service) PortfolioDiversification(ctx context.Context, portfolioID string) (Result, error) {
	var key string
	if s.cache != nil && s.key != nil {
		key = s.key(portfolioID)
		var cached Result
		found, err := s.cache.Get(key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to read cached diversification result")
		} else if found {
			return cached, nil
		}
	}

	holdings, err := s.holdings.Holdings(ctx, portfolioID)
	if err != nil {
		return Result{}, err
	}
	if s.enricher != nil {
		if holdings, err = s.enricher.Enrich(ctx, holdings); err != nil {
			return Result{}, err
		}
	}

	result := Score(holdings)
	result.AsOf = domain.TruncateDay(s.now())
	s.log.Debug().
		Str("portfolio_id", portfolioID).
		Float64("score", result.Score).
		Int("recommendations", len(result.Recommendations)).
		Msg("Diversification scored")

	if key != "" {
		if err := s.cache.Set(key, result); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache diversification result")
		}
	}
	return result, nil
}
