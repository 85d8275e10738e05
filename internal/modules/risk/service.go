package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/aristath/portfolio-analytics/pkg/formulas"
)

// HoldingsSource returns the holdings of a stored portfolio.
type HoldingsSource interface {
	Holdings(ctx context.Context, portfolioID string) ([]domain.Holding, error)
}

// MarketData materializes the market inputs of an analysis.
type MarketData interface {
	PriceHistories(ctx context.Context, tickers []string, window domain.Window) (map[string]domain.PriceSeries, error)
	BenchmarkHistory(ctx context.Context, window domain.Window) *domain.PriceSeries
	RiskFreeRate(ctx context.Context) float64
}

// ResultCache stores computed results by key.
type ResultCache interface {
	Get(key string, dest interface{}) (bool, error)
	Set(key string, value interface{}) error
}

// KeyFunc builds the cache key of a risk analysis.
type KeyFunc func(portfolioID string, window domain.Window, asOf time.Time, confidences []float64) string

// ServiceDeps are the service collaborators. Cache and Key are optional.
type ServiceDeps struct {
	Holdings HoldingsSource
	Market   MarketData
	Cache    ResultCache
	Key      KeyFunc
	// Correlated estimates a correlation matrix from the loaded histories and
	// uses the covariance form of portfolio volatility.
	Correlated bool
}

// Service runs risk analyses for stored portfolios and single securities.
type Service struct {
	engine     *Engine
	holdings   HoldingsSource
	market     MarketData
	cache      ResultCache
	key        KeyFunc
	correlated bool
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a new risk service
func NewService(engine *Engine, deps ServiceDeps, log zerolog.Logger) *Service {
	return &Service{
		engine:     engine,
		holdings:   deps.Holdings,
		market:     deps.Market,
		cache:      deps.Cache,
		key:        deps.Key,
		correlated: deps.Correlated,
		now:        time.Now,
		log:        log.With().Str("service", "risk").Logger(),
	}
}

// PortfolioRisk analyzes a stored portfolio as of today. Results are cached
// per portfolio, window, date and confidence set.
func (s *Service) PortfolioRisk(ctx context.Context, portfolioID string, req Request) (Result, error) {
	req, err := req.Normalize()
	if err != nil {
		return Result{}, err
	}
	asOf := domain.TruncateDay(s.now())

	var key string
	if s.cache != nil && s.key != nil {
		key = s.key(portfolioID, req.Window, asOf, req.ConfidenceLevels)
		var cached Result
		found, err := s.cache.Get(key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to read cached risk result")
		} else if found {
			return cached, nil
		}
	}

	holdings, err := s.holdings.Holdings(ctx, portfolioID)
	if err != nil {
		return Result{}, err
	}

	snap, err := s.snapshot(ctx, holdings, req.Window, asOf)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	result, err := s.engine.Analyze(snap, req)
	if err != nil {
		return Result{}, err
	}
	s.log.Debug().
		Str("portfolio_id", portfolioID).
		Str("window", string(req.Window)).
		Int("excluded", len(result.Excluded)).
		Dur("duration", time.Since(start)).
		Msg("Risk analysis complete")

	if key != "" {
		if err := s.cache.Set(key, result); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache risk result")
		}
	}
	return result, nil
}

func (s *Service) snapshot(ctx context.Context, holdings []domain.Holding, window domain.Window, asOf time.Time) (Snapshot, error) {
	prices, err := s.market.PriceHistories(ctx, domain.Tickers(holdings), window)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		AsOf:         asOf,
		Holdings:     holdings,
		Prices:       prices,
		Benchmark:    s.market.BenchmarkHistory(ctx, window),
		RiskFreeRate: s.market.RiskFreeRate(ctx),
	}
	if s.correlated {
		snap.Correlation = s.correlation(prices, window)
	}
	return snap, nil
}

// correlation returns nil when fewer than two tickers have usable history,
// which falls back to the uncorrelated volatility.
func (s *Service) correlation(prices map[string]domain.PriceSeries, window domain.Window) *CorrelationMatrix {
	corr, err := CorrelationFromPrices(prices, window, s.engine.Policy().MinObservations)
	if err != nil {
		s.log.Warn().Err(err).Msg("Falling back to uncorrelated volatility")
		return nil
	}
	return corr
}

// SecurityVolatility is a single ticker's annualized volatility.
type SecurityVolatility struct {
	Ticker       string        `json:"ticker"`
	Window       domain.Window `json:"window"`
	Volatility   float64       `json:"volatility"`
	Observations int           `json:"observations"`
	MaxDrawdown  float64       `json:"max_drawdown"`
}

// SecurityVolatility computes one ticker's volatility over a window.
func (s *Service) SecurityVolatility(ctx context.Context, ticker string, window domain.Window) (SecurityVolatility, error) {
	if window == "" {
		window = domain.DefaultWindow
	}
	if err := window.Validate(); err != nil {
		return SecurityVolatility{}, err
	}

	prices, err := s.history(ctx, ticker, window)
	if err != nil {
		return SecurityVolatility{}, err
	}
	vol, err := s.engine.Volatility(prices)
	if err != nil {
		return SecurityVolatility{}, err
	}
	r := returns.Collect(prices)
	return SecurityVolatility{
		Ticker:       ticker,
		Window:       window,
		Volatility:   vol,
		Observations: r.Len(),
		MaxDrawdown:  s.engine.MaxDrawdown(r.Values),
	}, nil
}

// RollingPoint is the trailing volatility ending on Date, in percent.
type RollingPoint struct {
	Date       time.Time `json:"date"`
	Volatility float64   `json:"volatility"`
}

// RollingVolatility returns the annualized volatility over a trailing window
// of period returns for each date with a full window.
func (s *Service) RollingVolatility(ctx context.Context, ticker string, window domain.Window, period int) ([]RollingPoint, error) {
	if window == "" {
		window = domain.DefaultWindow
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if period < 2 {
		return nil, fmt.Errorf("rolling period must be at least 2, got %d", period)
	}

	prices, err := s.history(ctx, ticker, window)
	if err != nil {
		return nil, err
	}
	if prices.Len() < period+1 {
		return nil, &domain.InsufficientDataError{Ticker: ticker, Have: prices.Len(), Need: period + 1}
	}

	vols := formulas.RollingVolatility(prices.Closes(), period)
	// The first full window ends on the return at index period-1, i.e. the
	// price at index period.
	points := make([]RollingPoint, 0, len(vols))
	for i, v := range vols {
		if math.IsNaN(v) {
			continue
		}
		points = append(points, RollingPoint{Date: prices.Points[period+i].Date, Volatility: v * 100})
	}
	return points, nil
}

func (s *Service) history(ctx context.Context, ticker string, window domain.Window) (domain.PriceSeries, error) {
	histories, err := s.market.PriceHistories(ctx, []string{ticker}, window)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	prices, ok := histories[ticker]
	if !ok {
		return domain.PriceSeries{}, &domain.InsufficientDataError{Ticker: ticker, Need: s.engine.Policy().MinObservations}
	}
	prices.Ticker = ticker
	return prices, nil
}
