package marketdata

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// Loader fetches market data for many tickers with bounded concurrency.
// A failed fetch is logged and leaves the ticker without data; the engine
// then reports it as excluded instead of failing the whole request.
type Loader struct {
	prices      PriceHistoryProvider
	benchmark   BenchmarkProvider
	riskFree    RiskFreeRateProvider
	metadata    MetadataProvider
	options     OptionsChainProvider
	concurrency int
	log         zerolog.Logger
}

// LoaderDeps groups the collaborators a Loader reads from.
type LoaderDeps struct {
	Prices    PriceHistoryProvider
	Benchmark BenchmarkProvider
	RiskFree  RiskFreeRateProvider
	Metadata  MetadataProvider
	Options   OptionsChainProvider
}

// NewLoader creates a loader. concurrency below one is treated as one.
func NewLoader(deps LoaderDeps, concurrency int, log zerolog.Logger) *Loader {
	return &Loader{
		prices:      deps.Prices,
		benchmark:   deps.Benchmark,
		riskFree:    deps.RiskFree,
		metadata:    deps.Metadata,
		options:     deps.Options,
		concurrency: max(concurrency, 1),
		log:         log.With().Str("component", "marketdata_loader").Logger(),
	}
}

// PriceHistories fetches each ticker's history for window. Tickers whose
// fetch fails are absent from the result.
func (l *Loader) PriceHistories(ctx context.Context, tickers []string, window domain.Window) (map[string]domain.PriceSeries, error) {
	var mu sync.Mutex
	out := make(map[string]domain.PriceSeries, len(tickers))

	err := l.forEach(ctx, tickers, func(ctx context.Context, ticker string) {
		series, err := l.prices.PriceHistory(ctx, ticker, window)
		if err != nil {
			l.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to load price history")
			return
		}
		mu.Lock()
		out[ticker] = series
		mu.Unlock()
	})
	return out, err
}

// BenchmarkHistory returns the benchmark history, or nil when unavailable.
func (l *Loader) BenchmarkHistory(ctx context.Context, window domain.Window) *domain.PriceSeries {
	if l.benchmark == nil {
		return nil
	}
	series, err := l.benchmark.BenchmarkHistory(ctx, window)
	if err != nil {
		l.log.Warn().Err(err).Msg("Failed to load benchmark history")
		return nil
	}
	return &series
}

// RiskFreeRate returns the configured rate, falling back to zero on error.
func (l *Loader) RiskFreeRate(ctx context.Context) float64 {
	if l.riskFree == nil {
		return 0
	}
	rate, err := l.riskFree.RiskFreeRate(ctx)
	if err != nil {
		l.log.Warn().Err(err).Msg("Failed to load risk-free rate, using 0")
		return 0
	}
	return rate
}

// Enrich fills each holding's missing sector, industry and asset class from
// the metadata provider. Lookups that fail leave the holding unchanged, so
// the domain defaults apply downstream.
func (l *Loader) Enrich(ctx context.Context, holdings []domain.Holding) ([]domain.Holding, error) {
	out := make([]domain.Holding, len(holdings))
	copy(out, holdings)
	if l.metadata == nil {
		return out, nil
	}

	var mu sync.Mutex
	meta := make(map[string]domain.TickerMetadata, len(holdings))
	err := l.forEach(ctx, domain.Tickers(holdings), func(ctx context.Context, ticker string) {
		m, err := l.metadata.TickerMetadata(ctx, ticker)
		if err != nil {
			l.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to load ticker metadata")
			return
		}
		mu.Lock()
		meta[ticker] = m
		mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	for i, h := range out {
		if m, ok := meta[h.Ticker]; ok {
			out[i] = h.WithMetadata(m)
		}
	}
	return out, nil
}

// OptionsChains fetches the chain for each ticker. Tickers whose fetch
// fails map to an empty chain.
func (l *Loader) OptionsChains(ctx context.Context, tickers []string) (map[string][]domain.OptionQuote, error) {
	var mu sync.Mutex
	out := make(map[string][]domain.OptionQuote, len(tickers))
	if l.options == nil {
		return out, nil
	}

	err := l.forEach(ctx, tickers, func(ctx context.Context, ticker string) {
		chain, err := l.options.OptionsChain(ctx, ticker)
		if err != nil {
			l.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to load options chain")
			chain = nil
		}
		mu.Lock()
		out[ticker] = chain
		mu.Unlock()
	})
	return out, err
}

// forEach runs fn for every ticker with at most l.concurrency in flight.
// Only context cancellation is returned as an error.
func (l *Loader) forEach(ctx context.Context, tickers []string, fn func(context.Context, string)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, ticker := range tickers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(gctx, ticker)
			return nil
		})
	}
	return g.Wait()
}
