package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// TickerSource lists every ticker held by a stored portfolio.
type TickerSource interface {
	AllTickers(ctx context.Context) ([]string, error)
}

// PriceFetcher downloads recent closes from the upstream provider.
type PriceFetcher interface {
	PriceHistory(ctx context.Context, ticker string, window domain.Window) (domain.PriceSeries, error)
}

// QuoteFetcher returns the latest traded price of a ticker.
type QuoteFetcher interface {
	LatestPrice(ctx context.Context, ticker string) (domain.PricePoint, error)
}

// HistoryStore persists daily closes.
type HistoryStore interface {
	LastN(ctx context.Context, ticker string, limit int) (domain.PriceSeries, error)
	Upsert(ctx context.Context, series domain.PriceSeries) error
}

// PriceUpdater stamps the latest close onto stored holdings.
type PriceUpdater interface {
	UpdateCurrentPrice(ctx context.Context, ticker string, price float64) (int64, error)
}

// Invalidator drops cached analytics after prices change.
type Invalidator interface {
	InvalidateAnalytics() error
}

// RefreshPricesDeps groups the collaborators of RefreshPricesJob. Quotes is
// optional; when set, holdings take the live quote instead of the last close.
type RefreshPricesDeps struct {
	Tickers   TickerSource
	Fetcher   PriceFetcher
	Quotes    QuoteFetcher
	History   HistoryStore
	Holdings  PriceUpdater
	Cache     Invalidator
	Benchmark string
}

// RefreshPricesJob pulls the latest closes for every held ticker and the
// benchmark, stores them, and refreshes holdings' current prices.
// Tickers with less than a year of stored history are backfilled with the
// longest window; the rest only fetch the recent window.
type RefreshPricesJob struct {
	deps    RefreshPricesDeps
	timeout time.Duration
	log     zerolog.Logger
}

// RefreshResult summarises one run.
type RefreshResult struct {
	Tickers     int
	Refreshed   int
	Failed      []string
	HoldingRows int64
}

// NewRefreshPricesJob creates the job.
func NewRefreshPricesJob(deps RefreshPricesDeps, log zerolog.Logger) *RefreshPricesJob {
	return &RefreshPricesJob{
		deps:    deps,
		timeout: 30 * time.Minute,
		log:     log.With().Str("job", "refresh_prices").Logger(),
	}
}

// Name returns the job name
func (j *RefreshPricesJob) Name() string {
	return "refresh_prices"
}

// Run executes the job with its own timeout.
func (j *RefreshPricesJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	_, err := j.Refresh(ctx)
	return err
}

// Refresh performs one refresh pass. Individual ticker failures are collected
// in the result; only a failure to list tickers aborts the pass.
func (j *RefreshPricesJob) Refresh(ctx context.Context) (RefreshResult, error) {
	tickers, err := j.deps.Tickers.AllTickers(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("failed to list tickers: %w", err)
	}
	if b := strings.ToUpper(strings.TrimSpace(j.deps.Benchmark)); b != "" && !slices.Contains(tickers, b) {
		tickers = append(tickers, b)
	}

	result := RefreshResult{Tickers: len(tickers)}
	for i, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, tickers[i:]...)
			break
		}
		rows, err := j.refreshTicker(ctx, ticker)
		if err != nil {
			j.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to refresh prices")
			result.Failed = append(result.Failed, ticker)
			if isRateLimit(err) {
				j.log.Warn().Int("remaining", len(tickers)-i-1).Msg("Upstream rate limit reached, stopping refresh")
				result.Failed = append(result.Failed, tickers[i+1:]...)
				break
			}
			continue
		}
		result.Refreshed++
		result.HoldingRows += rows
	}

	if result.Refreshed > 0 && j.deps.Cache != nil {
		if err := j.deps.Cache.InvalidateAnalytics(); err != nil {
			j.log.Warn().Err(err).Msg("Failed to invalidate analytics cache")
		}
	}

	j.log.Info().
		Int("tickers", result.Tickers).
		Int("refreshed", result.Refreshed).
		Int("failed", len(result.Failed)).
		Int64("holding_rows", result.HoldingRows).
		Msg("Price refresh completed")

	if result.Tickers > 0 && result.Refreshed == 0 {
		return result, fmt.Errorf("no ticker could be refreshed (%d failed)", len(result.Failed))
	}
	return result, nil
}

func (j *RefreshPricesJob) refreshTicker(ctx context.Context, ticker string) (int64, error) {
	window := domain.Window90D
	stored, err := j.deps.History.LastN(ctx, ticker, domain.Window1Y.Observations())
	if err != nil {
		return 0, err
	}
	if stored.Len() < domain.Window1Y.Observations() {
		window = domain.Window5Y
	}

	series, err := j.deps.Fetcher.PriceHistory(ctx, ticker, window)
	if err != nil {
		return 0, err
	}
	series.Ticker = ticker
	if err := j.deps.History.Upsert(ctx, series); err != nil {
		return 0, err
	}

	last, ok := series.Last()
	if !ok || j.deps.Holdings == nil {
		return 0, nil
	}
	return j.deps.Holdings.UpdateCurrentPrice(ctx, ticker, j.currentPrice(ctx, ticker, last))
}

// currentPrice prefers a live quote no older than the last stored close.
func (j *RefreshPricesJob) currentPrice(ctx context.Context, ticker string, last domain.PricePoint) float64 {
	if j.deps.Quotes == nil {
		return last.Close
	}
	quote, err := j.deps.Quotes.LatestPrice(ctx, ticker)
	if err != nil {
		j.log.Debug().Err(err).Str("ticker", ticker).Msg("Live quote unavailable, using last close")
		return last.Close
	}
	if quote.Close <= 0 || domain.TruncateDay(quote.Date).Before(domain.TruncateDay(last.Date)) {
		return last.Close
	}
	return quote.Close
}

type rateLimited interface {
	RateLimited() bool
}

func isRateLimit(err error) bool {
	var rl rateLimited
	return errors.As(err, &rl) && rl.RateLimited()
}
