package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

type fakeTickers struct {
	tickers []string
	err     error
}

func (f fakeTickers) AllTickers(context.Context) ([]string, error) {
	return f.tickers, f.err
}

type fakeFetcher struct {
	errs    map[string]error
	windows map[string]domain.Window
}

func (f *fakeFetcher) PriceHistory(_ context.Context, ticker string, window domain.Window) (domain.PriceSeries, error) {
	if f.windows == nil {
		f.windows = map[string]domain.Window{}
	}
	f.windows[ticker] = window
	if err := f.errs[ticker]; err != nil {
		return domain.PriceSeries{}, err
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.PriceSeries{
		Ticker: ticker,
		Points: []domain.PricePoint{
			{Date: start, Close: 100},
			{Date: start.AddDate(0, 0, 1), Close: 101.5},
		},
	}, nil
}

type fakeHistory struct {
	stored   map[string]int
	upserted map[string]int
}

func (f *fakeHistory) LastN(_ context.Context, ticker string, limit int) (domain.PriceSeries, error) {
	n := min(f.stored[ticker], limit)
	return domain.PriceSeries{Ticker: ticker, Points: make([]domain.PricePoint, n)}, nil
}

func (f *fakeHistory) Upsert(_ context.Context, series domain.PriceSeries) error {
	if f.upserted == nil {
		f.upserted = map[string]int{}
	}
	f.upserted[series.Ticker] += series.Len()
	return nil
}

type fakeUpdater struct {
	prices map[string]float64
}

func (f *fakeUpdater) UpdateCurrentPrice(_ context.Context, ticker string, price float64) (int64, error) {
	if f.prices == nil {
		f.prices = map[string]float64{}
	}
	f.prices[ticker] = price
	return 1, nil
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateAnalytics() error {
	f.calls++
	return nil
}

type fakeQuotes struct {
	quotes map[string]domain.PricePoint
	errs   map[string]error
}

func (f fakeQuotes) LatestPrice(_ context.Context, ticker string) (domain.PricePoint, error) {
	if err := f.errs[ticker]; err != nil {
		return domain.PricePoint{}, err
	}
	return f.quotes[ticker], nil
}

type limitErr struct{}

func (limitErr) Error() string     { return "limit" }
func (limitErr) RateLimited() bool { return true }

func TestRefreshPricesJob_Refresh(t *testing.T) {
	fetcher := &fakeFetcher{}
	history := &fakeHistory{stored: map[string]int{"AAPL": 300}}
	updater := &fakeUpdater{}
	cache := &fakeInvalidator{}

	job := NewRefreshPricesJob(RefreshPricesDeps{
		Tickers:   fakeTickers{tickers: []string{"AAPL", "JNJ"}},
		Fetcher:   fetcher,
		History:   history,
		Holdings:  updater,
		Cache:     cache,
		Benchmark: "spy",
	}, zerolog.Nop())

	result, err := job.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Tickers)
	assert.Equal(t, 3, result.Refreshed)
	assert.Empty(t, result.Failed)
	assert.Equal(t, int64(3), result.HoldingRows)

	// AAPL already has a year stored; the others are backfilled
	assert.Equal(t, domain.Window90D, fetcher.windows["AAPL"])
	assert.Equal(t, domain.Window5Y, fetcher.windows["JNJ"])
	assert.Equal(t, domain.Window5Y, fetcher.windows["SPY"])

	assert.Equal(t, 2, history.upserted["SPY"])
	assert.Equal(t, 101.5, updater.prices["JNJ"])
	assert.Equal(t, 1, cache.calls)
}

func TestRefreshPricesJob_LiveQuotes(t *testing.T) {
	lastClose := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	updater := &fakeUpdater{}

	job := NewRefreshPricesJob(RefreshPricesDeps{
		Tickers: fakeTickers{tickers: []string{"AAPL", "JNJ", "BND", "VTI"}},
		Fetcher: &fakeFetcher{},
		Quotes: fakeQuotes{
			quotes: map[string]domain.PricePoint{
				"AAPL": {Date: lastClose.Add(15 * time.Hour), Close: 103.25},
				"JNJ":  {Date: lastClose.AddDate(0, 0, -1), Close: 99},
				"VTI":  {Date: lastClose, Close: 0},
			},
			errs: map[string]error{"BND": errors.New("symbol not found")},
		},
		History:  &fakeHistory{},
		Holdings: updater,
	}, zerolog.Nop())

	result, err := job.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Refreshed)

	assert.Equal(t, 103.25, updater.prices["AAPL"])
	// stale, failed and empty quotes fall back to the last close
	assert.Equal(t, 101.5, updater.prices["JNJ"])
	assert.Equal(t, 101.5, updater.prices["BND"])
	assert.Equal(t, 101.5, updater.prices["VTI"])
}

func TestRefreshPricesJob_BenchmarkNotDuplicated(t *testing.T) {
	history := &fakeHistory{}
	job := NewRefreshPricesJob(RefreshPricesDeps{
		Tickers:   fakeTickers{tickers: []string{"SPY"}},
		Fetcher:   &fakeFetcher{},
		History:   history,
		Benchmark: "SPY",
	}, zerolog.Nop())

	result, err := job.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Tickers)
	assert.Equal(t, 2, history.upserted["SPY"])
}

func TestRefreshPricesJob_PartialFailure(t *testing.T) {
	cache := &fakeInvalidator{}
	job := NewRefreshPricesJob(RefreshPricesDeps{
		Tickers:  fakeTickers{tickers: []string{"AAPL", "BAD"}},
		Fetcher:  &fakeFetcher{errs: map[string]error{"BAD": errors.New("not found")}},
		History:  &fakeHistory{},
		Holdings: &fakeUpdater{},
		Cache:    cache,
	}, zerolog.Nop())

	result, err := job.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Refreshed)
	assert.Equal(t, []string{"BAD"}, result.Failed)
	assert.Equal(t, 1, cache.calls)
}

func TestRefreshPricesJob_StopsOnRateLimit(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{"B": limitErr{}}}
	job := NewRefreshPricesJob(RefreshPricesDeps{
		Tickers: fakeTickers{tickers: []string{"A", "B", "C"}},
		Fetcher: fetcher,
		History: &fakeHistory{},
	}, zerolog.Nop())

	result, err := job.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Refreshed)
	assert.Equal(t, []string{"B", "C"}, result.Failed)
	assert.NotContains(t, fetcher.windows, "C")
}

func TestRefreshPricesJob_Errors(t *testing.T) {
	t.Run("ticker listing fails", func(t *testing.T) {
		job := NewRefreshPricesJob(RefreshPricesDeps{
			Tickers: fakeTickers{err: errors.New("db down")},
		}, zerolog.Nop())
		_, err := job.Refresh(context.Background())
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("everything fails", func(t *testing.T) {
		cache := &fakeInvalidator{}
		job := NewRefreshPricesJob(RefreshPricesDeps{
			Tickers: fakeTickers{tickers: []string{"X"}},
			Fetcher: &fakeFetcher{errs: map[string]error{"X": errors.New("nope")}},
			History: &fakeHistory{},
			Cache:   cache,
		}, zerolog.Nop())
		_, err := job.Refresh(context.Background())
		assert.Error(t, err)
		assert.Zero(t, cache.calls)
	})

	t.Run("nothing to refresh", func(t *testing.T) {
		job := NewRefreshPricesJob(RefreshPricesDeps{
			Tickers: fakeTickers{},
		}, zerolog.Nop())
		result, err := job.Refresh(context.Background())
		require.NoError(t, err)
		assert.Zero(t, result.Tickers)
	})
}

func TestRefreshPricesJob_Name(t *testing.T) {
	job := NewRefreshPricesJob(RefreshPricesDeps{}, zerolog.Nop())
	assert.Equal(t, "refresh_prices", job.Name())
}
