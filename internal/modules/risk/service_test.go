package risk

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/calculations"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
	testingpkg "github.com/aristath/portfolio-analytics/internal/testing"
)

type holdingsByPortfolio map[string][]domain.Holding

func (h holdingsByPortfolio) Holdings(_ context.Context, id string) ([]domain.Holding, error) {
	holdings, ok := h[id]
	if !ok {
		return nil, domain.ErrPortfolioNotFound
	}
	return holdings, nil
}

type serviceFixture struct {
	service *Service
	market  *testingpkg.MockMarketData
	cache   *calculations.Cache
}

func newServiceFixture(t *testing.T, correlated bool) serviceFixture {
	t.Helper()
	market := testingpkg.NewMockMarketData()
	market.SetPrices(testingpkg.OscillatingSeries("AAPL", 300, 180, 0.03, 11))
	market.SetPrices(testingpkg.OscillatingSeries("XOM", 300, 100, 0.02, 7))
	market.SetBenchmark(testingpkg.OscillatingSeries("SPY", 300, 450, 0.015, 11))
	market.SetRiskFreeRate(0.03)

	loader := marketdata.NewLoader(marketdata.LoaderDeps{
		Prices:    market,
		Benchmark: market,
		RiskFree:  market,
	}, 2, zerolog.Nop())

	cache := calculations.NewCache(testingpkg.NewTestDB(t, "cache").Conn(), time.Hour, zerolog.Nop())

	holdings := holdingsByPortfolio{
		"p1": {
			{Ticker: "AAPL", Shares: 50, PurchasePrice: 140, CurrentPrice: 175.50},
			{Ticker: "XOM", Shares: 60, PurchasePrice: 100, CurrentPrice: 110},
		},
		"empty": {},
	}

	svc := NewService(newTestEngine(), ServiceDeps{
		Holdings:   holdings,
		Market:     loader,
		Cache:      cache,
		Key:        calculations.RiskKey,
		Correlated: correlated,
	}, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 11, 4, 15, 0, 0, 0, time.UTC) }

	return serviceFixture{service: svc, market: market, cache: cache}
}

func TestService_PortfolioRisk(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	result, err := f.service.PortfolioRisk(ctx, "p1", Request{})
	require.NoError(t, err)

	assert.Equal(t, domain.Window1Y, result.Window)
	assert.Equal(t, time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC), result.AsOf)
	assert.Empty(t, result.Excluded)
	assert.Equal(t, MethodUncorrelated, result.Volatility.Method)
	require.Len(t, result.VaR, 1)
	assert.Equal(t, 0.95, result.VaR[0].ConfidenceLevel)
	require.NotNil(t, result.Beta)
	require.NotNil(t, result.SharpeRatio)
}

func TestService_PortfolioRiskIsCached(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()
	req := Request{Window: domain.Window90D, ConfidenceLevels: []float64{0.99, 0.95}}

	first, err := f.service.PortfolioRisk(ctx, "p1", req)
	require.NoError(t, err)
	calls := f.market.Calls("AAPL")

	second, err := f.service.PortfolioRisk(ctx, "p1", req)
	require.NoError(t, err)
	assert.Equal(t, calls, f.market.Calls("AAPL"), "second call must be served from cache")

	assert.InDelta(t, first.Volatility.Portfolio, second.Volatility.Portfolio, 1e-12)
	assert.Equal(t, first.Observations, second.Observations)
	require.Len(t, second.VaR, 2)
	assert.Equal(t, 0.95, second.VaR[0].ConfidenceLevel)
	assert.True(t, first.AsOf.Equal(second.AsOf))

	// New prices invalidate
	require.NoError(t, f.cache.InvalidateAnalytics())
	_, err = f.service.PortfolioRisk(ctx, "p1", req)
	require.NoError(t, err)
	assert.Greater(t, f.market.Calls("AAPL"), calls)
}

func TestService_PortfolioRiskCorrelated(t *testing.T) {
	f := newServiceFixture(t, true)

	result, err := f.service.PortfolioRisk(context.Background(), "p1", Request{})
	require.NoError(t, err)
	assert.Equal(t, MethodCorrelated, result.Volatility.Method)
	assert.Greater(t, result.Volatility.Portfolio, 0.0)
}

func TestService_PortfolioRiskErrors(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	_, err := f.service.PortfolioRisk(ctx, "p1", Request{ConfidenceLevels: []float64{0.5}})
	assert.ErrorIs(t, err, domain.ErrInvalidConfidenceLevel)
	assert.Zero(t, f.market.Calls("AAPL"), "invalid requests are rejected before any fetch")

	_, err = f.service.PortfolioRisk(ctx, "missing", Request{})
	assert.ErrorIs(t, err, domain.ErrPortfolioNotFound)

	result, err := f.service.PortfolioRisk(ctx, "empty", Request{})
	require.NoError(t, err)
	assert.True(t, result.Empty)
}

func TestService_SecurityVolatility(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	vol, err := f.service.SecurityVolatility(ctx, "AAPL", domain.Window90D)
	require.NoError(t, err)
	assert.Equal(t, 89, vol.Observations)
	assert.Greater(t, vol.Volatility, 0.0)
	assert.GreaterOrEqual(t, vol.MaxDrawdown, 0.0)

	_, err = f.service.SecurityVolatility(ctx, "UNKNOWN", domain.Window1Y)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	_, err = f.service.SecurityVolatility(ctx, "AAPL", domain.Window("2W"))
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestService_RollingVolatility(t *testing.T) {
	f := newServiceFixture(t, false)
	ctx := context.Background()

	points, err := f.service.RollingVolatility(ctx, "XOM", domain.Window30D, 20)
	require.NoError(t, err)

	// 30 closes, 29 returns, windows ending at returns 19..28
	require.Len(t, points, 10)
	series := testingpkg.OscillatingSeries("XOM", 300, 100, 0.02, 7).Tail(30)
	assert.Equal(t, series.Points[20].Date, points[0].Date)
	assert.Equal(t, series.Points[29].Date, points[9].Date)
	for _, p := range points {
		assert.Greater(t, p.Volatility, 0.0)
	}

	_, err = f.service.RollingVolatility(ctx, "XOM", domain.Window30D, 30)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	_, err = f.service.RollingVolatility(ctx, "XOM", domain.Window30D, 1)
	assert.Error(t, err)
}
