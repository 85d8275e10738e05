package testing

import (
	"context"
	"errors"
	"sync"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

var errNoBenchmark = errors.New("no benchmark configured")

// MockMarketData implements every marketdata provider interface from
// in-memory maps. Errors set per ticker are returned instead of data.
type MockMarketData struct {
	mu        sync.RWMutex
	prices    map[string]domain.PriceSeries
	benchmark *domain.PriceSeries
	metadata  map[string]domain.TickerMetadata
	chains    map[string][]domain.OptionQuote
	errs      map[string]error
	rate      float64
	calls     map[string]int
}

// NewMockMarketData creates an empty mock.
func NewMockMarketData() *MockMarketData {
	return &MockMarketData{
		prices:   make(map[string]domain.PriceSeries),
		metadata: make(map[string]domain.TickerMetadata),
		chains:   make(map[string][]domain.OptionQuote),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

// SetPrices sets the history returned for series.Ticker.
func (m *MockMarketData) SetPrices(series domain.PriceSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[series.Ticker] = series
}

// SetBenchmark sets the benchmark history.
func (m *MockMarketData) SetBenchmark(series domain.PriceSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.benchmark = &series
}

// SetMetadata sets classification for a ticker.
func (m *MockMarketData) SetMetadata(meta domain.TickerMetadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[meta.Ticker] = meta
}

// SetChain sets the options chain for a ticker.
func (m *MockMarketData) SetChain(ticker string, chain []domain.OptionQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chains[ticker] = chain
}

// SetRiskFreeRate sets the returned rate.
func (m *MockMarketData) SetRiskFreeRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = rate
}

// SetError makes every lookup for ticker fail with err.
func (m *MockMarketData) SetError(ticker string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[ticker] = err
}

// Calls returns how many lookups were made for ticker.
func (m *MockMarketData) Calls(ticker string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[ticker]
}

func (m *MockMarketData) record(ticker string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[ticker]++
	return m.errs[ticker]
}

// PriceHistory implements marketdata.PriceHistoryProvider.
func (m *MockMarketData) PriceHistory(_ context.Context, ticker string, window domain.Window) (domain.PriceSeries, error) {
	if err := m.record(ticker); err != nil {
		return domain.PriceSeries{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.prices[ticker]
	if !ok {
		return domain.PriceSeries{Ticker: ticker}, nil
	}
	return s.Tail(window.Observations()), nil
}

// BenchmarkHistory implements marketdata.BenchmarkProvider.
func (m *MockMarketData) BenchmarkHistory(_ context.Context, window domain.Window) (domain.PriceSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.benchmark == nil {
		return domain.PriceSeries{}, errNoBenchmark
	}
	return m.benchmark.Tail(window.Observations()), nil
}

// RiskFreeRate implements marketdata.RiskFreeRateProvider.
func (m *MockMarketData) RiskFreeRate(context.Context) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rate, nil
}

// TickerMetadata implements marketdata.MetadataProvider.
func (m *MockMarketData) TickerMetadata(_ context.Context, ticker string) (domain.TickerMetadata, error) {
	if err := m.record(ticker); err != nil {
		return domain.TickerMetadata{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if meta, ok := m.metadata[ticker]; ok {
		return meta, nil
	}
	return domain.DefaultMetadata(ticker), nil
}

// OptionsChain implements marketdata.OptionsChainProvider.
func (m *MockMarketData) OptionsChain(_ context.Context, ticker string) ([]domain.OptionQuote, error) {
	if err := m.record(ticker); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chains[ticker], nil
}
