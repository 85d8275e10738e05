package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/risk"
)

// snapshotFile is the on-disk input of every subcommand. Only the sections a
// subcommand reads need to be present.
type snapshotFile struct {
	AsOf         string                          `json:"as_of"`
	Holdings     []domain.Holding                `json:"holdings"`
	Prices       map[string][]closePoint         `json:"prices"`
	Benchmark    []closePoint                    `json:"benchmark"`
	RiskFreeRate *float64                        `json:"risk_free_rate"`
	Chains       map[string][]domain.OptionQuote `json:"chains"`
}

type closePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

func readSnapshot(path string) (*snapshotFile, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot: %w", err)
		}
		defer f.Close()
		r = f
	}
	return decodeSnapshot(r)
}

func decodeSnapshot(r io.Reader) (*snapshotFile, error) {
	var snap snapshotFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	for i := range snap.Holdings {
		snap.Holdings[i].Ticker = strings.ToUpper(strings.TrimSpace(snap.Holdings[i].Ticker))
		if err := snap.Holdings[i].Validate(); err != nil {
			return nil, fmt.Errorf("holding %d: %w", i+1, err)
		}
	}
	return &snap, nil
}

// asOf returns the snapshot date, defaulting to today.
func (s *snapshotFile) asOf(now time.Time) (time.Time, error) {
	if s.AsOf == "" {
		return domain.TruncateDay(now), nil
	}
	t, err := time.Parse(domain.DateLayout, s.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as_of %q: %w", s.AsOf, err)
	}
	return t, nil
}

func toSeries(ticker string, points []closePoint) (domain.PriceSeries, error) {
	series := domain.PriceSeries{Ticker: ticker, Points: make([]domain.PricePoint, 0, len(points))}
	for _, p := range points {
		d, err := time.Parse(domain.DateLayout, p.Date)
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("%s: invalid date %q", ticker, p.Date)
		}
		series.Points = append(series.Points, domain.PricePoint{Date: d, Close: p.Close})
	}
	if err := series.Validate(); err != nil {
		return domain.PriceSeries{}, err
	}
	return series, nil
}

// riskSnapshot builds the engine input, optionally with a correlation matrix
// estimated from the supplied histories.
func (s *snapshotFile) riskSnapshot(now time.Time, window domain.Window, defaultRate float64, correlated bool, minObs int) (risk.Snapshot, error) {
	asOf, err := s.asOf(now)
	if err != nil {
		return risk.Snapshot{}, err
	}
	snap := risk.Snapshot{
		AsOf:         asOf,
		Holdings:     s.Holdings,
		Prices:       make(map[string]domain.PriceSeries, len(s.Prices)),
		RiskFreeRate: defaultRate,
	}
	if s.RiskFreeRate != nil {
		snap.RiskFreeRate = *s.RiskFreeRate
	}
	for ticker, points := range s.Prices {
		series, err := toSeries(strings.ToUpper(ticker), points)
		if err != nil {
			return risk.Snapshot{}, err
		}
		snap.Prices[series.Ticker] = series
	}
	if len(s.Benchmark) > 0 {
		bench, err := toSeries("BENCHMARK", s.Benchmark)
		if err != nil {
			return risk.Snapshot{}, err
		}
		snap.Benchmark = &bench
	}
	if correlated {
		corr, err := risk.CorrelationFromPrices(snap.Prices, window, minObs)
		if err != nil {
			return risk.Snapshot{}, err
		}
		snap.Correlation = corr
	}
	return snap, nil
}

func (s *snapshotFile) chains() map[string][]domain.OptionQuote {
	out := make(map[string][]domain.OptionQuote, len(s.Chains))
	for ticker, quotes := range s.Chains {
		out[strings.ToUpper(ticker)] = quotes
	}
	return out
}
