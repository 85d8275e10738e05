package testing

import (
	"math"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// FixtureStart is the first date of every generated price series.
var FixtureStart = time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)

// SeriesFromCloses builds a daily price series starting at FixtureStart.
func SeriesFromCloses(ticker string, closes ...float64) domain.PriceSeries {
	return SeriesFromClosesAt(ticker, FixtureStart, closes...)
}

// SeriesFromClosesAt builds a daily price series with consecutive calendar dates.
func SeriesFromClosesAt(ticker string, start time.Time, closes ...float64) domain.PriceSeries {
	points := make([]domain.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = domain.PricePoint{Date: start.AddDate(0, 0, i), Close: c}
	}
	return domain.PriceSeries{Ticker: ticker, Points: points}
}

// TrendingSeries compounds a constant daily return from a starting price.
func TrendingSeries(ticker string, n int, start, dailyReturn float64) domain.PriceSeries {
	closes := make([]float64, n)
	price := start
	for i := range closes {
		closes[i] = price
		price *= 1 + dailyReturn
	}
	return SeriesFromCloses(ticker, closes...)
}

// OscillatingSeries produces a deterministic series with non-zero volatility:
// the price swings around base by amplitude (a fraction) with the given period.
func OscillatingSeries(ticker string, n int, base, amplitude float64, period int) domain.PriceSeries {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base * (1 + amplitude*math.Sin(2*math.Pi*float64(i)/float64(period)))
	}
	return SeriesFromCloses(ticker, closes...)
}

// NewHoldingFixtures returns a small, multi-sector portfolio.
func NewHoldingFixtures() []domain.Holding {
	purchased := time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)
	return []domain.Holding{
		{
			Ticker:        "AAPL",
			Shares:        50,
			PurchasePrice: 140,
			CurrentPrice:  175.50,
			PurchaseDate:  purchased,
			Sector:        "Technology",
			Industry:      "Consumer Electronics",
			AssetClass:    "stock",
		},
		{
			Ticker:        "JNJ",
			Shares:        40,
			PurchasePrice: 165,
			CurrentPrice:  155,
			PurchaseDate:  purchased,
			Sector:        "Healthcare",
			Industry:      "Pharmaceuticals",
			AssetClass:    "stock",
		},
		{
			Ticker:        "XOM",
			Shares:        60,
			PurchasePrice: 100,
			CurrentPrice:  110,
			PurchaseDate:  purchased,
			Sector:        "Energy",
			Industry:      "Oil & Gas",
			AssetClass:    "stock",
		},
		{
			Ticker:        "BND",
			Shares:        100,
			PurchasePrice: 75,
			CurrentPrice:  72,
			PurchaseDate:  purchased,
			Sector:        "Fixed Income",
			Industry:      "Bond Fund",
			AssetClass:    "bond",
		},
	}
}

// NewOptionChainFixture returns puts and calls around a 175.50 underlying,
// quoted on asOf and expiring 30 days later.
func NewOptionChainFixture(ticker string, asOf time.Time) []domain.OptionQuote {
	expiry := asOf.AddDate(0, 0, 30)
	quote := func(t domain.OptionType, strike, bid, ask float64) domain.OptionQuote {
		return domain.OptionQuote{
			Ticker:         ticker,
			OptionType:     t,
			StrikePrice:    strike,
			ExpirationDate: expiry,
			AsOf:           asOf,
			BidPrice:       bid,
			AskPrice:       ask,
			LastPrice:      (bid + ask) / 2,
			Volume:         100,
			OpenInterest:   1000,
		}
	}
	return []domain.OptionQuote{
		quote(domain.OptionPut, 160, 1.40, 1.60),
		quote(domain.OptionPut, 165, 2.30, 2.50),
		quote(domain.OptionPut, 170, 3.80, 4.10),
		quote(domain.OptionCall, 170, 8.00, 8.40),
		quote(domain.OptionCall, 180, 3.60, 3.90),
		quote(domain.OptionCall, 185, 2.10, 2.30),
		quote(domain.OptionCall, 190, 0.90, 1.10),
	}
}
