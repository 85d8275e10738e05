package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHolding_Defaults(t *testing.T) {
	h := Holding{Ticker: "AAPL", Shares: 10, CurrentPrice: 150}

	assert.Equal(t, "Unknown", h.SectorOrDefault())
	assert.Equal(t, "Unknown", h.IndustryOrDefault())
	assert.Equal(t, "stock", h.AssetClassOrDefault())

	h.Sector = "  Technology "
	h.AssetClass = "etf"
	assert.Equal(t, "Technology", h.SectorOrDefault())
	assert.Equal(t, "etf", h.AssetClassOrDefault())
}

func TestHolding_ValueAndCostBasis(t *testing.T) {
	h := Holding{Ticker: "AAPL", Shares: 50, PurchasePrice: 140, CurrentPrice: 175.5}

	assert.InDelta(t, 8775.0, h.Value(), 1e-9)
	assert.InDelta(t, 7000.0, h.CostBasis(), 1e-9)
}

func TestHolding_WithMetadata(t *testing.T) {
	meta := TickerMetadata{Ticker: "XOM", Sector: "Energy", Industry: "Oil & Gas", AssetClass: "stock"}

	filled := Holding{Ticker: "XOM"}.WithMetadata(meta)
	assert.Equal(t, "Energy", filled.Sector)
	assert.Equal(t, "Oil & Gas", filled.Industry)
	assert.Equal(t, "stock", filled.AssetClass)

	kept := Holding{Ticker: "XOM", Sector: "Utilities"}.WithMetadata(meta)
	assert.Equal(t, "Utilities", kept.Sector)
	assert.Equal(t, "Oil & Gas", kept.Industry)
}

func TestHolding_Validate(t *testing.T) {
	tests := []struct {
		name    string
		holding Holding
		wantErr bool
	}{
		{"valid", Holding{Ticker: "AAPL", Shares: 1, PurchasePrice: 1, CurrentPrice: 1}, false},
		{"zero shares allowed", Holding{Ticker: "AAPL"}, false},
		{"missing ticker", Holding{Shares: 1}, true},
		{"negative shares", Holding{Ticker: "AAPL", Shares: -1}, true},
		{"negative purchase price", Holding{Ticker: "AAPL", PurchasePrice: -1}, true},
		{"negative current price", Holding{Ticker: "AAPL", CurrentPrice: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.holding.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTotalValueAndTickers(t *testing.T) {
	holdings := []Holding{
		{Ticker: "AAPL", Shares: 10, CurrentPrice: 100},
		{Ticker: "MSFT", Shares: 5, CurrentPrice: 200},
		{Ticker: "AAPL", Shares: 1, CurrentPrice: 100},
	}

	assert.InDelta(t, 2100.0, TotalValue(holdings), 1e-9)
	assert.Equal(t, []string{"AAPL", "MSFT"}, Tickers(holdings))
	assert.Equal(t, 0.0, TotalValue(nil))
}

func TestPriceSeries(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := PriceSeries{Ticker: "AAPL", Points: []PricePoint{
		{Date: day, Close: 100},
		{Date: day.AddDate(0, 0, 1), Close: 101},
		{Date: day.AddDate(0, 0, 2), Close: 102},
	}}

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{100, 101, 102}, s.Closes())
	assert.Equal(t, []float64{101, 102}, s.Tail(2).Closes())
	assert.Equal(t, 3, s.Tail(10).Len())

	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, 102.0, last.Close)

	_, ok = PriceSeries{}.Last()
	assert.False(t, ok)

	assert.NoError(t, s.Validate())

	dup := PriceSeries{Ticker: "AAPL", Points: []PricePoint{{Date: day, Close: 1}, {Date: day, Close: 2}}}
	assert.Error(t, dup.Validate())

	zero := PriceSeries{Ticker: "AAPL", Points: []PricePoint{{Date: day, Close: 0}}}
	assert.Error(t, zero.Validate())
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 30, DaysBetween(from, to))
	assert.Equal(t, -30, DaysBetween(to, from))
	assert.Equal(t, 0, DaysBetween(from, from))
}

func TestOptionQuote_Validate(t *testing.T) {
	asOf := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	valid := OptionQuote{
		Ticker: "AAPL", OptionType: OptionPut, StrikePrice: 160,
		ExpirationDate: asOf.AddDate(0, 0, 30), AsOf: asOf,
		BidPrice: 2.4, AskPrice: 2.6,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*OptionQuote)
	}{
		{"missing ticker", func(q *OptionQuote) { q.Ticker = " " }},
		{"unknown type", func(q *OptionQuote) { q.OptionType = "straddle" }},
		{"zero strike", func(q *OptionQuote) { q.StrikePrice = 0 }},
		{"negative ask", func(q *OptionQuote) { q.AskPrice = -1 }},
		{"missing expiration", func(q *OptionQuote) { q.ExpirationDate = time.Time{} }},
		{"expired", func(q *OptionQuote) { q.ExpirationDate = asOf.AddDate(0, 0, -1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := valid
			tt.mutate(&q)
			err := q.Validate()
			assert.ErrorIs(t, err, ErrInvalidOptionQuote)
			assert.True(t, IsRequestError(err))
		})
	}
}
