package alphavantage

import "time"

// DailyPrice is one bar of TIME_SERIES_DAILY.
type DailyPrice struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// GlobalQuote is the latest trading-day quote for a symbol.
type GlobalQuote struct {
	Symbol           string
	Open             float64
	High             float64
	Low              float64
	Price            float64
	Volume           int64
	LatestTradingDay time.Time
	PreviousClose    float64
	Change           float64
	ChangePercent    float64
}

// CompanyOverview holds the OVERVIEW fields used for classification.
type CompanyOverview struct {
	Symbol               string
	AssetType            string
	Name                 string
	Description          string
	Exchange             string
	Currency             string
	Country              string
	Sector               string
	Industry             string
	MarketCapitalization int64
	PERatio              *float64
	EPS                  *float64
	DividendYield        *float64
	FiftyTwoWeekHigh     *float64
	FiftyTwoWeekLow      *float64
	Beta                 *float64
}

// CacheTTL configures how long each response family stays cached in memory.
type CacheTTL struct {
	Fundamentals time.Duration
	PriceData    time.Duration
}

// DefaultCacheTTL returns the default cache lifetimes.
func DefaultCacheTTL() CacheTTL {
	return CacheTTL{
		Fundamentals: 24 * time.Hour,
		PriceData:    15 * time.Minute,
	}
}
