package alphavantage

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ClientInterface = (*Client)(nil)

func TestDailyBudget(t *testing.T) {
	client := NewClient("key", zerolog.Nop())
	require.Equal(t, DailyRequestLimit, client.GetRemainingRequests())

	for i := 0; i < DailyRequestLimit; i++ {
		require.NoError(t, client.checkRateLimit())
	}
	assert.Zero(t, client.GetRemainingRequests())

	err := client.checkRateLimit()
	assert.IsType(t, ErrRateLimitExceeded{}, err)
	assert.True(t, err.(ErrRateLimitExceeded).RateLimited())

	client.ResetDailyCounter()
	assert.Equal(t, DailyRequestLimit, client.GetRemainingRequests())
}

func TestBudgetResetsAfterMidnight(t *testing.T) {
	client := NewClient("key", zerolog.Nop())
	for i := 0; i < 5; i++ {
		require.NoError(t, client.checkRateLimit())
	}
	client.mu.Lock()
	client.resetAt = time.Now().UTC().Add(-time.Minute)
	client.mu.Unlock()

	assert.Equal(t, DailyRequestLimit, client.GetRemainingRequests())

	midnight := nextMidnightUTC()
	assert.True(t, midnight.After(time.Now().UTC()))
	assert.Equal(t, time.UTC, midnight.Location())
	assert.Zero(t, midnight.Hour()*3600+midnight.Minute()*60+midnight.Second())
}

func TestResponseCache(t *testing.T) {
	client := NewClient("key", zerolog.Nop())

	client.setCache("fresh", []byte("a"), time.Hour)
	client.setCache("stale", []byte("b"), -time.Second)

	got, ok := client.getFromCache("fresh")
	require.True(t, ok)
	assert.Equal(t, []byte("a"), got)

	_, ok = client.getFromCache("stale")
	assert.False(t, ok)
	_, ok = client.getFromCache("absent")
	assert.False(t, ok)

	client.ClearCache()
	_, ok = client.getFromCache("fresh")
	assert.False(t, ok)
}

func TestCacheTTL(t *testing.T) {
	client := NewClient("key", zerolog.Nop())
	assert.Equal(t, CacheTTL{Fundamentals: 24 * time.Hour, PriceData: 15 * time.Minute}, client.ttl())

	client.SetCacheTTL(CacheTTL{Fundamentals: time.Hour, PriceData: time.Minute})
	assert.Equal(t, time.Minute, client.ttl().PriceData)
}

func TestBuildCacheKey(t *testing.T) {
	tests := []struct {
		function string
		params   map[string]string
		want     string
	}{
		{"OVERVIEW", map[string]string{"symbol": "JNJ"}, "OVERVIEW|symbol=JNJ"},
		{"TIME_SERIES_DAILY", map[string]string{"symbol": "AAPL", "outputsize": "full"}, "TIME_SERIES_DAILY|outputsize=full|symbol=AAPL"},
		{"GLOBAL_QUOTE", map[string]string{"symbol": "BND", "apikey": "secret"}, "GLOBAL_QUOTE|symbol=BND"},
		{"OVERVIEW", nil, "OVERVIEW"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, buildCacheKey(tt.function, tt.params))
		})
	}
}

func TestParseNumbers(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		present bool
	}{
		{"186.20", 186.2, true},
		{" 0.65% ", 0.65, true},
		{"-1.5", -1.5, true},
		{"None", 0, false},
		{"-", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseFloat64(tt.in))
			ptr := parseFloat64Ptr(tt.in)
			if tt.present {
				require.NotNil(t, ptr)
				assert.Equal(t, tt.want, *ptr)
			} else {
				assert.Nil(t, ptr)
			}
		})
	}

	assert.Equal(t, int64(3456789), parseInt64("3456789"))
	assert.Equal(t, int64(125000000000), parseInt64("1.25e11"))
	assert.Zero(t, parseInt64("None"))
}

func TestParseDates(t *testing.T) {
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), parseDate("2024-03-01"))
	assert.True(t, parseDate("03/01/2024").IsZero())
	assert.Equal(t, time.Date(2024, time.March, 1, 16, 0, 0, 0, time.UTC), parseDateTime("2024-03-01 16:00:00"))
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), parseDateTime("2024-03-01"))
}

func TestParseDailyTimeSeries(t *testing.T) {
	body := `{
		"Meta Data": {"2. Symbol": "AAPL"},
		"Time Series (Daily)": {
			"2024-03-01": {"1. open": "179.55", "2. high": "180.53", "3. low": "177.38", "4. close": "179.66", "5. volume": "73563082"},
			"2024-02-29": {"1. open": "181.27", "2. high": "182.57", "3. low": "179.53", "4. close": "180.75", "5. volume": "136682597"},
			"not-a-date": {"4. close": "1"}
		}
	}`

	bars, err := parseDailyTimeSeries([]byte(body))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1, bars[0].Date.Day(), "newest first")
	assert.Equal(t, 179.66, bars[0].Close)
	assert.Equal(t, int64(136682597), bars[1].Volume)

	_, err = parseDailyTimeSeries([]byte(`{"Meta Data": {}}`))
	assert.Error(t, err)
}

func TestParseGlobalQuote(t *testing.T) {
	body := `{"Global Quote": {
		"01. symbol": "JNJ", "05. price": "155.00", "06. volume": "6100000",
		"07. latest trading day": "2024-03-01", "08. previous close": "157.10",
		"09. change": "-2.10", "10. change percent": "-1.3367%"
	}}`

	quote, err := parseGlobalQuote([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "JNJ", quote.Symbol)
	assert.Equal(t, 155.0, quote.Price)
	assert.Equal(t, -2.1, quote.Change)
	assert.InDelta(t, -1.3367, quote.ChangePercent, 1e-9)
	assert.Equal(t, 2024, quote.LatestTradingDay.Year())

	_, err = parseGlobalQuote([]byte(`{"Global Quote": {}}`))
	assert.Error(t, err)
}

func TestQuotePoint(t *testing.T) {
	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	p, ok := quotePoint(GlobalQuote{Symbol: "JNJ", Price: 155, Volume: 6100000, LatestTradingDay: day})
	require.True(t, ok)
	assert.Equal(t, 155.0, p.Close)
	assert.True(t, p.Date.Equal(day))
	require.NotNil(t, p.Volume)
	assert.Equal(t, int64(6100000), *p.Volume)

	p, ok = quotePoint(GlobalQuote{Price: 155, LatestTradingDay: day})
	require.True(t, ok)
	assert.Nil(t, p.Volume)

	_, ok = quotePoint(GlobalQuote{Price: 0, LatestTradingDay: day})
	assert.False(t, ok)
	_, ok = quotePoint(GlobalQuote{Price: 155})
	assert.False(t, ok)
}

func TestParseCompanyOverview(t *testing.T) {
	body := `{
		"Symbol": "BND", "AssetType": "ETF", "Name": "Vanguard Total Bond Market",
		"Sector": "None", "MarketCapitalization": "None",
		"PERatio": "None", "DividendYield": "0.0341", "Beta": "-"
	}`

	overview, err := parseCompanyOverview([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "BND", overview.Symbol)
	assert.Equal(t, "ETF", overview.AssetType)
	assert.Zero(t, overview.MarketCapitalization)
	assert.Nil(t, overview.PERatio)
	assert.Nil(t, overview.Beta)
	require.NotNil(t, overview.DividendYield)
	assert.Equal(t, 0.0341, *overview.DividendYield)
}

func TestCheckAPIError(t *testing.T) {
	client := NewClient("key", zerolog.Nop())

	tests := []struct {
		name string
		body string
		want error
	}{
		{"throttle note", `{"Note": "API call frequency is 5 calls per minute"}`, ErrRateLimitExceeded{}},
		{"daily limit", `Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day.`, ErrRateLimitExceeded{}},
		{"premium endpoint", `{"Information": "This is a premium endpoint."}`, ErrRateLimitExceeded{}},
		{"bad key", `{"Error Message": "the parameter apikey is invalid or missing."}`, ErrInvalidAPIKey{}},
		{"bad key information", `{"Information": "Invalid API key. Please claim your free key."}`, ErrInvalidAPIKey{}},
		{"bad call", `{"Error Message": "Invalid API call. Please retry."}`, APIError{Message: "Invalid API call. Please retry."}},
		{"payload", `{"Global Quote": {"01. symbol": "AAPL"}}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.checkAPIError([]byte(tt.body)))
		})
	}
}

func TestAssetClassAndTitleCase(t *testing.T) {
	assert.Equal(t, "etf", assetClass("ETF"))
	assert.Equal(t, "fund", assetClass("Mutual Fund"))
	assert.Equal(t, "bond", assetClass(" bond "))
	assert.Equal(t, "stock", assetClass("Common Stock"))
	assert.Equal(t, "stock", assetClass(""))

	assert.Equal(t, "Life Sciences", titleCase("LIFE SCIENCES"))
	assert.Equal(t, "Oil & Gas", titleCase("oil  &  gas"))
}

func TestErrorMessages(t *testing.T) {
	assert.Contains(t, ErrSymbolNotFound{Symbol: "ZZZZ"}.Error(), "ZZZZ")
	assert.Contains(t, APIError{Message: "boom"}.Error(), "boom")
	assert.NotEmpty(t, ErrInvalidAPIKey{}.Error())
}
