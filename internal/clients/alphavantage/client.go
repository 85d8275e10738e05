// Package alphavantage provides a rate-limited Alpha Vantage client used as
// the upstream source of daily closes and ticker classification.
package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

const (
	// DefaultBaseURL is the Alpha Vantage query endpoint.
	DefaultBaseURL = "https://www.alphavantage.co/query"
	// DailyRequestLimit is the free-tier daily request budget.
	DailyRequestLimit = 25
	// DefaultCallsPerMinute is the free-tier burst limit.
	DefaultCallsPerMinute = 5

	compactBars = 100
)

// ClientInterface is the surface the rest of the application depends on.
type ClientInterface interface {
	DailyPrices(ctx context.Context, symbol string, full bool) ([]DailyPrice, error)
	GlobalQuote(ctx context.Context, symbol string) (GlobalQuote, error)
	CompanyOverview(ctx context.Context, symbol string) (CompanyOverview, error)
	PriceHistory(ctx context.Context, ticker string, window domain.Window) (domain.PriceSeries, error)
	LatestPrice(ctx context.Context, ticker string) (domain.PricePoint, error)
	TickerMetadata(ctx context.Context, ticker string) (domain.TickerMetadata, error)
	GetRemainingRequests() int
}

type cacheEntry struct {
	data      any
	expiresAt time.Time
}

// Client talks to the Alpha Vantage REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration

	mu            sync.Mutex
	dailyLimit    int
	requestsToday int
	resetAt       time.Time

	cacheMu  sync.RWMutex
	cache    map[string]cacheEntry
	cacheTTL CacheTTL
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCallsPerMinute sets the per-minute request rate.
func WithCallsPerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

// WithRetries sets how many times a failed transport call is retried and the
// initial backoff between attempts.
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max(n, 0)
		c.retryDelay = delay
	}
}

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("client", "alphavantage").Logger(),
		limiter:    rate.NewLimiter(rate.Every(time.Minute/DefaultCallsPerMinute), 1),
		maxRetries: 2,
		retryDelay: time.Second,
		dailyLimit: DailyRequestLimit,
		resetAt:    nextMidnightUTC(),
		cache:      make(map[string]cacheEntry),
		cacheTTL:   DefaultCacheTTL(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetCacheTTL replaces the cache lifetimes.
func (c *Client) SetCacheTTL(ttl CacheTTL) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cacheTTL = ttl
}

// GetRemainingRequests returns the requests left in today's budget.
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetIfDue()
	return c.dailyLimit - c.requestsToday
}

// ResetDailyCounter restores the full daily budget.
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestsToday = 0
	c.resetAt = nextMidnightUTC()
}

func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetIfDue()
	if c.requestsToday >= c.dailyLimit {
		return ErrRateLimitExceeded{}
	}
	c.requestsToday++
	return nil
}

// resetIfDue must be called with mu held.
func (c *Client) resetIfDue() {
	if time.Now().UTC().After(c.resetAt) {
		c.requestsToday = 0
		c.resetAt = nextMidnightUTC()
	}
}

func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

func (c *Client) setCache(key string, data any, ttl time.Duration) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[key] = cacheEntry{data: data, expiresAt: time.Now().Add(ttl)}
}

func (c *Client) getFromCache(key string) (any, bool) {
	c.cacheMu.RLock()
	entry, ok := c.cache[key]
	c.cacheMu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// buildCacheKey renders function and params deterministically, without the API key.
func buildCacheKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "apikey" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(function)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}

// checkAPIError detects the error payloads Alpha Vantage returns with status 200.
func (c *Client) checkAPIError(body []byte) error {
	text := string(body)
	switch {
	case strings.Contains(text, `"Error Message"`):
		if strings.Contains(strings.ToLower(text), "apikey") {
			return ErrInvalidAPIKey{}
		}
		return APIError{Message: extractMessage(text, "Error Message")}
	case strings.Contains(text, `"Note"`),
		strings.Contains(text, "Thank you for using Alpha Vantage"):
		return ErrRateLimitExceeded{}
	case strings.Contains(text, `"Information"`):
		lower := strings.ToLower(text)
		if strings.Contains(lower, "invalid api key") || strings.Contains(lower, "apikey is invalid") {
			return ErrInvalidAPIKey{}
		}
		return ErrRateLimitExceeded{}
	}
	return nil
}

func extractMessage(text, field string) string {
	_, rest, ok := strings.Cut(text, `"`+field+`"`)
	if !ok {
		return text
	}
	_, rest, _ = strings.Cut(rest, `"`)
	msg, _, _ := strings.Cut(rest, `"`)
	return msg
}

// request performs one API call, serving from the in-memory cache when fresh.
func (c *Client) request(ctx context.Context, function string, params map[string]string, ttl time.Duration) ([]byte, error) {
	key := buildCacheKey(function, params)
	if cached, ok := c.getFromCache(key); ok {
		if body, ok := cached.([]byte); ok {
			return body, nil
		}
	}

	if c.apiKey == "" {
		return nil, ErrInvalidAPIKey{}
	}
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("function", function)
	q.Set("apikey", c.apiKey)
	for k, v := range params {
		q.Set(k, v)
	}
	endpoint := c.baseURL + "?" + q.Encode()

	var body []byte
	var err error
	delay := c.retryDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.log.Debug().Str("function", function).Int("attempt", attempt).Dur("backoff", delay).Msg("Retrying request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if werr := c.limiter.Wait(ctx); werr != nil {
			return nil, werr
		}
		body, err = c.do(ctx, endpoint)
		if err == nil || !retryable(err) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", function, err)
	}

	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}
	c.setCache(key, body, ttl)
	return body, nil
}

type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func retryable(err error) bool {
	var se statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	var limited ErrRateLimitExceeded
	return !errors.As(err, &limited)
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimitExceeded{}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError{code: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// DailyPrices returns TIME_SERIES_DAILY bars, newest first. full requests the
// entire history instead of the last 100 bars.
func (c *Client) DailyPrices(ctx context.Context, symbol string, full bool) ([]DailyPrice, error) {
	size := "compact"
	if full {
		size = "full"
	}
	body, err := c.request(ctx, "TIME_SERIES_DAILY", map[string]string{
		"symbol":     symbol,
		"outputsize": size,
	}, c.ttl().PriceData)
	if err != nil {
		return nil, err
	}
	prices, err := parseDailyTimeSeries(body)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}
	return prices, nil
}

// GlobalQuote returns the latest quote for symbol.
func (c *Client) GlobalQuote(ctx context.Context, symbol string) (GlobalQuote, error) {
	body, err := c.request(ctx, "GLOBAL_QUOTE", map[string]string{"symbol": symbol}, c.ttl().PriceData)
	if err != nil {
		return GlobalQuote{}, err
	}
	quote, err := parseGlobalQuote(body)
	if err != nil {
		return GlobalQuote{}, ErrSymbolNotFound{Symbol: symbol}
	}
	return quote, nil
}

// CompanyOverview returns classification and fundamentals for symbol.
func (c *Client) CompanyOverview(ctx context.Context, symbol string) (CompanyOverview, error) {
	body, err := c.request(ctx, "OVERVIEW", map[string]string{"symbol": symbol}, c.ttl().Fundamentals)
	if err != nil {
		return CompanyOverview{}, err
	}
	overview, err := parseCompanyOverview(body)
	if err != nil {
		return CompanyOverview{}, err
	}
	if overview.Symbol == "" {
		return CompanyOverview{}, ErrSymbolNotFound{Symbol: symbol}
	}
	return overview, nil
}

// PriceHistory returns the last window.Observations() closes, oldest first.
func (c *Client) PriceHistory(ctx context.Context, ticker string, window domain.Window) (domain.PriceSeries, error) {
	if err := window.Validate(); err != nil {
		return domain.PriceSeries{}, err
	}
	n := window.Observations()
	bars, err := c.DailyPrices(ctx, ticker, n > compactBars)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	return toSeries(ticker, bars, n), nil
}

// LatestPrice maps GLOBAL_QUOTE to the most recent traded price, dated by
// the latest trading day.
func (c *Client) LatestPrice(ctx context.Context, ticker string) (domain.PricePoint, error) {
	quote, err := c.GlobalQuote(ctx, ticker)
	if err != nil {
		return domain.PricePoint{}, err
	}
	point, ok := quotePoint(quote)
	if !ok {
		return domain.PricePoint{}, ErrSymbolNotFound{Symbol: ticker}
	}
	return point, nil
}

func quotePoint(q GlobalQuote) (domain.PricePoint, bool) {
	if q.Price <= 0 || q.LatestTradingDay.IsZero() {
		return domain.PricePoint{}, false
	}
	p := domain.PricePoint{Date: domain.TruncateDay(q.LatestTradingDay), Close: q.Price}
	if q.Volume > 0 {
		v := q.Volume
		p.Volume = &v
	}
	return p, true
}

// toSeries converts newest-first bars into a chronological series of at most
// limit points. Bars without a positive close are dropped.
func toSeries(ticker string, bars []DailyPrice, limit int) domain.PriceSeries {
	series := domain.PriceSeries{Ticker: ticker, Points: make([]domain.PricePoint, 0, min(len(bars), limit))}
	for _, bar := range bars {
		if len(series.Points) == limit {
			break
		}
		if bar.Close <= 0 {
			continue
		}
		p := domain.PricePoint{Date: bar.Date, Close: bar.Close}
		if bar.Volume > 0 {
			v := bar.Volume
			p.Volume = &v
		}
		series.Points = append(series.Points, p)
	}
	slices.Reverse(series.Points)
	return series
}

// TickerMetadata maps OVERVIEW to sector, industry and asset class.
// Unknown symbols yield domain.DefaultMetadata.
func (c *Client) TickerMetadata(ctx context.Context, ticker string) (domain.TickerMetadata, error) {
	overview, err := c.CompanyOverview(ctx, ticker)
	if err != nil {
		var notFound ErrSymbolNotFound
		if errors.As(err, &notFound) {
			return domain.DefaultMetadata(ticker), nil
		}
		return domain.TickerMetadata{}, err
	}

	meta := domain.DefaultMetadata(ticker)
	if s := strings.TrimSpace(overview.Sector); s != "" && s != "None" {
		meta.Sector = titleCase(s)
	}
	if s := strings.TrimSpace(overview.Industry); s != "" && s != "None" {
		meta.Industry = titleCase(s)
	}
	meta.AssetClass = assetClass(overview.AssetType)
	return meta, nil
}

func assetClass(assetType string) string {
	switch strings.ToLower(strings.TrimSpace(assetType)) {
	case "etf":
		return "etf"
	case "mutual fund":
		return "fund"
	case "bond":
		return "bond"
	default:
		return domain.DefaultAssetClass
	}
}

// titleCase turns "LIFE SCIENCES" into "Life Sciences".
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (c *Client) ttl() CacheTTL {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return c.cacheTTL
}
