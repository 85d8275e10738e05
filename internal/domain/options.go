package domain

import (
	"fmt"
	"strings"
	"time"
)

// OptionType is the right conveyed by an option contract.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// ParseOptionType accepts "call"/"put" in any case, plus the single-letter forms.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return OptionCall, nil
	case "put", "p":
		return OptionPut, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// OptionQuote is one quoted contract of an options chain.
// Premiums and Greeks are consumed as quoted, never modelled.
type OptionQuote struct {
	ExpirationDate    time.Time  `json:"expiration_date"`
	AsOf              time.Time  `json:"as_of"`
	Ticker            string     `json:"ticker"`
	OptionType        OptionType `json:"option_type"`
	StrikePrice       float64    `json:"strike_price"`
	BidPrice          float64    `json:"bid_price"`
	AskPrice          float64    `json:"ask_price"`
	LastPrice         float64    `json:"last_price"`
	ImpliedVolatility float64    `json:"implied_volatility"`
	Delta             float64    `json:"delta"`
	Gamma             float64    `json:"gamma"`
	Theta             float64    `json:"theta"`
	Vega              float64    `json:"vega"`
	Volume            int64      `json:"volume"`
	OpenInterest      int64      `json:"open_interest"`
}

// OptionKey identifies a quote uniquely.
type OptionKey struct {
	Expiration time.Time
	AsOf       time.Time
	Ticker     string
	Type       OptionType
	Strike     float64
}

// Key returns the uniqueness key of the quote.
func (q OptionQuote) Key() OptionKey {
	return OptionKey{
		Ticker:     q.Ticker,
		Type:       q.OptionType,
		Strike:     q.StrikePrice,
		Expiration: TruncateDay(q.ExpirationDate),
		AsOf:       TruncateDay(q.AsOf),
	}
}

// Validate checks the quote invariants. A quote expiring before its as-of
// date is rejected.
func (q OptionQuote) Validate() error {
	switch {
	case strings.TrimSpace(q.Ticker) == "":
		return fmt.Errorf("%w: ticker is required", ErrInvalidOptionQuote)
	case q.OptionType != OptionCall && q.OptionType != OptionPut:
		return fmt.Errorf("%w: %s option type %q", ErrInvalidOptionQuote, q.Ticker, q.OptionType)
	case q.StrikePrice <= 0:
		return fmt.Errorf("%w: %s strike must be positive, got %v", ErrInvalidOptionQuote, q.Ticker, q.StrikePrice)
	case q.BidPrice < 0 || q.AskPrice < 0 || q.LastPrice < 0:
		return fmt.Errorf("%w: %s %v premiums must be non-negative", ErrInvalidOptionQuote, q.Ticker, q.StrikePrice)
	case q.ExpirationDate.IsZero():
		return fmt.Errorf("%w: %s %v expiration is required", ErrInvalidOptionQuote, q.Ticker, q.StrikePrice)
	case TruncateDay(q.ExpirationDate).Before(TruncateDay(q.AsOf)):
		return fmt.Errorf("%w: %s %v expires before its as-of date", ErrInvalidOptionQuote, q.Ticker, q.StrikePrice)
	}
	return nil
}
