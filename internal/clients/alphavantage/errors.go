package alphavantage

import "fmt"

// ErrRateLimitExceeded is returned when the daily request budget is spent
// or the API answers with a throttling note.
type ErrRateLimitExceeded struct{}

func (e ErrRateLimitExceeded) Error() string {
	return "alpha vantage rate limit exceeded"
}

// RateLimited reports that retrying today is pointless.
func (e ErrRateLimitExceeded) RateLimited() bool {
	return true
}

// ErrInvalidAPIKey is returned when the API rejects the configured key.
type ErrInvalidAPIKey struct{}

func (e ErrInvalidAPIKey) Error() string {
	return "alpha vantage rejected the API key as invalid"
}

// ErrSymbolNotFound is returned when a symbol has no data.
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("symbol not found: %s", e.Symbol)
}

// APIError carries an "Error Message" payload from the API.
type APIError struct {
	Message string
}

func (e APIError) Error() string {
	return "alpha vantage error: " + e.Message
}
