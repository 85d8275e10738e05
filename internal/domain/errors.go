package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData matches every *InsufficientDataError via errors.Is.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidConfidenceLevel is returned for a VaR confidence outside the recognized set.
	ErrInvalidConfidenceLevel = errors.New("invalid confidence level")
	// ErrInvalidWindow is returned for an unsupported lookback window.
	ErrInvalidWindow = errors.New("invalid window")
	// ErrInvalidTargetProtection is returned when target protection is outside (0, 1].
	ErrInvalidTargetProtection = errors.New("invalid target protection")
	// ErrInvalidTargetPremium is returned when the target premium ratio is negative.
	ErrInvalidTargetPremium = errors.New("invalid target premium")
	// ErrInvalidOptionQuote is returned for an option quote that cannot be stored.
	ErrInvalidOptionQuote = errors.New("invalid option quote")
	// ErrPortfolioNotFound is returned when a portfolio id does not exist.
	ErrPortfolioNotFound = errors.New("portfolio not found")
)

// InsufficientDataError reports that fewer observations were available than a
// calculation requires.
type InsufficientDataError struct {
	Ticker string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("insufficient data: have %d observations, need %d", e.Have, e.Need)
	}
	return fmt.Sprintf("insufficient data for %s: have %d observations, need %d", e.Ticker, e.Have, e.Need)
}

// Is lets errors.Is(err, ErrInsufficientData) match.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// IsRequestError reports whether err is a request-parameter violation.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrInvalidConfidenceLevel) ||
		errors.Is(err, ErrInvalidWindow) ||
		errors.Is(err, ErrInvalidTargetProtection) ||
		errors.Is(err, ErrInvalidTargetPremium) ||
		errors.Is(err, ErrInvalidOptionQuote)
}
