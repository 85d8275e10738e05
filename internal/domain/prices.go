package domain

import (
	"fmt"
	"time"
)

// PricePoint is a single daily close.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Volume *int64    `json:"volume,omitempty"`
	Close  float64   `json:"close"`
}

// PriceSeries is a chronologically ordered close-price history for one ticker.
// The same shape is used for the market benchmark.
type PriceSeries struct {
	Ticker string       `json:"ticker"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of observations.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Closes returns the close prices in order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Tail returns the last n observations (or the whole series when shorter).
func (s PriceSeries) Tail(n int) PriceSeries {
	if n <= 0 || n >= len(s.Points) {
		return s
	}
	return PriceSeries{Ticker: s.Ticker, Points: s.Points[len(s.Points)-n:]}
}

// Last returns the most recent observation.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Validate checks that dates are strictly increasing and closes are positive.
func (s PriceSeries) Validate() error {
	for i, p := range s.Points {
		if p.Close <= 0 {
			return fmt.Errorf("price series %s: non-positive close %v on %s", s.Ticker, p.Close, p.Date.Format(DateLayout))
		}
		if i > 0 && !p.Date.After(s.Points[i-1].Date) {
			return fmt.Errorf("price series %s: dates not strictly increasing at %s", s.Ticker, p.Date.Format(DateLayout))
		}
	}
	return nil
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from one date to another (negative when to is earlier).
func DaysBetween(from, to time.Time) int {
	return int(TruncateDay(to).Sub(TruncateDay(from)).Hours() / 24)
}
