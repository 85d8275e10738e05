package domain

import (
	"fmt"
	"math"
	"strings"
)

// Window is a lookback period for price history.
type Window string

const (
	Window30D Window = "30D"
	Window90D Window = "90D"
	Window1Y  Window = "1Y"
	Window3Y  Window = "3Y"
	Window5Y  Window = "5Y"
)

// DefaultWindow is used when a request does not name one.
const DefaultWindow = Window1Y

// windowObservations maps each window to the number of daily closes requested
// from the price collaborator.
var windowObservations = map[Window]int{
	Window30D: 30,
	Window90D: 90,
	Window1Y:  252,
	Window3Y:  756,
	Window5Y:  1260,
}

// Windows lists the recognized windows, shortest first.
func Windows() []Window {
	return []Window{Window30D, Window90D, Window1Y, Window3Y, Window5Y}
}

// ParseWindow validates a window name (case-insensitive). Empty selects the default.
func ParseWindow(s string) (Window, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultWindow, nil
	}
	w := Window(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := windowObservations[w]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidWindow, s)
	}
	return w, nil
}

// Validate reports whether w is recognized.
func (w Window) Validate() error {
	if _, ok := windowObservations[w]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidWindow, string(w))
	}
	return nil
}

// Observations is the number of daily closes covered by the window.
func (w Window) Observations() int {
	return windowObservations[w]
}

// Recognized confidence levels for Value-at-Risk.
var confidenceLevels = []float64{0.90, 0.95, 0.99}

// ConfidenceLevels returns the recognized VaR confidence levels.
func ConfidenceLevels() []float64 {
	out := make([]float64, len(confidenceLevels))
	copy(out, confidenceLevels)
	return out
}

// ValidateConfidenceLevel rejects anything outside {0.90, 0.95, 0.99}.
func ValidateConfidenceLevel(c float64) error {
	for _, level := range confidenceLevels {
		if math.Abs(c-level) < 1e-9 {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidConfidenceLevel, c)
}
