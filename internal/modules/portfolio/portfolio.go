// Package portfolio stores uploaded portfolios and derives the valuation
// figures shown alongside the analytics: unrealized gain/loss, daily change,
// weights and the advisor prompt summary.
package portfolio

import (
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// ErrNotFound is returned when a portfolio id does not exist.
var ErrNotFound = domain.ErrPortfolioNotFound

// Portfolio is an uploaded set of holdings owned by a user.
type Portfolio struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	FileName  string           `json:"file_name"`
	CreatedAt time.Time        `json:"created_at"`
	Holdings  []domain.Holding `json:"holdings,omitempty"`
}

// Info is a portfolio row without its holdings, used in listings.
type Info struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	FileName      string    `json:"file_name"`
	CreatedAt     time.Time `json:"created_at"`
	HoldingsCount int       `json:"holdings_count"`
}
