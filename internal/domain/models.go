// Package domain provides the value types shared by the analytics engine and
// its market-data collaborators.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied when a holding carries no classification metadata.
const (
	DefaultSector     = "Unknown"
	DefaultIndustry   = "Unknown"
	DefaultAssetClass = "stock"
)

// Holding is one position of a portfolio snapshot.
// Holdings are passed by value; the engine never mutates them.
type Holding struct {
	PurchaseDate  time.Time `json:"purchase_date"`
	Ticker        string    `json:"ticker"`
	Sector        string    `json:"sector,omitempty"`
	Industry      string    `json:"industry,omitempty"`
	AssetClass    string    `json:"asset_class,omitempty"`
	Shares        float64   `json:"shares"`
	PurchasePrice float64   `json:"purchase_price"`
	CurrentPrice  float64   `json:"current_price"`
}

// TickerMetadata is the classification returned by the metadata collaborator.
type TickerMetadata struct {
	Ticker     string `json:"ticker"`
	Sector     string `json:"sector"`
	Industry   string `json:"industry"`
	AssetClass string `json:"asset_class"`
}

// DefaultMetadata returns the metadata used for tickers the collaborator does not know.
func DefaultMetadata(ticker string) TickerMetadata {
	return TickerMetadata{
		Ticker:     ticker,
		Sector:     DefaultSector,
		Industry:   DefaultIndustry,
		AssetClass: DefaultAssetClass,
	}
}

// SectorOrDefault returns the holding's sector, or "Unknown" when absent.
func (h Holding) SectorOrDefault() string {
	if s := strings.TrimSpace(h.Sector); s != "" {
		return s
	}
	return DefaultSector
}

// IndustryOrDefault returns the holding's industry, or "Unknown" when absent.
func (h Holding) IndustryOrDefault() string {
	if s := strings.TrimSpace(h.Industry); s != "" {
		return s
	}
	return DefaultIndustry
}

// AssetClassOrDefault returns the holding's asset class, or "stock" when absent.
func (h Holding) AssetClassOrDefault() string {
	if s := strings.TrimSpace(h.AssetClass); s != "" {
		return s
	}
	return DefaultAssetClass
}

// Value is the current market value of the position.
func (h Holding) Value() float64 {
	return h.Shares * h.CurrentPrice
}

// CostBasis is what was paid for the position.
func (h Holding) CostBasis() float64 {
	return h.Shares * h.PurchasePrice
}

// WithMetadata returns a copy of h with missing classification fields filled from m.
// Fields already present on the holding win.
func (h Holding) WithMetadata(m TickerMetadata) Holding {
	if strings.TrimSpace(h.Sector) == "" {
		h.Sector = m.Sector
	}
	if strings.TrimSpace(h.Industry) == "" {
		h.Industry = m.Industry
	}
	if strings.TrimSpace(h.AssetClass) == "" {
		h.AssetClass = m.AssetClass
	}
	return h
}

// Validate checks the holding invariants.
func (h Holding) Validate() error {
	if strings.TrimSpace(h.Ticker) == "" {
		return fmt.Errorf("holding: ticker is required")
	}
	if h.Shares < 0 {
		return fmt.Errorf("holding %s: shares must be non-negative, got %v", h.Ticker, h.Shares)
	}
	if h.PurchasePrice < 0 {
		return fmt.Errorf("holding %s: purchase price must be non-negative, got %v", h.Ticker, h.PurchasePrice)
	}
	if h.CurrentPrice < 0 {
		return fmt.Errorf("holding %s: current price must be non-negative, got %v", h.Ticker, h.CurrentPrice)
	}
	return nil
}

// TotalValue sums the market value of all holdings.
func TotalValue(holdings []Holding) float64 {
	total := 0.0
	for _, h := range holdings {
		total += h.Value()
	}
	return total
}

// Tickers returns the distinct tickers of holdings in first-seen order.
func Tickers(holdings []Holding) []string {
	seen := make(map[string]bool, len(holdings))
	tickers := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if seen[h.Ticker] {
			continue
		}
		seen[h.Ticker] = true
		tickers = append(tickers, h.Ticker)
	}
	return tickers
}
