package portfolio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

var requiredColumns = []string{"ticker", "shares", "purchase_price"}

var optionalColumns = []string{"purchase_date", "current_price", "sector", "industry", "asset_class"}

// ImportResult is the outcome of parsing an uploaded holdings file.
// Holdings is empty whenever Errors is not.
type ImportResult struct {
	Holdings []domain.Holding `json:"holdings"`
	Errors   []string         `json:"errors,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// OK reports whether the file produced holdings without errors.
func (r ImportResult) OK() bool {
	return len(r.Errors) == 0 && len(r.Holdings) > 0
}

// ParseCSV reads holdings from a CSV file with a header row.
// Header names are case-insensitive; unknown columns are ignored with a warning.
// Rows repeating a ticker are merged into one position at the weighted average
// purchase price.
func ParseCSV(r io.Reader) ImportResult {
	var res ImportResult

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		res.Errors = append(res.Errors, "file is empty")
		return res
	}
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("failed to read header: %v", err))
		return res
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if key == "" {
			continue
		}
		if !isKnownColumn(key) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("ignoring unknown column %q", name))
			continue
		}
		cols[key] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("missing required column %q", c))
		}
	}
	if len(res.Errors) > 0 {
		return res
	}

	index := make(map[string]int)
	var holdings []domain.Holding
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		if blank(record) {
			continue
		}

		h, warnings, err := parseRow(record, cols)
		for _, w := range warnings {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: %s", line, w))
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		if i, ok := index[h.Ticker]; ok {
			holdings[i] = merge(holdings[i], h)
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: duplicate ticker %s merged into earlier row", line, h.Ticker))
			continue
		}
		index[h.Ticker] = len(holdings)
		holdings = append(holdings, h)
	}

	if len(res.Errors) > 0 {
		return res
	}
	if len(holdings) == 0 {
		res.Errors = append(res.Errors, "no holdings found")
		return res
	}
	res.Holdings = holdings
	return res
}

func parseRow(record []string, cols map[string]int) (domain.Holding, []string, error) {
	var warnings []string
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	h := domain.Holding{Ticker: strings.ToUpper(field("ticker"))}
	if h.Ticker == "" {
		return h, nil, errors.New("ticker is required")
	}

	shares, err := strconv.ParseFloat(field("shares"), 64)
	if err != nil {
		return h, nil, fmt.Errorf("invalid shares %q for %s", field("shares"), h.Ticker)
	}
	if shares <= 0 {
		return h, nil, fmt.Errorf("shares must be positive for %s", h.Ticker)
	}
	h.Shares = shares

	price, err := strconv.ParseFloat(strings.TrimPrefix(field("purchase_price"), "$"), 64)
	if err != nil {
		return h, nil, fmt.Errorf("invalid purchase_price %q for %s", field("purchase_price"), h.Ticker)
	}
	if price < 0 {
		return h, nil, fmt.Errorf("purchase_price must be non-negative for %s", h.Ticker)
	}
	h.PurchasePrice = price

	if s := field("purchase_date"); s != "" {
		d, err := time.Parse(domain.DateLayout, s)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("ignoring unparseable purchase_date %q for %s", s, h.Ticker))
		} else {
			h.PurchaseDate = d
		}
	}

	h.CurrentPrice = h.PurchasePrice
	if s := field("current_price"); s != "" {
		p, err := strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64)
		if err != nil || p < 0 {
			warnings = append(warnings, fmt.Sprintf("invalid current_price %q for %s, using purchase_price", s, h.Ticker))
		} else {
			h.CurrentPrice = p
		}
	} else {
		warnings = append(warnings, fmt.Sprintf("no current_price for %s, using purchase_price", h.Ticker))
	}

	h.Sector = field("sector")
	h.Industry = field("industry")
	h.AssetClass = strings.ToLower(field("asset_class"))
	return h, warnings, nil
}

func merge(a, b domain.Holding) domain.Holding {
	shares := a.Shares + b.Shares
	a.PurchasePrice = (a.CostBasis() + b.CostBasis()) / shares
	a.Shares = shares
	if b.CurrentPrice > 0 {
		a.CurrentPrice = b.CurrentPrice
	}
	if a.PurchaseDate.IsZero() || (!b.PurchaseDate.IsZero() && b.PurchaseDate.Before(a.PurchaseDate)) {
		a.PurchaseDate = b.PurchaseDate
	}
	if a.Sector == "" {
		a.Sector = b.Sector
	}
	if a.Industry == "" {
		a.Industry = b.Industry
	}
	if a.AssetClass == "" {
		a.AssetClass = b.AssetClass
	}
	return a
}

func isKnownColumn(name string) bool {
	return slices.Contains(requiredColumns, name) || slices.Contains(optionalColumns, name)
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
