package portfolio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

const topHoldingsInPrompt = 3

// AdvisorPrompt renders a one-paragraph portfolio summary followed by the
// user's question, for use as the user message of an advisory chat completion.
func AdvisorPrompt(holdings []domain.Holding, question string) string {
	question = strings.TrimSpace(question)
	if len(holdings) == 0 {
		return "Portfolio Summary: No holdings provided. Based on this portfolio, " + question
	}

	type valued struct {
		name  string
		value float64
	}

	var totalValue, totalCost float64
	positions := make([]valued, 0, len(holdings))
	sectorValue := make(map[string]float64)
	for _, h := range holdings {
		v := promptValue(h)
		totalValue += v
		totalCost += h.CostBasis()
		positions = append(positions, valued{strings.ToUpper(h.Ticker), v})
		sectorValue[h.SectorOrDefault()] += v
	}

	gainPct := 0.0
	if totalCost > 0 {
		gainPct = (totalValue - totalCost) / totalCost * 100
	}
	pct := func(v float64) float64 {
		if totalValue <= 0 {
			return 0
		}
		return v / totalValue * 100
	}

	sort.SliceStable(positions, func(i, j int) bool { return positions[i].value > positions[j].value })
	top := make([]string, 0, topHoldingsInPrompt)
	for _, p := range positions[:min(topHoldingsInPrompt, len(positions))] {
		top = append(top, fmt.Sprintf("%s (%.2f%%)", p.name, pct(p.value)))
	}

	sectors := make([]valued, 0, len(sectorValue))
	for name, v := range sectorValue {
		sectors = append(sectors, valued{name, v})
	}
	sort.Slice(sectors, func(i, j int) bool {
		if sectors[i].value != sectors[j].value {
			return sectors[i].value > sectors[j].value
		}
		return sectors[i].name < sectors[j].name
	})
	exposure := make([]string, 0, len(sectors))
	for _, s := range sectors {
		exposure = append(exposure, fmt.Sprintf("%s (%.2f%%)", s.name, pct(s.value)))
	}

	return fmt.Sprintf(
		"Portfolio Summary: Total Value: %s, Overall Gain/Loss: %.2f%%; Top Holdings: %s; Sector Exposure: %s. Based on this portfolio, %s",
		formatCurrency(totalValue), gainPct, strings.Join(top, ", "), strings.Join(exposure, ", "), question,
	)
}

// promptValue falls back to cost basis for holdings that were never priced.
func promptValue(h domain.Holding) float64 {
	if h.CurrentPrice > 0 {
		return h.Value()
	}
	return h.CostBasis()
}

func formatCurrency(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}
