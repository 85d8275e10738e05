package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-analytics/internal/domain"
	testingpkg "github.com/aristath/portfolio-analytics/internal/testing"
)

func TestUnrealizedGainLoss(t *testing.T) {
	gl := UnrealizedGainLoss(testingpkg.NewHoldingFixtures())

	assert.Equal(t, 27100.0, gl.TotalCostBasis)
	assert.Equal(t, 28775.0, gl.TotalCurrentValue)
	assert.Equal(t, 1675.0, gl.TotalGainLoss)
	assert.InDelta(t, 6.1808, gl.PercentageReturn, 1e-4)

	require.Len(t, gl.Details, 4)
	aapl := gl.Details[0]
	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.Equal(t, 7000.0, aapl.CostBasis)
	assert.Equal(t, 8775.0, aapl.CurrentValue)
	assert.Equal(t, 1775.0, aapl.GainLoss)
	assert.InDelta(t, 25.3571, aapl.GainLossPercentage, 1e-4)

	jnj := gl.Details[1]
	assert.Equal(t, -400.0, jnj.GainLoss)
}

func TestUnrealizedGainLoss_ZeroCostBasis(t *testing.T) {
	gl := UnrealizedGainLoss([]domain.Holding{{Ticker: "GIFT", Shares: 10, PurchasePrice: 0, CurrentPrice: 5}})

	assert.Equal(t, 50.0, gl.TotalGainLoss)
	assert.Equal(t, 0.0, gl.PercentageReturn)
	assert.Equal(t, 0.0, gl.Details[0].GainLossPercentage)
}

func TestUnrealizedGainLoss_AvoidsFloatDrift(t *testing.T) {
	gl := UnrealizedGainLoss([]domain.Holding{
		{Ticker: "A", Shares: 3, PurchasePrice: 0.1, CurrentPrice: 0.2},
	})
	assert.Equal(t, 0.3, gl.TotalCostBasis)
	assert.Equal(t, 0.3, gl.TotalGainLoss)
}

func TestDailyValueChange(t *testing.T) {
	holdings := testingpkg.NewHoldingFixtures()[:2]
	history := map[string]domain.PriceSeries{
		"AAPL": testingpkg.SeriesFromCloses("AAPL", 170, 172, 175.50),
		"JNJ":  testingpkg.SeriesFromCloses("JNJ", 155),
	}

	dc := DailyValueChange(holdings, history)

	require.Len(t, dc.Details, 1)
	assert.Equal(t, "AAPL", dc.Details[0].Ticker)
	assert.Equal(t, 172.0, dc.Details[0].PreviousPrice)
	assert.Equal(t, 175.0, dc.DailyChangeValue) // 50 * 3.50
	assert.Equal(t, 8775.0, dc.CurrentValue)
	assert.Equal(t, 8600.0, dc.PreviousValue)
	assert.InDelta(t, 2.0349, dc.DailyChangePercentage, 1e-4)
	assert.Equal(t, []string{"JNJ"}, dc.Skipped)
}

func TestDailyValueChange_NoHistory(t *testing.T) {
	dc := DailyValueChange(testingpkg.NewHoldingFixtures(), map[string]domain.PriceSeries{})

	assert.Empty(t, dc.Details)
	assert.Len(t, dc.Skipped, 4)
	assert.Equal(t, 0.0, dc.DailyChangePercentage)
}

func TestPortfolioWeights(t *testing.T) {
	w := PortfolioWeights(testingpkg.NewHoldingFixtures())

	assert.Equal(t, 28775.0, w.TotalPortfolioValue)
	require.Len(t, w.Weights, 4)

	order := make([]string, len(w.Weights))
	sum := 0.0
	for i, x := range w.Weights {
		order[i] = x.Ticker
		sum += x.WeightPercentage
	}
	assert.Equal(t, []string{"AAPL", "BND", "XOM", "JNJ"}, order)
	assert.InDelta(t, 100.0, sum, 1e-3)
	assert.InDelta(t, 30.4952, w.Weights[0].WeightPercentage, 1e-4)
}

func TestPortfolioWeights_ZeroValue(t *testing.T) {
	w := PortfolioWeights([]domain.Holding{{Ticker: "A", Shares: 1}})
	assert.Equal(t, 0.0, w.Weights[0].WeightPercentage)
}

func TestSummarize(t *testing.T) {
	s := Summarize(testingpkg.NewHoldingFixtures(), nil)
	assert.Nil(t, s.DailyChange)
	assert.Equal(t, 28775.0, s.Weights.TotalPortfolioValue)

	s = Summarize(testingpkg.NewHoldingFixtures(), map[string]domain.PriceSeries{})
	assert.NotNil(t, s.DailyChange)
}
