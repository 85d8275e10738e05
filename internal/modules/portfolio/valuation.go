package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// HoldingGain is the unrealized result of one position.
type HoldingGain struct {
	Ticker             string  `json:"ticker"`
	Shares             float64 `json:"shares"`
	PurchasePrice      float64 `json:"purchase_price"`
	CurrentPrice       float64 `json:"current_price"`
	CostBasis          float64 `json:"cost_basis"`
	CurrentValue       float64 `json:"current_value"`
	GainLoss           float64 `json:"gain_loss"`
	GainLossPercentage float64 `json:"gain_loss_percentage"`
}

// GainLoss is the unrealized result of a whole portfolio.
type GainLoss struct {
	TotalGainLoss     float64       `json:"total_gain_loss"`
	TotalCostBasis    float64       `json:"total_cost_basis"`
	TotalCurrentValue float64       `json:"total_current_value"`
	PercentageReturn  float64       `json:"percentage_return"`
	Details           []HoldingGain `json:"details"`
}

// HoldingChange is the change in one position's value since the previous close.
type HoldingChange struct {
	Ticker                string  `json:"ticker"`
	Shares                float64 `json:"shares"`
	CurrentPrice          float64 `json:"current_price"`
	PreviousPrice         float64 `json:"previous_price"`
	DailyChangeValue      float64 `json:"daily_change_value"`
	DailyChangePercentage float64 `json:"daily_change_percentage"`
}

// DailyChange is the change in portfolio value between the last two closes.
// Tickers with fewer than two closes are listed in Skipped.
type DailyChange struct {
	DailyChangeValue      float64         `json:"daily_change_value"`
	DailyChangePercentage float64         `json:"daily_change_percentage"`
	CurrentValue          float64         `json:"current_value"`
	PreviousValue         float64         `json:"previous_value"`
	Details               []HoldingChange `json:"details"`
	Skipped               []string        `json:"skipped,omitempty"`
}

// Weight is a position's share of the portfolio value.
type Weight struct {
	Ticker           string  `json:"ticker"`
	Shares           float64 `json:"shares"`
	CurrentPrice     float64 `json:"current_price"`
	Value            float64 `json:"value"`
	WeightPercentage float64 `json:"weight_percentage"`
}

// Weights is the composition of a portfolio, heaviest position first.
type Weights struct {
	TotalPortfolioValue float64  `json:"total_portfolio_value"`
	Weights             []Weight `json:"weights"`
}

// Summary bundles the valuation views of a portfolio.
type Summary struct {
	GainLoss    GainLoss     `json:"gain_loss"`
	DailyChange *DailyChange `json:"daily_change,omitempty"`
	Weights     Weights      `json:"weights"`
}

// UnrealizedGainLoss values every holding at its current price against its cost basis.
// Percentages are 0 when the cost basis is 0.
func UnrealizedGainLoss(holdings []domain.Holding) GainLoss {
	totalCost := decimal.Zero
	totalValue := decimal.Zero
	details := make([]HoldingGain, 0, len(holdings))

	for _, h := range holdings {
		shares := decimal.NewFromFloat(h.Shares)
		cost := shares.Mul(decimal.NewFromFloat(h.PurchasePrice))
		value := shares.Mul(decimal.NewFromFloat(h.CurrentPrice))
		gain := value.Sub(cost)

		totalCost = totalCost.Add(cost)
		totalValue = totalValue.Add(value)

		details = append(details, HoldingGain{
			Ticker:             h.Ticker,
			Shares:             h.Shares,
			PurchasePrice:      h.PurchasePrice,
			CurrentPrice:       h.CurrentPrice,
			CostBasis:          money(cost),
			CurrentValue:       money(value),
			GainLoss:           money(gain),
			GainLossPercentage: percentOf(gain, cost),
		})
	}

	totalGain := totalValue.Sub(totalCost)
	return GainLoss{
		TotalGainLoss:     money(totalGain),
		TotalCostBasis:    money(totalCost),
		TotalCurrentValue: money(totalValue),
		PercentageReturn:  percentOf(totalGain, totalCost),
		Details:           details,
	}
}

// DailyValueChange compares the last two closes of each holding's history.
func DailyValueChange(holdings []domain.Holding, history map[string]domain.PriceSeries) DailyChange {
	current := decimal.Zero
	previous := decimal.Zero
	out := DailyChange{Details: []HoldingChange{}}

	for _, h := range holdings {
		series, ok := history[h.Ticker]
		if !ok || series.Len() < 2 {
			out.Skipped = append(out.Skipped, h.Ticker)
			continue
		}
		last := series.Points[series.Len()-1].Close
		prev := series.Points[series.Len()-2].Close

		shares := decimal.NewFromFloat(h.Shares)
		nowValue := shares.Mul(decimal.NewFromFloat(last))
		prevValue := shares.Mul(decimal.NewFromFloat(prev))
		change := nowValue.Sub(prevValue)

		current = current.Add(nowValue)
		previous = previous.Add(prevValue)

		out.Details = append(out.Details, HoldingChange{
			Ticker:                h.Ticker,
			Shares:                h.Shares,
			CurrentPrice:          last,
			PreviousPrice:         prev,
			DailyChangeValue:      money(change),
			DailyChangePercentage: percentOf(change, prevValue),
		})
	}

	change := current.Sub(previous)
	out.DailyChangeValue = money(change)
	out.DailyChangePercentage = percentOf(change, previous)
	out.CurrentValue = money(current)
	out.PreviousValue = money(previous)
	return out
}

// PortfolioWeights returns each holding's share of total value, sorted descending.
func PortfolioWeights(holdings []domain.Holding) Weights {
	total := decimal.Zero
	values := make([]decimal.Decimal, len(holdings))
	for i, h := range holdings {
		values[i] = decimal.NewFromFloat(h.Shares).Mul(decimal.NewFromFloat(h.CurrentPrice))
		total = total.Add(values[i])
	}

	weights := make([]Weight, len(holdings))
	for i, h := range holdings {
		weights[i] = Weight{
			Ticker:           h.Ticker,
			Shares:           h.Shares,
			CurrentPrice:     h.CurrentPrice,
			Value:            money(values[i]),
			WeightPercentage: percentOf(values[i], total),
		}
	}
	sort.SliceStable(weights, func(i, j int) bool {
		return weights[i].WeightPercentage > weights[j].WeightPercentage
	})

	return Weights{TotalPortfolioValue: money(total), Weights: weights}
}

// Summarize builds all valuation views. history may be nil, in which case the
// daily change is omitted.
func Summarize(holdings []domain.Holding, history map[string]domain.PriceSeries) Summary {
	s := Summary{
		GainLoss: UnrealizedGainLoss(holdings),
		Weights:  PortfolioWeights(holdings),
	}
	if history != nil {
		dc := DailyValueChange(holdings, history)
		s.DailyChange = &dc
	}
	return s
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func percentOf(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(hundred).Round(4).InexactFloat64()
}
