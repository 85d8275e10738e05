// Package diversification scores how evenly a portfolio's value is spread
// across sectors, asset classes and holdings.
package diversification

import (
	"fmt"
	"sort"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// Composite weights and thresholds.
const (
	SectorWeight       = 0.5
	AssetClassWeight   = 0.3
	HoldingCountWeight = 0.2

	// SaturationHoldings is the holding count at which the holding-count score reaches 100.
	SaturationHoldings = 20

	lowScoreThreshold      = 50
	concentrationThreshold = 0.40
	minSectors             = 5
)

// Bucket is one group of a partition and its share of total value.
type Bucket struct {
	Name   string  `json:"name" msgpack:"name"`
	Value  float64 `json:"value" msgpack:"value"`
	Weight float64 `json:"weight" msgpack:"weight"`
}

// Breakdown is the Herfindahl analysis of one partition dimension.
// Buckets are sorted by weight, heaviest first.
type Breakdown struct {
	Score            float64  `json:"score" msgpack:"score"`
	HerfindahlIndex  float64  `json:"herfindahl_index" msgpack:"herfindahl_index"`
	Count            int      `json:"count" msgpack:"count"`
	MaxConcentration float64  `json:"max_concentration" msgpack:"max_concentration"`
	Largest          string   `json:"largest,omitempty" msgpack:"largest"`
	Buckets          []Bucket `json:"buckets" msgpack:"buckets"`
}

// Result is a full diversification assessment.
type Result struct {
	AsOf              time.Time `json:"as_of" msgpack:"as_of"`
	Score             float64   `json:"score" msgpack:"score"`
	TotalValue        float64   `json:"total_value" msgpack:"total_value"`
	Sector            Breakdown `json:"sector" msgpack:"sector"`
	AssetClass        Breakdown `json:"asset_class" msgpack:"asset_class"`
	Holdings          int       `json:"holdings" msgpack:"holdings"`
	HoldingCountScore float64   `json:"holding_count_score" msgpack:"holding_count_score"`
	Recommendations   []string  `json:"recommendations" msgpack:"recommendations"`
	Empty             bool      `json:"empty" msgpack:"empty"`
}

// Score assesses holdings. A portfolio with no value returns an empty, zero
// result rather than dividing by zero.
func Score(holdings []domain.Holding) Result {
	result := Result{
		TotalValue:      domain.TotalValue(holdings),
		Sector:          Breakdown{Buckets: []Bucket{}},
		AssetClass:      Breakdown{Buckets: []Bucket{}},
		Recommendations: []string{},
	}
	if result.TotalValue <= 0 {
		result.Empty = true
		return result
	}

	result.Sector = Herfindahl(holdings, domain.Holding.SectorOrDefault)
	result.AssetClass = Herfindahl(holdings, domain.Holding.AssetClassOrDefault)
	result.Holdings = len(domain.Tickers(holdings))
	result.HoldingCountScore = HoldingCountScore(result.Holdings)
	result.Score = SectorWeight*result.Sector.Score +
		AssetClassWeight*result.AssetClass.Score +
		HoldingCountWeight*result.HoldingCountScore
	result.Recommendations = recommendations(result)
	return result
}

// Herfindahl partitions holdings by key and returns the concentration of the
// value-weighted buckets. score = 100 × (1 − Σ wᵢ²).
func Herfindahl(holdings []domain.Holding, key func(domain.Holding) string) Breakdown {
	values := make(map[string]float64)
	total := 0.0
	for _, h := range holdings {
		v := h.Value()
		values[key(h)] += v
		total += v
	}

	b := Breakdown{Buckets: make([]Bucket, 0, len(values))}
	if total <= 0 {
		return b
	}

	for name, v := range values {
		w := v / total
		b.HerfindahlIndex += w * w
		b.Buckets = append(b.Buckets, Bucket{Name: name, Value: v, Weight: w})
	}
	sort.Slice(b.Buckets, func(i, j int) bool {
		if b.Buckets[i].Weight != b.Buckets[j].Weight {
			return b.Buckets[i].Weight > b.Buckets[j].Weight
		}
		return b.Buckets[i].Name < b.Buckets[j].Name
	})

	// Rounding can push a single-bucket index a hair past 1.
	b.HerfindahlIndex = min(b.HerfindahlIndex, 1)
	b.Score = 100 * (1 - b.HerfindahlIndex)
	b.Count = len(b.Buckets)
	b.MaxConcentration = b.Buckets[0].Weight
	b.Largest = b.Buckets[0].Name
	return b
}

// HoldingCountScore rewards holding count linearly up to SaturationHoldings.
func HoldingCountScore(n int) float64 {
	return min(100, float64(n)/SaturationHoldings*100)
}

func recommendations(r Result) []string {
	recs := []string{}
	if r.Score < lowScoreThreshold {
		recs = append(recs, "Consider diversifying across more sectors to reduce concentration risk")
	}
	if r.Sector.MaxConcentration > concentrationThreshold {
		recs = append(recs, fmt.Sprintf("High concentration in %s (%.1f%%). Consider reducing exposure.",
			r.Sector.Largest, r.Sector.MaxConcentration*100))
	}
	if r.Sector.Count < minSectors {
		recs = append(recs, fmt.Sprintf("Portfolio spans only %d sectors. Consider adding exposure to additional sectors.",
			r.Sector.Count))
	}
	if r.AssetClass.Count == 1 {
		recs = append(recs, "All holdings are in a single asset class. Consider adding bonds or other asset classes.")
	}
	return recs
}
