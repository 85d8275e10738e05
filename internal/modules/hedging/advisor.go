// Package hedging selects protective-put and covered-call candidates for each
// holding from a snapshot of quoted options chains.
//
// Selection is a pure function of the snapshot. The recommendation is a
// three-branch heuristic on the position's gain, not an optimization.
package hedging

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// Strategy names a hedging strategy.
type Strategy string

const (
	StrategyProtectivePut Strategy = "protective_put"
	StrategyCoveredCall   Strategy = "covered_call"
)

const (
	// DefaultTargetProtection is the put strike as a fraction of the current price.
	DefaultTargetProtection = 0.95
	// DefaultTargetPremium is the minimum call bid as a fraction of the current price.
	DefaultTargetPremium = 0.02

	// ContractSize is the number of shares one option contract covers.
	ContractSize = 100

	// coveredCallGainThreshold is the price/purchase ratio above which income is preferred.
	coveredCallGainThreshold = 1.2

	strikeTolerance = 1e-9
	yieldTolerance  = 1e-12
)

// Request carries the caller-selected targets.
type Request struct {
	TargetProtection float64 `json:"target_protection"`
	TargetPremium    float64 `json:"target_premium"`
}

// DefaultRequest returns the default targets.
func DefaultRequest() Request {
	return Request{TargetProtection: DefaultTargetProtection, TargetPremium: DefaultTargetPremium}
}

// Validate rejects targets outside their domains: protection in (0, 1],
// premium non-negative.
func (r Request) Validate() error {
	if math.IsNaN(r.TargetProtection) || r.TargetProtection <= 0 || r.TargetProtection > 1 {
		return fmt.Errorf("%w: %v not in (0, 1]", domain.ErrInvalidTargetProtection, r.TargetProtection)
	}
	if math.IsNaN(r.TargetPremium) || r.TargetPremium < 0 {
		return fmt.Errorf("%w: %v is negative", domain.ErrInvalidTargetPremium, r.TargetPremium)
	}
	return nil
}

// ProtectivePut is a put bought against the holding.
type ProtectivePut struct {
	Quote            domain.OptionQuote `json:"option" msgpack:"option"`
	TargetStrike     float64            `json:"target_strike" msgpack:"target_strike"`
	ProtectionLevel  float64            `json:"protection_level" msgpack:"protection_level"`
	CostPerShare     float64            `json:"cost_per_share" msgpack:"cost_per_share"`
	TotalCost        float64            `json:"total_cost" msgpack:"total_cost"`
	ContractsNeeded  float64            `json:"contracts_needed" msgpack:"contracts_needed"`
	Breakeven        float64            `json:"breakeven" msgpack:"breakeven"`
	MaxLoss          float64            `json:"max_loss" msgpack:"max_loss"`
	DaysToExpiration int                `json:"days_to_expiration" msgpack:"days_to_expiration"`
}

// CoveredCall is a call sold against the holding.
type CoveredCall struct {
	Quote            domain.OptionQuote `json:"option" msgpack:"option"`
	Premium          float64            `json:"premium" msgpack:"premium"`
	TotalPremium     float64            `json:"total_premium" msgpack:"total_premium"`
	ContractsNeeded  float64            `json:"contracts_needed" msgpack:"contracts_needed"`
	Breakeven        float64            `json:"breakeven" msgpack:"breakeven"`
	MaxProfit        float64            `json:"max_profit" msgpack:"max_profit"`
	MaxLoss          float64            `json:"max_loss" msgpack:"max_loss"`
	UpsideCap        float64            `json:"upside_cap" msgpack:"upside_cap"`
	DaysToExpiration int                `json:"days_to_expiration" msgpack:"days_to_expiration"`
	// AnnualizedYield is nil when the option expires on or before its quote date.
	AnnualizedYield *float64 `json:"annualized_yield" msgpack:"annualized_yield"`
}

// Suggestion is the hedging outcome for one holding. A nil strategy means no
// contract in the chain qualified.
type Suggestion struct {
	Ticker         string         `json:"ticker" msgpack:"ticker"`
	Shares         float64        `json:"shares" msgpack:"shares"`
	CurrentPrice   float64        `json:"current_price" msgpack:"current_price"`
	PurchasePrice  float64        `json:"purchase_price" msgpack:"purchase_price"`
	ProtectivePut  *ProtectivePut `json:"protective_put" msgpack:"protective_put"`
	CoveredCall    *CoveredCall   `json:"covered_call" msgpack:"covered_call"`
	Recommendation Strategy       `json:"recommendation" msgpack:"recommendation"`
	Rationale      string         `json:"rationale" msgpack:"rationale"`
}

// Skip records a holding that could not be evaluated.
type Skip struct {
	Ticker string `json:"ticker" msgpack:"ticker"`
	Reason string `json:"reason" msgpack:"reason"`
}

// Snapshot is everything one hedging analysis reads.
type Snapshot struct {
	AsOf     time.Time
	Holdings []domain.Holding
	Chains   map[string][]domain.OptionQuote
}

// Result lists a suggestion per evaluable holding, in holding order.
type Result struct {
	AsOf        time.Time    `json:"as_of" msgpack:"as_of"`
	Request     Request      `json:"request" msgpack:"request"`
	Suggestions []Suggestion `json:"suggestions" msgpack:"suggestions"`
	Skipped     []Skip       `json:"skipped" msgpack:"skipped"`
}

// Analyze evaluates every holding independently. Invalid targets reject the
// whole call before any selection.
func Analyze(snap Snapshot, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	result := Result{
		AsOf:        snap.AsOf,
		Request:     req,
		Suggestions: []Suggestion{},
		Skipped:     []Skip{},
	}
	for _, h := range snap.Holdings {
		if h.CurrentPrice <= 0 {
			result.Skipped = append(result.Skipped, Skip{Ticker: h.Ticker, Reason: "no current price"})
			continue
		}
		result.Suggestions = append(result.Suggestions, Suggest(h, snap.Chains[h.Ticker], snap.AsOf, req))
	}
	return result, nil
}

// Suggest evaluates both strategies for one holding and recommends one.
// The holding must have a positive current price.
func Suggest(h domain.Holding, chain []domain.OptionQuote, asOf time.Time, req Request) Suggestion {
	strategy, rationale := Recommend(h)
	return Suggestion{
		Ticker:         h.Ticker,
		Shares:         h.Shares,
		CurrentPrice:   h.CurrentPrice,
		PurchasePrice:  h.PurchasePrice,
		ProtectivePut:  SelectProtectivePut(h, chain, asOf, req.TargetProtection),
		CoveredCall:    SelectCoveredCall(h, chain, asOf, req.TargetPremium),
		Recommendation: strategy,
		Rationale:      rationale,
	}
}

// Recommend picks a strategy from the position's gain: a losing position is
// protected, a position up more than 20% sells calls, anything else defaults
// to protection.
func Recommend(h domain.Holding) (Strategy, string) {
	switch {
	case h.CurrentPrice < h.PurchasePrice:
		return StrategyProtectivePut, "Position is below its purchase price; a protective put limits further downside."
	case h.CurrentPrice > h.PurchasePrice*coveredCallGainThreshold:
		return StrategyCoveredCall, "Position is up more than 20%; a covered call generates income on the gain."
	default:
		return StrategyProtectivePut, "A protective put provides general downside protection."
	}
}

// SelectProtectivePut picks the unexpired put whose strike is nearest to
// current price × targetProtection. Equidistant strikes resolve to the lower
// strike, then the earlier expiration, then the lower ask.
func SelectProtectivePut(h domain.Holding, chain []domain.OptionQuote, asOf time.Time, targetProtection float64) *ProtectivePut {
	target := h.CurrentPrice * targetProtection

	var best *domain.OptionQuote
	bestDist := math.Inf(1)
	for i := range chain {
		q := &chain[i]
		if q.OptionType != domain.OptionPut || !sameTicker(q.Ticker, h.Ticker) || expired(*q, asOf) {
			continue
		}
		dist := math.Abs(q.StrikePrice - target)
		if best == nil || dist < bestDist-strikeTolerance ||
			(math.Abs(dist-bestDist) <= strikeTolerance && putBefore(*q, *best)) {
			best, bestDist = q, dist
		}
	}
	if best == nil {
		return nil
	}

	premium := best.AskPrice
	return &ProtectivePut{
		Quote:            *best,
		TargetStrike:     target,
		ProtectionLevel:  best.StrikePrice / h.CurrentPrice,
		CostPerShare:     premium,
		TotalCost:        premium * h.Shares,
		ContractsNeeded:  h.Shares / ContractSize,
		Breakeven:        h.CurrentPrice - premium,
		MaxLoss:          (h.CurrentPrice - best.StrikePrice) + premium,
		DaysToExpiration: daysToExpiration(*best, asOf),
	}
}

func putBefore(a, b domain.OptionQuote) bool {
	if a.StrikePrice != b.StrikePrice {
		return a.StrikePrice < b.StrikePrice
	}
	if !a.ExpirationDate.Equal(b.ExpirationDate) {
		return a.ExpirationDate.Before(b.ExpirationDate)
	}
	return a.AskPrice < b.AskPrice
}

// SelectCoveredCall picks, among unexpired calls struck at or above the
// current price with a bid of at least current price × targetPremium, the one
// with the highest bid/strike. Ties resolve to the earlier expiration, then
// the lower strike.
func SelectCoveredCall(h domain.Holding, chain []domain.OptionQuote, asOf time.Time, targetPremium float64) *CoveredCall {
	minBid := h.CurrentPrice * targetPremium

	var best *domain.OptionQuote
	bestYield := math.Inf(-1)
	for i := range chain {
		q := &chain[i]
		if q.OptionType != domain.OptionCall || !sameTicker(q.Ticker, h.Ticker) || expired(*q, asOf) {
			continue
		}
		if q.StrikePrice < h.CurrentPrice || q.StrikePrice <= 0 || q.BidPrice < minBid {
			continue
		}
		yield := q.BidPrice / q.StrikePrice
		if best == nil || yield > bestYield+yieldTolerance ||
			(math.Abs(yield-bestYield) <= yieldTolerance && callBefore(*q, *best)) {
			best, bestYield = q, yield
		}
	}
	if best == nil {
		return nil
	}

	premium := best.BidPrice
	dte := daysToExpiration(*best, asOf)
	cc := &CoveredCall{
		Quote:            *best,
		Premium:          premium,
		TotalPremium:     premium * (h.Shares / ContractSize) * ContractSize,
		ContractsNeeded:  h.Shares / ContractSize,
		Breakeven:        h.PurchasePrice - premium,
		MaxProfit:        (best.StrikePrice - h.PurchasePrice) + premium,
		MaxLoss:          h.PurchasePrice - premium,
		UpsideCap:        best.StrikePrice,
		DaysToExpiration: dte,
	}
	if dte > 0 {
		y := (premium / h.CurrentPrice) * (365 / float64(dte)) * 100
		cc.AnnualizedYield = &y
	}
	return cc
}

func callBefore(a, b domain.OptionQuote) bool {
	if !a.ExpirationDate.Equal(b.ExpirationDate) {
		return a.ExpirationDate.Before(b.ExpirationDate)
	}
	return a.StrikePrice < b.StrikePrice
}

// daysToExpiration counts calendar days from the quote date to expiration,
// falling back to asOf for quotes without a date.
func daysToExpiration(q domain.OptionQuote, asOf time.Time) int {
	from := q.AsOf
	if from.IsZero() {
		from = asOf
	}
	return domain.DaysBetween(from, q.ExpirationDate)
}

func expired(q domain.OptionQuote, asOf time.Time) bool {
	return !asOf.IsZero() && domain.DaysBetween(asOf, q.ExpirationDate) < 0
}

func sameTicker(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
