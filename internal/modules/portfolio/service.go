package portfolio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/advisor"
)

// DefaultUserID owns uploads that do not name a user.
const DefaultUserID = "anonymous"

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, userID, fileName string, holdings []domain.Holding) (*Portfolio, error)
	Get(ctx context.Context, id string) (*Portfolio, error)
	ListByUser(ctx context.Context, userID string) ([]Info, error)
	Delete(ctx context.Context, id string) error
}

// Enricher fills missing holding classification.
type Enricher interface {
	Enrich(ctx context.Context, holdings []domain.Holding) ([]domain.Holding, error)
}

// HistoryLoader loads recent closes for several tickers.
type HistoryLoader interface {
	PriceHistories(ctx context.Context, tickers []string, window domain.Window) (map[string]domain.PriceSeries, error)
}

// AdviceGenerator answers a rendered advisor prompt.
type AdviceGenerator interface {
	Advise(ctx context.Context, prompt string) advisor.Response
}

// Invalidator drops cached analytics for a portfolio.
type Invalidator interface {
	InvalidatePortfolio(portfolioID string) error
}

// ImportError reports a file that could not be turned into holdings.
type ImportError struct {
	Errors   []string
	Warnings []string
}

func (e *ImportError) Error() string {
	return "CSV validation failed: " + strings.Join(e.Errors, "; ")
}

// ImportOutcome is the result of a successful upload.
type ImportOutcome struct {
	Portfolio *Portfolio
	Warnings  []string
}

// Advice is an advisor answer together with the prompt that produced it.
type Advice struct {
	advisor.Response
	Prompt string `json:"prompt"`
}

// Service manages uploaded portfolios.
type Service struct {
	store       Store
	enricher    Enricher
	history     HistoryLoader
	advisor     AdviceGenerator
	invalidator Invalidator
	log         zerolog.Logger
}

// ServiceDeps are the service collaborators. Enricher, History and
// Invalidator are optional.
type ServiceDeps struct {
	Store       Store
	Enricher    Enricher
	History     HistoryLoader
	Advisor     AdviceGenerator
	Invalidator Invalidator
}

// NewService creates a new portfolio service
func NewService(deps ServiceDeps, log zerolog.Logger) *Service {
	return &Service{
		store:       deps.Store,
		enricher:    deps.Enricher,
		history:     deps.History,
		advisor:     deps.Advisor,
		invalidator: deps.Invalidator,
		log:         log.With().Str("service", "portfolio").Logger(),
	}
}

// Import parses an uploaded CSV and stores the resulting portfolio.
func (s *Service) Import(ctx context.Context, userID, fileName string, r io.Reader) (*ImportOutcome, error) {
	if strings.TrimSpace(userID) == "" {
		userID = DefaultUserID
	}

	parsed := ParseCSV(r)
	if !parsed.OK() {
		s.log.Warn().Str("file", fileName).Strs("errors", parsed.Errors).Msg("CSV validation failed")
		return nil, &ImportError{Errors: parsed.Errors, Warnings: parsed.Warnings}
	}

	holdings := parsed.Holdings
	if s.enricher != nil {
		enriched, err := s.enricher.Enrich(ctx, holdings)
		if err != nil {
			return nil, fmt.Errorf("failed to enrich holdings: %w", err)
		}
		holdings = enriched
	}

	p, err := s.store.Create(ctx, userID, fileName, holdings)
	if err != nil {
		return nil, err
	}
	return &ImportOutcome{Portfolio: p, Warnings: parsed.Warnings}, nil
}

// Get returns a stored portfolio.
func (s *Service) Get(ctx context.Context, id string) (*Portfolio, error) {
	return s.store.Get(ctx, id)
}

// Holdings returns a stored portfolio's holdings.
func (s *Service) Holdings(ctx context.Context, id string) ([]domain.Holding, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Holdings, nil
}

// ListByUser returns a user's portfolios.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Info, error) {
	return s.store.ListByUser(ctx, userID)
}

// Summary values a stored portfolio. The daily change is included when price
// history is available.
func (s *Service) Summary(ctx context.Context, id string) (Summary, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return s.summarize(ctx, p.Holdings)
}

func (s *Service) summarize(ctx context.Context, holdings []domain.Holding) (Summary, error) {
	var history map[string]domain.PriceSeries
	if s.history != nil {
		h, err := s.history.PriceHistories(ctx, domain.Tickers(holdings), domain.Window30D)
		if err != nil {
			return Summary{}, err
		}
		history = h
	}
	return Summarize(holdings, history), nil
}

// Advise asks the advisor a question about a stored portfolio.
func (s *Service) Advise(ctx context.Context, id, question string) (*Advice, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prompt := AdvisorPrompt(p.Holdings, question)
	resp := s.advisor.Advise(ctx, prompt)
	if resp.Simulated {
		s.log.Info().Str("portfolio_id", id).Str("reason", resp.Error).Msg("Returned simulated advice")
	}
	return &Advice{Response: resp, Prompt: prompt}, nil
}

// Delete removes a portfolio and its cached analytics.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.invalidator != nil {
		if err := s.invalidator.InvalidatePortfolio(id); err != nil {
			s.log.Warn().Err(err).Str("portfolio_id", id).Msg("Failed to invalidate cached analytics")
		}
	}
	return nil
}
