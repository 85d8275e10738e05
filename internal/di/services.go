package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/clients/alphavantage"
	"github.com/aristath/portfolio-analytics/internal/config"
	"github.com/aristath/portfolio-analytics/internal/modules/advisor"
	"github.com/aristath/portfolio-analytics/internal/modules/calculations"
	"github.com/aristath/portfolio-analytics/internal/modules/diversification"
	"github.com/aristath/portfolio-analytics/internal/modules/hedging"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
	"github.com/aristath/portfolio-analytics/internal/modules/portfolio"
	"github.com/aristath/portfolio-analytics/internal/modules/returns"
	"github.com/aristath/portfolio-analytics/internal/modules/risk"
)

// InitializeServices creates the upstream client, the market data loader and
// every domain service. Analyses read prices from the local store; the
// Alpha Vantage client only feeds the store through scheduled jobs.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.PortfolioRepo == nil {
		return fmt.Errorf("repositories must be initialized first")
	}

	if cfg.AlphaVantageAPIKey != "" {
		container.AlphaVantageClient = alphavantage.NewClient(cfg.AlphaVantageAPIKey, log,
			alphavantage.WithCallsPerMinute(cfg.AlphaVantageCallsPerMinute),
		)
		log.Info().Int("calls_per_minute", cfg.AlphaVantageCallsPerMinute).Msg("Alpha Vantage client enabled")
	} else {
		log.Warn().Msg("ALPHAVANTAGE_API_KEY not set, price refresh disabled")
	}

	container.MarketData = marketdata.NewLoader(marketdata.LoaderDeps{
		Prices:    container.HistoryRepo,
		Benchmark: marketdata.Benchmark{Ticker: cfg.BenchmarkTicker, History: container.HistoryRepo},
		RiskFree:  marketdata.FixedRiskFreeRate(cfg.RiskFreeRate),
		Metadata:  container.MetadataRepo,
		Options:   container.OptionsRepo,
	}, cfg.FetchConcurrency, log)

	container.Advisor = advisor.New(advisor.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	}, log)

	container.PortfolioService = portfolio.NewService(portfolio.ServiceDeps{
		Store:       container.PortfolioRepo,
		Enricher:    container.MarketData,
		History:     container.MarketData,
		Advisor:     container.Advisor,
		Invalidator: container.ResultCache,
	}, log)

	container.RiskEngine = risk.NewEngine(returns.Policy{MinObservations: cfg.MinObservations}, cfg.RiskWorkers)
	container.RiskService = risk.NewService(container.RiskEngine, risk.ServiceDeps{
		Holdings:   container.PortfolioRepo,
		Market:     container.MarketData,
		Cache:      container.ResultCache,
		Key:        calculations.RiskKey,
		Correlated: cfg.CorrelatedRisk,
	}, log)

	container.DiversificationService = diversification.NewService(diversification.ServiceDeps{
		Holdings: container.PortfolioRepo,
		Enricher: container.MarketData,
		Cache:    container.ResultCache,
		Key:      calculations.DiversificationKey,
	}, log)

	container.HedgingService = hedging.NewService(hedging.ServiceDeps{
		Holdings:    container.PortfolioRepo,
		Chains:      container.MarketData,
		Cache:       container.ResultCache,
		Key:         calculations.HedgingKey,
		Store:       container.OptionsRepo,
		Invalidator: container.ResultCache,
	}, log)

	log.Info().
		Bool("advisor_live", container.Advisor.Enabled()).
		Bool("correlated_risk", cfg.CorrelatedRisk).
		Msg("Services initialized")
	return nil
}
