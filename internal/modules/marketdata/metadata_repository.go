package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// MetadataRepository stores ticker classification in the ticker_metadata table.
type MetadataRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewMetadataRepository creates a new metadata repository
func NewMetadataRepository(db *sql.DB, log zerolog.Logger) *MetadataRepository {
	return &MetadataRepository{
		db:  db,
		log: log.With().Str("repo", "metadata").Logger(),
	}
}

// TickerMetadata returns stored metadata, or the defaults for unknown tickers.
func (r *MetadataRepository) TickerMetadata(ctx context.Context, ticker string) (domain.TickerMetadata, error) {
	m := domain.TickerMetadata{Ticker: ticker}
	err := r.db.QueryRowContext(ctx,
		"SELECT sector, industry, asset_class FROM ticker_metadata WHERE ticker = ?", ticker,
	).Scan(&m.Sector, &m.Industry, &m.AssetClass)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultMetadata(ticker), nil
	}
	if err != nil {
		return domain.TickerMetadata{}, fmt.Errorf("failed to query metadata for %s: %w", ticker, err)
	}
	return m, nil
}

// Upsert stores metadata, filling blank fields with the defaults.
func (r *MetadataRepository) Upsert(ctx context.Context, m domain.TickerMetadata) error {
	def := domain.DefaultMetadata(m.Ticker)
	if m.Sector == "" {
		m.Sector = def.Sector
	}
	if m.Industry == "" {
		m.Industry = def.Industry
	}
	if m.AssetClass == "" {
		m.AssetClass = def.AssetClass
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ticker_metadata (ticker, sector, industry, asset_class, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			sector = excluded.sector,
			industry = excluded.industry,
			asset_class = excluded.asset_class,
			updated_at = excluded.updated_at
	`, m.Ticker, m.Sector, m.Industry, m.AssetClass, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert metadata for %s: %w", m.Ticker, err)
	}
	return nil
}

// Missing returns the tickers that have no stored metadata, in input order.
func (r *MetadataRepository) Missing(ctx context.Context, tickers []string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT ticker FROM ticker_metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata tickers: %w", err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan metadata ticker: %w", err)
		}
		known[t] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metadata tickers: %w", err)
	}

	var missing []string
	for _, t := range tickers {
		if !known[t] {
			missing = append(missing, t)
		}
	}
	return missing, nil
}
