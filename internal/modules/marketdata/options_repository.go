package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/aristath/portfolio-analytics/internal/domain"
)

// OptionsRepository stores quoted option contracts in the option_quotes table.
type OptionsRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewOptionsRepository creates a new options repository
func NewOptionsRepository(db *sql.DB, log zerolog.Logger) *OptionsRepository {
	return &OptionsRepository{
		db:  db,
		log: log.With().Str("repo", "options").Logger(),
	}
}

// OptionsChain returns every quote from the most recent as-of date for ticker.
func (r *OptionsRepository) OptionsChain(ctx context.Context, ticker string) ([]domain.OptionQuote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ticker, option_type, strike_price, expiration_date, as_of,
		       bid_price, ask_price, last_price, volume, open_interest,
		       implied_volatility, delta, gamma, theta, vega
		FROM option_quotes
		WHERE ticker = ?
		  AND as_of = (SELECT MAX(as_of) FROM option_quotes WHERE ticker = ?)
		ORDER BY option_type, expiration_date, strike_price
	`, ticker, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to query options chain: %w", err)
	}
	defer rows.Close()

	chain := []domain.OptionQuote{}
	for rows.Next() {
		var q domain.OptionQuote
		var optionType, expiration, asOf string
		err := rows.Scan(&q.Ticker, &optionType, &q.StrikePrice, &expiration, &asOf,
			&q.BidPrice, &q.AskPrice, &q.LastPrice, &q.Volume, &q.OpenInterest,
			&q.ImpliedVolatility, &q.Delta, &q.Gamma, &q.Theta, &q.Vega)
		if err != nil {
			return nil, fmt.Errorf("failed to scan option quote: %w", err)
		}
		q.OptionType = domain.OptionType(optionType)
		if q.ExpirationDate, err = time.Parse(domain.DateLayout, expiration); err != nil {
			return nil, fmt.Errorf("invalid expiration %q: %w", expiration, err)
		}
		if q.AsOf, err = time.Parse(domain.DateLayout, asOf); err != nil {
			return nil, fmt.Errorf("invalid as-of %q: %w", asOf, err)
		}
		chain = append(chain, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating option quotes: %w", err)
	}
	return chain, nil
}

// Upsert stores quotes keyed by (ticker, type, strike, expiration, as-of).
func (r *OptionsRepository) Upsert(ctx context.Context, quotes []domain.OptionQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO option_quotes (
				ticker, option_type, strike_price, expiration_date, as_of,
				bid_price, ask_price, last_price, volume, open_interest,
				implied_volatility, delta, gamma, theta, vega
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(ticker, option_type, strike_price, expiration_date, as_of) DO UPDATE SET
				bid_price = excluded.bid_price,
				ask_price = excluded.ask_price,
				last_price = excluded.last_price,
				volume = excluded.volume,
				open_interest = excluded.open_interest,
				implied_volatility = excluded.implied_volatility,
				delta = excluded.delta,
				gamma = excluded.gamma,
				theta = excluded.theta,
				vega = excluded.vega
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare option upsert: %w", err)
		}
		defer stmt.Close()

		for _, q := range quotes {
			if q.OptionType != domain.OptionCall && q.OptionType != domain.OptionPut {
				return fmt.Errorf("invalid option type %q for %s", q.OptionType, q.Ticker)
			}
			_, err := stmt.ExecContext(ctx,
				q.Ticker, string(q.OptionType), q.StrikePrice,
				q.ExpirationDate.Format(domain.DateLayout), q.AsOf.Format(domain.DateLayout),
				q.BidPrice, q.AskPrice, q.LastPrice, q.Volume, q.OpenInterest,
				q.ImpliedVolatility, q.Delta, q.Gamma, q.Theta, q.Vega)
			if err != nil {
				return fmt.Errorf("failed to upsert option quote for %s: %w", q.Ticker, err)
			}
		}
		return nil
	})
}
