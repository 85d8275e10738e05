package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/aristath/portfolio-analytics/internal/domain"
)

// HistoryRepository stores daily closes in the daily_prices table.
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
}

// PriceHistory returns the last window.Observations() closes, oldest first.
// A ticker without rows yields an empty series, not an error.
func (r *HistoryRepository) PriceHistory(ctx context.Context, ticker string, window domain.Window) (domain.PriceSeries, error) {
	if err := window.Validate(); err != nil {
		return domain.PriceSeries{}, err
	}
	return r.LastN(ctx, ticker, window.Observations())
}

// LastN returns up to limit most recent closes, oldest first.
func (r *HistoryRepository) LastN(ctx context.Context, ticker string, limit int) (domain.PriceSeries, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, close, volume
		FROM daily_prices
		WHERE ticker = ?
		ORDER BY date DESC
		LIMIT ?
	`, ticker, limit)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	series := domain.PriceSeries{Ticker: ticker, Points: []domain.PricePoint{}}
	for rows.Next() {
		var date string
		var p domain.PricePoint
		var volume sql.NullInt64
		if err := rows.Scan(&date, &p.Close, &volume); err != nil {
			return domain.PriceSeries{}, fmt.Errorf("failed to scan daily price: %w", err)
		}
		p.Date, err = time.Parse(domain.DateLayout, date)
		if err != nil {
			return domain.PriceSeries{}, fmt.Errorf("invalid date %q for %s: %w", date, ticker, err)
		}
		if volume.Valid {
			v := volume.Int64
			p.Volume = &v
		}
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return domain.PriceSeries{}, fmt.Errorf("error iterating daily prices: %w", err)
	}

	// Query is newest first; the engine wants chronological order
	slices.Reverse(series.Points)
	return series, nil
}

// Upsert inserts or replaces the given closes in one transaction.
func (r *HistoryRepository) Upsert(ctx context.Context, series domain.PriceSeries) error {
	if len(series.Points) == 0 {
		return nil
	}
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO daily_prices (ticker, date, close, volume)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(ticker, date) DO UPDATE SET
				close = excluded.close,
				volume = excluded.volume
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare price upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range series.Points {
			if p.Close <= 0 {
				return fmt.Errorf("non-positive close %v for %s on %s", p.Close, series.Ticker, p.Date.Format(domain.DateLayout))
			}
			var volume interface{}
			if p.Volume != nil {
				volume = *p.Volume
			}
			if _, err := stmt.ExecContext(ctx, series.Ticker, p.Date.Format(domain.DateLayout), p.Close, volume); err != nil {
				return fmt.Errorf("failed to upsert price for %s: %w", series.Ticker, err)
			}
		}
		return nil
	})
}

// LatestDate returns the date of the newest close for ticker, or false when none.
func (r *HistoryRepository) LatestDate(ctx context.Context, ticker string) (time.Time, bool, error) {
	var date sql.NullString
	err := r.db.QueryRowContext(ctx, "SELECT MAX(date) FROM daily_prices WHERE ticker = ?", ticker).Scan(&date)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest price date: %w", err)
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(domain.DateLayout, date.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q for %s: %w", date.String, ticker, err)
	}
	return t, true, nil
}
