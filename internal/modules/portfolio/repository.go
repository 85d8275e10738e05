package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/portfolio-analytics/internal/database"
	"github.com/aristath/portfolio-analytics/internal/domain"
)

// Repository persists portfolios and their holdings.
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create stores a new portfolio with its holdings and returns it with a fresh id.
func (r *Repository) Create(ctx context.Context, userID, fileName string, holdings []domain.Holding) (*Portfolio, error) {
	p := &Portfolio{
		ID:        uuid.NewString(),
		UserID:    userID,
		FileName:  fileName,
		CreatedAt: r.now().UTC().Truncate(time.Second),
		Holdings:  holdings,
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO portfolios (id, user_id, file_name, created_at) VALUES (?, ?, ?, ?)",
			p.ID, p.UserID, p.FileName, p.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert portfolio: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO holdings (
				portfolio_id, ticker, shares, purchase_price, purchase_date,
				current_price, sector, industry, asset_class
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare holding insert: %w", err)
		}
		defer stmt.Close()

		for _, h := range holdings {
			if err := h.Validate(); err != nil {
				return err
			}
			var purchaseDate interface{}
			if !h.PurchaseDate.IsZero() {
				purchaseDate = h.PurchaseDate.Format(domain.DateLayout)
			}
			_, err := stmt.ExecContext(ctx, p.ID, h.Ticker, h.Shares, h.PurchasePrice, purchaseDate,
				h.CurrentPrice, h.Sector, h.Industry, h.AssetClass)
			if err != nil {
				return fmt.Errorf("failed to insert holding %s: %w", h.Ticker, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info().Str("portfolio_id", p.ID).Int("holdings", len(holdings)).Msg("Portfolio stored")
	return p, nil
}

// Get returns a portfolio with its holdings, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (*Portfolio, error) {
	p := &Portfolio{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, file_name, created_at FROM portfolios WHERE id = ?", id,
	).Scan(&p.ID, &p.UserID, &p.FileName, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio %s: %w", id, err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()

	p.Holdings, err = r.holdings(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Holdings returns the holdings of a portfolio, or ErrNotFound.
func (r *Repository) Holdings(ctx context.Context, id string) ([]domain.Holding, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Holdings, nil
}

func (r *Repository) holdings(ctx context.Context, id string) ([]domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ticker, shares, purchase_price, purchase_date, current_price, sector, industry, asset_class
		FROM holdings
		WHERE portfolio_id = ?
		ORDER BY ticker
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := []domain.Holding{}
	for rows.Next() {
		var h domain.Holding
		var purchaseDate sql.NullString
		err := rows.Scan(&h.Ticker, &h.Shares, &h.PurchasePrice, &purchaseDate, &h.CurrentPrice,
			&h.Sector, &h.Industry, &h.AssetClass)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		if purchaseDate.Valid && purchaseDate.String != "" {
			if h.PurchaseDate, err = time.Parse(domain.DateLayout, purchaseDate.String); err != nil {
				return nil, fmt.Errorf("invalid purchase date %q for %s: %w", purchaseDate.String, h.Ticker, err)
			}
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// ListByUser returns a user's portfolios, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Info, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.user_id, p.file_name, p.created_at, COUNT(h.ticker)
		FROM portfolios p
		LEFT JOIN holdings h ON h.portfolio_id = p.id
		WHERE p.user_id = ?
		GROUP BY p.id
		ORDER BY p.created_at DESC, p.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios for user %s: %w", userID, err)
	}
	defer rows.Close()

	out := []Info{}
	for rows.Next() {
		var info Info
		var createdAt int64
		if err := rows.Scan(&info.ID, &info.UserID, &info.FileName, &createdAt, &info.HoldingsCount); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		info.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

// AllTickers returns every distinct ticker held in any portfolio.
func (r *Repository) AllTickers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT ticker FROM holdings ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// UpdateCurrentPrice sets the current price of ticker in every portfolio.
func (r *Repository) UpdateCurrentPrice(ctx context.Context, ticker string, price float64) (int64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("non-positive price %v for %s", price, ticker)
	}
	res, err := r.db.ExecContext(ctx, "UPDATE holdings SET current_price = ? WHERE ticker = ?", price, ticker)
	if err != nil {
		return 0, fmt.Errorf("failed to update current price for %s: %w", ticker, err)
	}
	return res.RowsAffected()
}

// Delete removes a portfolio and its holdings.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM portfolios WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
