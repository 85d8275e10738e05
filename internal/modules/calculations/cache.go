// Package calculations caches computed analytics so repeated requests for the
// same portfolio and parameters skip recomputation until prices change.
package calculations

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/portfolio-analytics/internal/domain"
)

// Key prefixes, one per analytics family.
const (
	PrefixRisk            = "risk:"
	PrefixDiversification = "diversification:"
	PrefixHedging         = "hedging:"
)

// Cache provides msgpack-encoded key-value storage with expiration,
// backed by the cache_data table.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
	log zerolog.Logger
}

// NewCache creates a new cache instance. Entries written with Set live for ttl.
func NewCache(db *sql.DB, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		ttl: ttl,
		now: time.Now,
		log: log.With().Str("component", "calculations_cache").Logger(),
	}
}

// Get decodes the entry for key into dest. It reports false for missing or
// expired entries.
func (c *Cache) Get(key string, dest interface{}) (bool, error) {
	var value []byte
	var expiresAt int64
	err := c.db.QueryRow("SELECT value, expires_at FROM cache_data WHERE key = ?", key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	if c.now().Unix() >= expiresAt {
		return false, nil
	}

	if err := msgpack.Unmarshal(value, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key with the cache's default TTL.
func (c *Cache) Set(key string, value interface{}) error {
	return c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key for ttl. A non-positive ttl is a no-op.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	_, err = c.db.Exec(`
		INSERT INTO cache_data (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, data, c.now().Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

// Delete removes a cache entry.
func (c *Cache) Delete(key string) error {
	_, err := c.db.Exec("DELETE FROM cache_data WHERE key = ?", key)
	return err
}

// DeleteByPrefix removes all entries whose key starts with prefix.
func (c *Cache) DeleteByPrefix(prefix string) (int64, error) {
	res, err := c.db.Exec("DELETE FROM cache_data WHERE substr(key, 1, ?) = ?", len(prefix), prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache prefix %s: %w", prefix, err)
	}
	return res.RowsAffected()
}

// DeleteExpired removes entries past their expiry.
func (c *Cache) DeleteExpired() (int64, error) {
	res, err := c.db.Exec("DELETE FROM cache_data WHERE expires_at <= ?", c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}
	return res.RowsAffected()
}

// InvalidateAnalytics drops every cached analytics result. Called after new
// price history arrives.
func (c *Cache) InvalidateAnalytics() error {
	var total int64
	for _, prefix := range []string{PrefixRisk, PrefixDiversification, PrefixHedging} {
		n, err := c.DeleteByPrefix(prefix)
		if err != nil {
			return err
		}
		total += n
	}
	c.log.Debug().Int64("entries", total).Msg("Invalidated cached analytics")
	return nil
}

// InvalidateHedging drops every cached hedging result. Called after new
// option quotes are stored.
func (c *Cache) InvalidateHedging() error {
	n, err := c.DeleteByPrefix(PrefixHedging)
	if err != nil {
		return err
	}
	c.log.Debug().Int64("entries", n).Msg("Invalidated cached hedging results")
	return nil
}

// InvalidatePortfolio drops cached results for one portfolio.
func (c *Cache) InvalidatePortfolio(portfolioID string) error {
	for _, prefix := range []string{PrefixRisk, PrefixDiversification, PrefixHedging} {
		if _, err := c.DeleteByPrefix(prefix + portfolioID + ":"); err != nil {
			return err
		}
	}
	return nil
}

// RiskKey identifies a risk analysis: portfolio, window, as-of date and the
// sorted confidence levels.
func RiskKey(portfolioID string, window domain.Window, asOf time.Time, confidences []float64) string {
	levels := make([]string, len(confidences))
	for i, c := range confidences {
		levels[i] = strconv.FormatFloat(c, 'f', -1, 64)
	}
	return fmt.Sprintf("%s%s:%s:%s:%s", PrefixRisk, portfolioID, window, asOf.Format(domain.DateLayout), strings.Join(levels, ","))
}

// DiversificationKey identifies a diversification result.
func DiversificationKey(portfolioID string) string {
	return PrefixDiversification + portfolioID + ":"
}

// HedgingKey identifies a hedging result for the given targets.
func HedgingKey(portfolioID string, asOf time.Time, targetProtection, targetPremium float64) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", PrefixHedging, portfolioID, asOf.Format(domain.DateLayout),
		strconv.FormatFloat(targetProtection, 'f', -1, 64),
		strconv.FormatFloat(targetPremium, 'f', -1, 64))
}
