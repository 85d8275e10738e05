package calculations

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-analytics/internal/domain"
	testingpkg "github.com/aristath/portfolio-analytics/internal/testing"
)

type cachedResult struct {
	Window   domain.Window      `msgpack:"window"`
	AsOf     time.Time          `msgpack:"as_of"`
	Beta     *float64           `msgpack:"beta"`
	Vols     map[string]float64 `msgpack:"vols"`
	Excluded []string           `msgpack:"excluded"`
}

func newTestCache(t *testing.T) *Cache {
	db := testingpkg.NewTestDB(t, "cache")
	return NewCache(db.Conn(), time.Hour, zerolog.Nop())
}

func TestCache_RoundTrip(t *testing.T) {
	c := newTestCache(t)
	beta := 1.2
	in := cachedResult{
		Window:   domain.Window1Y,
		AsOf:     time.Date(2024, 10, 28, 0, 0, 0, 0, time.UTC),
		Beta:     &beta,
		Vols:     map[string]float64{"AAPL": 24.5},
		Excluded: []string{"NEWCO"},
	}

	require.NoError(t, c.Set("risk:p1:1Y", in))

	var out cachedResult
	ok, err := c.Get("risk:p1:1Y", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.Window, out.Window)
	assert.True(t, in.AsOf.Equal(out.AsOf))
	require.NotNil(t, out.Beta)
	assert.Equal(t, 1.2, *out.Beta)
	assert.Equal(t, in.Vols, out.Vols)
	assert.Equal(t, in.Excluded, out.Excluded)

	ok, err = c.Get("missing", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := newTestCache(t)
	now := time.Date(2024, 10, 28, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetWithTTL("k", "v", time.Minute))

	var s string
	ok, err := c.Get("k", &s)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = c.Get("k", &s)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := c.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// zero TTL does not store
	require.NoError(t, c.SetWithTTL("z", "v", 0))
	ok, _ = c.Get("z", &s)
	assert.False(t, ok)
}

func TestCache_DeleteByPrefix(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set("risk:p_1:1Y", 1))
	require.NoError(t, c.Set("risk:p_2:1Y", 2))
	require.NoError(t, c.Set("riskx:p_1", 3))
	require.NoError(t, c.Set("hedging:p_1:", 4))

	// underscores are literal, not LIKE wildcards
	n, err := c.DeleteByPrefix("risk:p_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, c.InvalidatePortfolio("p_2"))
	var v int
	ok, _ := c.Get("risk:p_2:1Y", &v)
	assert.False(t, ok)

	require.NoError(t, c.InvalidateAnalytics())
	ok, _ = c.Get("hedging:p_1:", &v)
	assert.False(t, ok)
	ok, _ = c.Get("riskx:p_1", &v)
	assert.True(t, ok)
}

func TestKeys(t *testing.T) {
	asOf := time.Date(2024, 10, 28, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "risk:p1:1Y:2024-10-28:0.95,0.99", RiskKey("p1", domain.Window1Y, asOf, []float64{0.95, 0.99}))
	assert.Equal(t, "diversification:p1:", DiversificationKey("p1"))
	assert.Equal(t, "hedging:p1:2024-10-28:0.95:0.02", HedgingKey("p1", asOf, 0.95, 0.02))
}

func TestCache_InvalidateHedging(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set("hedging:p1:2024-10-28:0.95:0.02", 1))
	require.NoError(t, c.Set("risk:p1:1Y", 2))

	require.NoError(t, c.InvalidateHedging())

	var v int
	ok, _ := c.Get("hedging:p1:2024-10-28:0.95:0.02", &v)
	assert.False(t, ok)
	ok, _ = c.Get("risk:p1:1Y", &v)
	assert.True(t, ok)
}
