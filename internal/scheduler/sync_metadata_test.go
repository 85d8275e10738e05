package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/marketdata"
	testhelpers "github.com/aristath/portfolio-analytics/internal/testing"
)

type fakeMetadataFetcher struct {
	calls []string
	errs  map[string]error
}

func (f *fakeMetadataFetcher) TickerMetadata(_ context.Context, ticker string) (domain.TickerMetadata, error) {
	f.calls = append(f.calls, ticker)
	if err := f.errs[ticker]; err != nil {
		return domain.TickerMetadata{}, err
	}
	return domain.TickerMetadata{Ticker: ticker, Sector: "Technology", Industry: "Software", AssetClass: "stock"}, nil
}

func TestSyncMetadataJob_Sync(t *testing.T) {
	db := testhelpers.NewTestDB(t, "analytics")
	store := marketdata.NewMetadataRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, domain.TickerMetadata{Ticker: "XOM", Sector: "Energy"}))

	fetcher := &fakeMetadataFetcher{errs: map[string]error{"BAD": errors.New("boom")}}
	cache := &fakeInvalidator{}
	job := NewSyncMetadataJob(fakeTickers{tickers: []string{"AAPL", "BAD", "XOM"}}, store, fetcher, cache, zerolog.Nop())

	n, err := job.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"AAPL", "BAD"}, fetcher.calls)
	assert.Equal(t, 1, cache.calls)

	m, err := store.TickerMetadata(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Technology", m.Sector)

	// second pass only retries the failure
	fetcher.calls = nil
	n, err = job.Sync(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"BAD"}, fetcher.calls)
}

func TestSyncMetadataJob_StopsOnRateLimit(t *testing.T) {
	db := testhelpers.NewTestDB(t, "analytics")
	store := marketdata.NewMetadataRepository(db.Conn(), zerolog.Nop())

	fetcher := &fakeMetadataFetcher{errs: map[string]error{"A": limitErr{}}}
	job := NewSyncMetadataJob(fakeTickers{tickers: []string{"A", "B"}}, store, fetcher, nil, zerolog.Nop())

	n, err := job.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"A"}, fetcher.calls)
	assert.Equal(t, "sync_metadata", job.Name())
}
