package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/portfolio-analytics/internal/domain"
	"github.com/aristath/portfolio-analytics/internal/modules/diversification"
	"github.com/aristath/portfolio-analytics/internal/modules/hedging"
	"github.com/aristath/portfolio-analytics/internal/modules/risk"
	testingpkg "github.com/aristath/portfolio-analytics/internal/testing"
)

var snapshotDate = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func closePoints(series domain.PriceSeries) []closePoint {
	out := make([]closePoint, len(series.Points))
	for i, p := range series.Points {
		out[i] = closePoint{Date: p.Date.Format(domain.DateLayout), Close: p.Close}
	}
	return out
}

func writeSnapshot(t *testing.T, snap snapshotFile) string {
	t.Helper()
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func fullSnapshot() snapshotFile {
	holdings := testingpkg.NewHoldingFixtures()
	prices := map[string][]closePoint{}
	for i, h := range holdings {
		prices[h.Ticker] = closePoints(testingpkg.OscillatingSeries(h.Ticker, 60, h.CurrentPrice, 0.02+0.01*float64(i), 7+i))
	}
	return snapshotFile{
		AsOf:      snapshotDate.Format(domain.DateLayout),
		Holdings:  holdings,
		Prices:    prices,
		Benchmark: closePoints(testingpkg.OscillatingSeries("SPY", 60, 450, 0.015, 9)),
		Chains: map[string][]domain.OptionQuote{
			"AAPL": testingpkg.NewOptionChainFixture("AAPL", snapshotDate),
		},
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDiversifyCommand(t *testing.T) {
	path := writeSnapshot(t, fullSnapshot())

	out, err := execute(t, "diversify", "-f", path)
	require.NoError(t, err)

	var result diversification.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 4, result.Holdings)
	assert.Equal(t, 4, result.Sector.Count)
	assert.True(t, result.AsOf.Equal(snapshotDate))
	assert.Greater(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 100.0)
}

func TestRiskCommand(t *testing.T) {
	path := writeSnapshot(t, fullSnapshot())

	out, err := execute(t, "risk", "-f", path, "--window", "30D", "--confidence", "0.95,0.99", "--correlated")
	require.NoError(t, err)

	var result risk.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, domain.Window30D, result.Window)
	assert.Empty(t, result.Excluded)
	assert.Len(t, result.VaR, 2)
	assert.Greater(t, result.Volatility.Portfolio, 0.0)
	assert.NotNil(t, result.Beta)
}

func TestRiskCommand_ExcludesShortHistories(t *testing.T) {
	snap := fullSnapshot()
	snap.Prices["BND"] = snap.Prices["BND"][:5]
	path := writeSnapshot(t, snap)

	out, err := execute(t, "risk", "-f", path, "--window", "30D")
	require.NoError(t, err)

	var result risk.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "BND", result.Excluded[0].Ticker)
}

func TestRiskCommand_InvalidWindow(t *testing.T) {
	path := writeSnapshot(t, fullSnapshot())

	_, err := execute(t, "risk", "-f", path, "--window", "2W")
	assert.Error(t, err)
}

func TestHedgeCommand(t *testing.T) {
	path := writeSnapshot(t, fullSnapshot())

	out, err := execute(t, "hedge", "-f", path, "--target-protection", "0.9")
	require.NoError(t, err)

	var result hedging.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Suggestions, 4)

	aapl := result.Suggestions[0]
	assert.Equal(t, "AAPL", aapl.Ticker)
	require.NotNil(t, aapl.ProtectivePut)
	assert.Equal(t, 160.0, aapl.ProtectivePut.Quote.StrikePrice)
	assert.Equal(t, 30, aapl.ProtectivePut.DaysToExpiration)

	for _, s := range result.Suggestions[1:] {
		assert.Nil(t, s.ProtectivePut, s.Ticker)
		assert.Nil(t, s.CoveredCall, s.Ticker)
	}
}

func TestHedgeCommand_InvalidTarget(t *testing.T) {
	path := writeSnapshot(t, fullSnapshot())

	_, err := execute(t, "hedge", "-f", path, "--target-protection", "1.5")
	assert.ErrorIs(t, err, domain.ErrInvalidTargetProtection)
}

func TestSnapshotErrors(t *testing.T) {
	_, err := execute(t, "diversify")
	assert.ErrorContains(t, err, "--snapshot is required")

	_, err = execute(t, "diversify", "-f", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to open snapshot")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"holdings":[],"extra":1}`), 0o600))
	_, err = execute(t, "diversify", "-f", bad)
	assert.ErrorContains(t, err, "failed to decode snapshot")
}

func TestDecodeSnapshot_NormalizesTickers(t *testing.T) {
	snap, err := decodeSnapshot(bytes.NewBufferString(`{"holdings":[{"ticker":" aapl ","shares":10,"purchase_price":100,"current_price":120,"purchase_date":"2024-01-02T00:00:00Z"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", snap.Holdings[0].Ticker)

	_, err = decodeSnapshot(bytes.NewBufferString(`{"holdings":[{"ticker":"AAPL","shares":-1,"purchase_price":100,"purchase_date":"2024-01-02T00:00:00Z"}]}`))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "analytics dev")
}
