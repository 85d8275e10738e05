package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string) *DB {
	t.Helper()
	db, err := New(Config{
		Path: filepath.Join(t.TempDir(), name+".db"),
		Name: name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_Defaults(t *testing.T) {
	db := newTestDB(t, "analytics")

	assert.Equal(t, DriverModernc, db.Driver())
	assert.Equal(t, "analytics", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres"})
	assert.Error(t, err)
}

func TestBuildConnectionString(t *testing.T) {
	modern := buildConnectionString(DriverModernc, "/data/a.db", ProfileStandard)
	assert.Contains(t, modern, "_pragma=journal_mode(WAL)")
	assert.Contains(t, modern, "_pragma=synchronous(NORMAL)")

	cache := buildConnectionString(DriverModernc, "/data/c.db", ProfileCache)
	assert.Contains(t, cache, "_pragma=synchronous(OFF)")

	cgo := buildConnectionString(DriverCGO, "/data/a.db", ProfileStandard)
	assert.Contains(t, cgo, "_journal_mode=WAL")
	assert.Contains(t, cgo, "_foreign_keys=1")
	assert.NotContains(t, cgo, "_pragma")
}

func TestMigrate(t *testing.T) {
	tests := []struct {
		name   string
		tables []string
	}{
		{"analytics", []string{"portfolios", "holdings", "daily_prices", "option_quotes", "ticker_metadata"}},
		{"cache", []string{"cache_data"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t, tt.name)
			require.NoError(t, db.Migrate())
			// idempotent
			require.NoError(t, db.Migrate())

			for _, table := range tt.tables {
				var name string
				err := db.Conn().QueryRow(
					"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
				).Scan(&name)
				require.NoError(t, err, "table %s", table)
			}
		})
	}

	t.Run("unknown name is a no-op", func(t *testing.T) {
		db := newTestDB(t, "scratch")
		assert.NoError(t, db.Migrate())
	})
}

func TestWithTransaction(t *testing.T) {
	db := newTestDB(t, "cache")
	require.NoError(t, db.Migrate())

	insert := func(tx *sql.Tx, key string) error {
		_, err := tx.Exec("INSERT INTO cache_data (key, value, expires_at) VALUES (?, ?, 0)", key, []byte("v"))
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM cache_data").Scan(&n))
		return n
	}

	require.NoError(t, WithTransaction(db.Conn(), func(tx *sql.Tx) error { return insert(tx, "a") }))
	assert.Equal(t, 1, count())

	boom := errors.New("boom")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		require.NoError(t, insert(tx, "b"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, count())

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		require.NoError(t, insert(tx, "c"))
		panic("unexpected")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, count())

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}
