package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"testing/fstest"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/tailrisk/pkg/config"
)

func TestNew_RequiresDatabaseURL(t *testing.T) {
	cfg := &config.Config{}
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestNew_Integration(t *testing.T) {
	// Skip if DATABASE_URL is not set
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	status, err := db.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}

func TestMigrate_AppliesInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	fsys := fstest.MapFS{
		"002_index.sql": {Data: []byte("CREATE INDEX IF NOT EXISTS idx ON t (a)")},
		"001_table.sql": {Data: []byte("CREATE TABLE IF NOT EXISTS t (a int)")},
		"README.md":     {Data: []byte("not a migration")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS t").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	applied, err := Migrate(context.Background(), mock, fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_table.sql", "002_index.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	fsys := fstest.MapFS{
		"001_table.sql": {Data: []byte("CREATE TABLE broken")},
		"002_index.sql": {Data: []byte("CREATE INDEX idx ON broken (a)")},
	}

	mock.ExpectExec("CREATE TABLE broken").WillReturnError(errors.New("syntax error"))

	applied, err := Migrate(context.Background(), mock, fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_table.sql")
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
