package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	coredatabase "github.com/m3rciful/leadbot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	require.Error(t, err)
}

func TestRunSQLiteWithMigrations(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(t.TempDir(), "boot.db")},
		Migrations: fstest.MapFS{"sqlite/000001_t.up.sql": {Data: []byte("CREATE TABLE t (id INTEGER);")}},
		LoggerInit: noLogger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.DB.Close() })

	var n int
	require.NoError(t, res.DB.Get(&n, "SELECT COUNT(*) FROM t"))
	assert.Zero(t, n)
}

func TestRunClosesDBWhenMigrationsFail(t *testing.T) {
	var opened *sqlx.DB
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(t.TempDir(), "boot.db")},
		Migrations: fstest.MapFS{},
		LoggerInit: noLogger,
		Connect: func(ctx context.Context, cfg coredatabase.Config) (*sqlx.DB, error) {
			db, err := coredatabase.Connect(ctx, cfg)
			opened = db
			return db, err
		},
		Migrate: func(context.Context, *sqlx.DB, coredatabase.Config, fs.FS) error {
			return errors.New("broken")
		},
	})
	require.ErrorContains(t, err, "migrations failed")
	require.NotNil(t, opened)
	assert.Error(t, opened.Ping())
}
