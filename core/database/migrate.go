package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
)

// RunMigrations applies every up migration found under the driver-named
// directory of fsys (postgres/ or sqlite/) to db.
func RunMigrations(ctx context.Context, db *sqlx.DB, cfg Config, fsys fs.FS) error {
	if err := cfg.Normalize(); err != nil {
		return fmt.Errorf("db config: %w", err)
	}
	if cfg.Driver == DriverPostgres {
		if err := WaitForPostgres(ctx, cfg.URL(), 30*time.Second); err != nil {
			logger.Error(ctx, "db.migrate", "db.migrate",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	dir := cfg.Driver
	files := listMigrationFiles(fsys, dir)
	preview, truncated := logger.SummarizeStrings(files, 6)
	resolved := []slog.Attr{
		slog.String("path", dir),
		slog.Int("files_total", len(files)),
	}
	if preview != "" {
		resolved = append(resolved, slog.String("files_preview", preview))
	}
	if truncated {
		resolved = append(resolved, slog.Bool("files_truncated", true))
	}
	logger.Debug(ctx, "db.migrate", "resolve", resolved...)

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return fmt.Errorf("open migrations source: %w", err)
	}
	defer src.Close()

	drv, err := databaseDriver(db, cfg.Driver)
	if err != nil {
		logger.Error(ctx, "db.migrate", "db.migrate",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	// m.Close would also close db, which the caller still owns.
	m, err := migrate.NewWithInstance("iofs", src, cfg.Driver, drv)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}

	fromVer, _, _ := m.Version()

	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)

	switch {
	case upErr == nil:
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.Info(ctx, "db.migrate", "summary",
			slog.String("status", "skip"),
			slog.Uint64("from_ver", uint64(fromVer)),
			slog.Uint64("to_ver", uint64(fromVer)),
			slog.Int("files", 0),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return nil
	default:
		logger.Error(ctx, "db.migrate", "apply",
			slog.String("status", "fail"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	applied := selectApplied(files, uint64(fromVer), uint64(toVer))
	if len(applied) > 0 {
		previewApplied, truncatedApplied := logger.SummarizeStrings(applied, 6)
		attrs := []slog.Attr{
			slog.Int("files_total", len(applied)),
			slog.String("files_preview", previewApplied),
		}
		if truncatedApplied {
			attrs = append(attrs, slog.Bool("files_truncated", true))
		}
		logger.Debug(ctx, "db.migrate", "apply", attrs...)
	}

	logger.Info(ctx, "db.migrate", "summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return nil
}

func databaseDriver(db *sqlx.DB, driver string) (database.Driver, error) {
	switch driver {
	case DriverSQLite:
		return sqlite.WithInstance(db.DB, &sqlite.Config{})
	default:
		return postgres.WithInstance(db.DB, &postgres.Config{})
	}
}

func listMigrationFiles(fsys fs.FS, dir string) []string {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := path.Base(e.Name()); strings.HasSuffix(name, ".up.sql") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
