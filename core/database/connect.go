package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Connect opens the database connection, configures the pool, and verifies connectivity.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("db config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	target := []slog.Attr{
		slog.String("driver", cfg.Driver),
		slog.String("db", cfg.Target()),
	}

	start := time.Now()
	sqlxDB, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN())
	took := time.Since(start)
	if err != nil {
		logger.Error(ctx, "db", "db.connect", append(target,
			slog.String("status", "fail"),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if pingErr := sqlxDB.PingContext(ctx); pingErr != nil {
		_ = sqlxDB.Close()
		logger.Error(ctx, "db", "db.ping", append(target,
			slog.String("status", "fail"),
			slog.String("err", pingErr.Error()),
		)...)
		return nil, fmt.Errorf("db ping: %w", pingErr)
	}

	sqlxDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlxDB.SetMaxIdleConns(cfg.MaxConnections)

	logger.Info(ctx, "db", "db.connect", append(target,
		slog.String("status", "ok"),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.RoundMS(took)),
	)...)

	return sqlxDB, nil
}

// WaitForPostgres tries to connect to the DB until it is ready or timeout is reached.
func WaitForPostgres(ctx context.Context, dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for attempt := 1; ; attempt++ {
		db, err := sql.Open(DriverPostgres, dsn)
		if err == nil {
			err = db.PingContext(ctx)
			_ = db.Close()
			if err == nil {
				return nil
			}
		}
		lastErr = err
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout reached waiting for database: %w", lastErr)
		}
		logger.Debug(ctx, "db", "db.wait",
			slog.String("status", "retry"),
			slog.Int("attempt", attempt),
			slog.String("err", err.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for database: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
}
