package bot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/leadbot/core/database"
	"github.com/m3rciful/leadbot/internal/config"
	"github.com/m3rciful/leadbot/internal/flow"
	"github.com/m3rciful/leadbot/migrations"
)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	cfg := database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "leads.db")}
	db, err := database.Connect(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(ctx, db, cfg, migrations.FS))
	return db
}

func TestNewAppMemorySessions(t *testing.T) {
	cfg := &config.Config{Session: config.SessionConfig{Backend: config.SessionMemory}}
	a, err := New(context.Background(), cfg, openDB(t))
	require.NoError(t, err)
	require.NotNil(t, a.memory)
	require.Len(t, a.checks, 1)
	assert.NoError(t, a.checks[0].Ping(context.Background()))
	assert.Equal(t, 6, a.catalog.Len())
	assert.NoError(t, a.Close())
}

func TestNewAppRedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{Session: config.SessionConfig{
		Backend: config.SessionRedis,
		TTL:     time.Hour,
		Redis:   config.RedisConfig{Addr: mr.Addr(), Prefix: "test:session:"},
	}}
	a, err := New(context.Background(), cfg, openDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.Nil(t, a.memory)
	require.Len(t, a.checks, 2)
	assert.Equal(t, "redis", a.checks[1].Name)
	assert.NoError(t, a.checks[1].Ping(context.Background()))

	ctx := context.Background()
	require.NoError(t, a.sessions.Save(ctx, 7, flow.Conversation{State: flow.StateDeadline}))
	assert.True(t, mr.Exists("test:session:7"))
	got, ok, err := a.sessions.Load(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, flow.StateDeadline, got.State)
}

func TestNewAppRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &config.Config{Session: config.SessionConfig{
		Backend: config.SessionRedis,
		Redis:   config.RedisConfig{Addr: addr, Prefix: "x:"},
	}}
	db := openDB(t)
	t.Cleanup(func() { _ = db.Close() })
	_, err := New(context.Background(), cfg, db)
	assert.ErrorContains(t, err, "redis session store")
}

func TestRunBackgroundStopsOnCancel(t *testing.T) {
	cfg := &config.Config{
		Session: config.SessionConfig{Backend: config.SessionMemory, TTL: 10 * time.Millisecond},
		Ops:     config.OpsConfig{Listen: "127.0.0.1:0"},
	}
	a, err := New(context.Background(), cfg, openDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.RunBackground(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("background services did not stop")
	}
}
