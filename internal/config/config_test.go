package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	coredatabase "github.com/m3rciful/leadbot/core/database"
	"github.com/m3rciful/leadbot/internal/catalog"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeYAML(t, `
telegram:
  token: file-token
  admin_id: 100
database:
  driver: sqlite
  path: leads.db
session:
  backend: redis
  ttl: 30m
  redis:
    addr: localhost:6379
leads:
  phone_region: de
  services:
    - id: neuro
      title: "🧠 Neuro"
    - id: other
      title: "Something else"
content:
  contacts: "Write to @owner"
  portfolio:
    neuro: [a, b]
notify:
  smtp:
    host: smtp.example.com
    from: bot@example.com
    to: [owner@example.com]
ops:
  listen: ":9090"
`)
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("OPS_LISTEN", ":9191")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.CoreConfig().Telegram.Token)
	assert.Equal(t, int64(100), cfg.Telegram.AdminID)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, coredatabase.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, SessionRedis, cfg.Session.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "leadbot:session:", cfg.Session.Redis.Prefix)
	assert.Equal(t, "DE", cfg.Leads.PhoneRegion)
	assert.Equal(t, "2500 ₽", cfg.Leads.NeuroBudget)
	assert.Equal(t, ":9191", cfg.Ops.Listen)
	assert.Equal(t, []string{"a", "b"}, cfg.Content.Portfolio["neuro"])
	assert.Equal(t, 587, cfg.Notify.SMTP.Port)

	cat, err := cfg.Catalog()
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())
	e, ok := cat.Entry("other")
	require.True(t, ok)
	assert.Equal(t, catalog.BranchDefault, e.Branch)
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := Config{
		Config:   coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t"}},
		Database: coredatabase.Config{Driver: "sqlite", Path: "x.db"},
	}
	require.NoError(t, Normalize(&cfg))
	assert.Equal(t, SessionMemory, cfg.Session.Backend)
	assert.Equal(t, "RU", cfg.Leads.PhoneRegion)

	cat, err := cfg.Catalog()
	require.NoError(t, err)
	assert.Equal(t, 6, cat.Len())
}

func TestNormalizeRejects(t *testing.T) {
	base := func() Config {
		return Config{
			Config:   coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t"}},
			Database: coredatabase.Config{Driver: "sqlite", Path: "x.db"},
		}
	}
	cases := map[string]func(*Config){
		"no token":        func(c *Config) { c.Telegram.Token = "" },
		"no db path":      func(c *Config) { c.Database.Path = "" },
		"unknown backend": func(c *Config) { c.Session.Backend = "etcd" },
		"redis no addr":   func(c *Config) { c.Session.Backend = "redis" },
		"negative ttl":    func(c *Config) { c.Session.TTL = -time.Second },
		"duplicate services": func(c *Config) {
			c.Leads.Services = []catalog.Entry{{ID: "a", Title: "A"}, {ID: "a", Title: "B"}}
		},
		"smtp without from": func(c *Config) {
			c.Notify.SMTP.Host = "smtp.example.com"
			c.Notify.SMTP.To = []string{"a@b.c"}
		},
		"negative workers": func(c *Config) { c.Sender.Workers = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(&cfg)
			assert.Error(t, Normalize(&cfg))
		})
	}
}
