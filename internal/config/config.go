// Package config loads the lead bot configuration: the shared core settings
// plus storage, session, lead, content, notification and ops sections.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	coredatabase "github.com/m3rciful/leadbot/core/database"
	"github.com/m3rciful/leadbot/internal/catalog"
	"github.com/m3rciful/leadbot/internal/flow"
	"github.com/m3rciful/leadbot/internal/lead"
	"github.com/m3rciful/leadbot/internal/notify"
)

const (
	// SessionMemory keeps conversations in process memory.
	SessionMemory = "memory"
	// SessionRedis keeps conversations in Redis.
	SessionRedis = "redis"
)

// RedisConfig addresses the Redis session store.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

// SessionConfig selects where conversations are kept. TTL 0 never expires.
type SessionConfig struct {
	Backend string        `yaml:"backend" envconfig:"SESSION_BACKEND"`
	TTL     time.Duration `yaml:"ttl" envconfig:"SESSION_TTL"`
	Redis   RedisConfig   `yaml:"redis"`
}

// LeadsConfig tunes lead collection.
type LeadsConfig struct {
	NeuroBudget string `yaml:"neuro_budget" envconfig:"LEADS_NEURO_BUDGET"`
	// PhoneRegion is the ISO 3166 region for numbers typed without a
	// country code.
	PhoneRegion string `yaml:"phone_region" envconfig:"LEADS_PHONE_REGION"`
	// Services replaces the built-in catalog when non-empty.
	Services []catalog.Entry `yaml:"services" ignored:"true"`
}

// ContentConfig holds the user-facing copy and media ids.
type ContentConfig struct {
	Flow      flow.Texts `yaml:"flow"`
	Welcome   string     `yaml:"welcome"`
	Help      string     `yaml:"help"`
	HowWeWork string     `yaml:"how_we_work"`
	Contacts  string     `yaml:"contacts"`
	// ServiceCards maps a service id to its description card.
	ServiceCards map[string]string `yaml:"service_cards"`
	// Portfolio maps a service id to Telegram photo file ids.
	Portfolio map[string][]string `yaml:"portfolio"`
}

// NotifyConfig configures extra notification channels. The Telegram admin
// (telegram.admin_id) is always notified when set.
type NotifyConfig struct {
	SMTP notify.SMTPConfig `yaml:"smtp"`
}

// OpsConfig configures the ops HTTP endpoint. An empty Listen disables it.
type OpsConfig struct {
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN"`
}

// SenderConfig tunes the outbound Telegram dispatcher.
type SenderConfig struct {
	QueueSize      int `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	Workers        int `yaml:"workers" envconfig:"SENDER_WORKERS"`
	MaxRetries     int `yaml:"max_retries" envconfig:"SENDER_MAX_RETRIES"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" envconfig:"SENDER_RETRY_BACKOFF_MS"`
}

// Config is the full lead bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Session  SessionConfig       `yaml:"session"`
	Leads    LeadsConfig         `yaml:"leads"`
	Content  ContentConfig       `yaml:"content" ignored:"true"`
	Notify   NotifyConfig        `yaml:"notify"`
	Ops      OpsConfig           `yaml:"ops"`
	Sender   SenderConfig        `yaml:"sender"`
}

// CoreConfig exposes the embedded core settings to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// Load reads path, applies .env and environment overrides and normalizes
// the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return err
	}
	if err := normalizeSession(&cfg.Session); err != nil {
		return err
	}
	if err := normalizeLeads(&cfg.Leads); err != nil {
		return err
	}
	if err := cfg.Notify.SMTP.Normalize(); err != nil {
		return err
	}
	if cfg.Sender.QueueSize < 0 || cfg.Sender.Workers < 0 || cfg.Sender.MaxRetries < 0 || cfg.Sender.RetryBackoffMS < 0 {
		return fmt.Errorf("sender settings must be >= 0")
	}
	return nil
}

func normalizeSession(s *SessionConfig) error {
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = SessionMemory
	}
	if s.TTL < 0 {
		return fmt.Errorf("session.ttl must be >= 0")
	}
	switch s.Backend {
	case SessionMemory:
	case SessionRedis:
		if strings.TrimSpace(s.Redis.Addr) == "" {
			return fmt.Errorf("session.redis.addr is required when session.backend is 'redis'")
		}
		if s.Redis.Prefix == "" {
			s.Redis.Prefix = "leadbot:session:"
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", s.Backend)
	}
	return nil
}

func normalizeLeads(l *LeadsConfig) error {
	if strings.TrimSpace(l.NeuroBudget) == "" {
		l.NeuroBudget = lead.DefaultNeuroBudget
	}
	l.PhoneRegion = strings.ToUpper(strings.TrimSpace(l.PhoneRegion))
	if l.PhoneRegion == "" {
		l.PhoneRegion = "RU"
	}
	if len(l.Services) > 0 {
		if _, err := catalog.New(l.Services); err != nil {
			return fmt.Errorf("leads.services: %w", err)
		}
	}
	return nil
}

// Catalog builds the service catalog from leads.services, or the built-in
// one when none is configured.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	if len(c.Leads.Services) == 0 {
		return catalog.MustDefault(), nil
	}
	return catalog.New(c.Leads.Services)
}

// SenderBackoff returns the retry backoff as a duration.
func (c *Config) SenderBackoff() time.Duration {
	return time.Duration(c.Sender.RetryBackoffMS) * time.Millisecond
}
