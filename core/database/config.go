package database

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// DriverPostgres selects PostgreSQL through lib/pq.
	DriverPostgres = "postgres"
	// DriverSQLite selects the pure-Go SQLite driver.
	DriverSQLite = "sqlite"
)

// Config holds database connection settings shared across bots.
type Config struct {
	Driver         string `yaml:"driver" envconfig:"DB_DRIVER"`
	Path           string `yaml:"path" envconfig:"DB_PATH"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Normalize fills defaults and validates the settings required by the selected driver.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	switch c.Driver {
	case DriverPostgres:
		if c.Host == "" || c.Name == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
		if c.MaxConnections <= 0 {
			c.MaxConnections = 10
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
		// SQLite allows a single writer.
		c.MaxConnections = 1
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite", c.Driver)
	}
	return nil
}

// DSN returns the driver-specific data source name.
func (c Config) DSN() string {
	if c.Driver == DriverSQLite {
		return "file:" + c.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// URL returns the postgres connection URL used by readiness probes.
func (c Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Target describes the database for log lines without leaking credentials.
func (c Config) Target() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return c.Host + ":" + c.Port + "/" + c.Name
}
