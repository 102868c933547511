package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCSVURL is the published progress report of the obra.
const DefaultCSVURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vQibGsEG6YpkTPGDi4O5mNYASLsPhMTQ93ZdujIzEQ30CjFRp5T_TIJ6mxoyRKVXfAuz9VCYczsw2-T/pub?gid=2133591064&single=true&output=csv"

// Config holds all dashboard backend configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Source  SourceConfig  `yaml:"source"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            string   `yaml:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

// SourceConfig selects where the report is read from.
type SourceConfig struct {
	Type         string    `yaml:"type"` // csv, sql
	CSVURL       string    `yaml:"csv_url"`
	Timeout      string    `yaml:"timeout"`
	MaxBodyBytes int64     `yaml:"max_body_bytes"`
	SQL          SQLConfig `yaml:"sql"`
}

// SQLConfig configures the database source.
type SQLConfig struct {
	Driver string `yaml:"driver"` // postgres, pgx, sqlite
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
	Limit  int    `yaml:"limit"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8001",
			AllowedOrigins:  []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			ShutdownTimeout: "10s",
		},
		Source: SourceConfig{
			Type:         "csv",
			CSVURL:       DefaultCSVURL,
			Timeout:      "15s",
			MaxBodyBytes: 10 << 20,
			SQL: SQLConfig{
				Driver: "postgres",
				Table:  "acompanhamento",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if url := os.Getenv("OBRA_CSV_URL"); url != "" {
		c.Source.CSVURL = url
	}
	if t := os.Getenv("OBRA_SOURCE"); t != "" {
		c.Source.Type = t
	}
	if t := os.Getenv("OBRA_FETCH_TIMEOUT"); t != "" {
		c.Source.Timeout = t
	}
	if n := os.Getenv("OBRA_MAX_BODY_BYTES"); n != "" {
		if v, err := strconv.ParseInt(n, 10, 64); err == nil {
			c.Source.MaxBodyBytes = v
		}
	}

	// Database source
	if d := os.Getenv("OBRA_SQL_DRIVER"); d != "" {
		c.Source.SQL.Driver = d
	}
	if dsn := os.Getenv("OBRA_SQL_DSN"); dsn != "" {
		c.Source.SQL.DSN = dsn
	}
	if table := os.Getenv("OBRA_SQL_TABLE"); table != "" {
		c.Source.SQL.Table = table
	}

	if level := os.Getenv("OBRA_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case "csv":
		if c.Source.CSVURL == "" {
			return fmt.Errorf("source.csv_url is required for csv source")
		}
	case "sql":
		if c.Source.SQL.DSN == "" {
			return fmt.Errorf("source.sql.dsn is required for sql source")
		}
	default:
		return fmt.Errorf("unknown source type %q", c.Source.Type)
	}
	if _, err := time.ParseDuration(c.Source.Timeout); err != nil {
		return fmt.Errorf("invalid source.timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid server.shutdown_timeout: %w", err)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// GetFetchTimeout returns the source timeout as a duration.
func (c *Config) GetFetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Source.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
