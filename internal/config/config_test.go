package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "OBRA_CSV_URL", "OBRA_SOURCE", "OBRA_FETCH_TIMEOUT", "OBRA_MAX_BODY_BYTES",
		"OBRA_SQL_DRIVER", "OBRA_SQL_DSN", "OBRA_SQL_TABLE", "OBRA_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 15*time.Second, cfg.GetFetchTimeout())
	assert.Equal(t, 10*time.Second, cfg.GetShutdownTimeout())
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "obra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
source:
  type: sql
  timeout: 3s
  sql:
    driver: pgx
    dsn: postgres://obra@localhost/obra
    table: relatorio
logging:
  level: debug
  format: console
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "sql", cfg.Source.Type)
	assert.Equal(t, "pgx", cfg.Source.SQL.Driver)
	assert.Equal(t, "relatorio", cfg.Source.SQL.Table)
	assert.Equal(t, 3*time.Second, cfg.GetFetchTimeout())
	assert.Equal(t, "console", cfg.Logging.Format)
	// Untouched keys keep their defaults
	assert.Equal(t, DefaultCSVURL, cfg.Source.CSVURL)
	assert.Equal(t, int64(10<<20), cfg.Source.MaxBodyBytes)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "obra.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("OBRA_CSV_URL", "https://example.com/report.csv")
	t.Setenv("OBRA_FETCH_TIMEOUT", "2s")
	t.Setenv("OBRA_MAX_BODY_BYTES", "1024")
	t.Setenv("OBRA_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://example.com/report.csv", cfg.Source.CSVURL)
	assert.Equal(t, 2*time.Second, cfg.GetFetchTimeout())
	assert.Equal(t, int64(1024), cfg.Source.MaxBodyBytes)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEnvOverrides_SQLSource(t *testing.T) {
	clearEnv(t)
	t.Setenv("OBRA_SOURCE", "sql")
	t.Setenv("OBRA_SQL_DRIVER", "sqlite")
	t.Setenv("OBRA_SQL_DSN", "/var/lib/obra/obra.db")
	t.Setenv("OBRA_SQL_TABLE", "relatorio")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, SQLConfig{Driver: "sqlite", DSN: "/var/lib/obra/obra.db", Table: "relatorio"}, cfg.Source.SQL)
}

func TestValidate(t *testing.T) {
	t.Run("sql without dsn", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source.Type = "sql"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown source", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source.Type = "ftp"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source.Timeout = "soon"
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad log format", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Logging.Format = "xml"
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty csv url", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Source.CSVURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("defaults", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})
}
