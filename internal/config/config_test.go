package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	t.Setenv("VISION_API_KEY", "sk-test")
	path := writeConfig(t, `
server:
  port: 9090
pricing:
  default_base_rate: 70
  complexity_multipliers:
    easy: 1.0
    medium: 1.2
    hard: 1.3
hitl:
  sla_hours: 6
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "sk-test", cfg.Vision.APIKey)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Vision.Model)
	assert.Equal(t, 70.0, cfg.Pricing.DefaultBaseRate)
	assert.Equal(t, 1.2, cfg.Pricing.ComplexityMultipliers["medium"])
	assert.Equal(t, 225.0, cfg.Pricing.WordsPerPage)
	assert.Equal(t, 45*time.Second, cfg.Processing.PollTimeout)
	assert.Equal(t, 3, cfg.Processing.MaxConcurrentFiles)

	cc := cfg.ToContainerConfig()
	assert.Equal(t, 6*time.Hour, cc.HITL.SLA)
	assert.Equal(t, "data/uploads", cc.Storage.LocalDir)
	assert.Equal(t, 10*time.Minute, cc.Worker.ExpiryInterval)
	assert.Equal(t, 3, cc.Resilience.RetryMaxAttempts)
	require.NoError(t, cc.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("VISION_API_KEY", "sk-test")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Backend)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VISION_API_KEY", "sk-test")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("DATABASE_URL", "postgres://quotes@localhost/quotes")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")

	cfg, err := Load(writeConfig(t, "logger:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://quotes@localhost/quotes", cfg.Database.DSN)
	assert.Equal(t, "sk_test_123", cfg.Stripe.SecretKey)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Setenv("VISION_API_KEY", "sk-test")

	_, err := Load(writeConfig(t, "server: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database:   DatabaseConfig{Driver: "sqlite3", Path: "q.db"},
			Vision:     VisionConfig{APIKey: "k"},
			Pricing:    PricingConfig{WordsPerPage: 225, DefaultBaseRate: 65, DefaultTaxRate: 0.05},
			Processing: ProcessingConfig{MaxConcurrentFiles: 3},
			HITL:       HITLConfig{SLAHours: 4},
			Storage:    StorageConfig{Backend: "local", Dir: "uploads"},
		}
	}

	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorContains string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, errorContains: "database.driver"},
		{name: "pgx without dsn", mutate: func(c *Config) { c.Database.Driver = "pgx" }, errorContains: "database.dsn"},
		{name: "missing vision key", mutate: func(c *Config) { c.Vision.APIKey = "" }, errorContains: "vision.api_key"},
		{name: "zero base rate", mutate: func(c *Config) { c.Pricing.DefaultBaseRate = 0 }, errorContains: "default_base_rate"},
		{name: "tax above one", mutate: func(c *Config) { c.Pricing.DefaultTaxRate = 13 }, errorContains: "default_tax_rate"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Storage.Backend = "gcs" }, errorContains: "storage.bucket"},
		{name: "stripe without webhook secret", mutate: func(c *Config) { c.Stripe.SecretKey = "sk" }, errorContains: "webhook_secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorContains == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}
