package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeoutDuration())

	// Metrics config
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "/metrics/json", cfg.Metrics.JSONPath())
	assert.Equal(t, 5*time.Second, cfg.Metrics.Interval())
	assert.True(t, cfg.Metrics.EnableSystemMetrics)
	assert.Len(t, cfg.Metrics.DurationBuckets, 15)
	assert.False(t, cfg.Metrics.OpenMetrics)

	// App config
	assert.Equal(t, "metricsvc", cfg.App.Name)
	assert.Equal(t, "1.0.0", cfg.App.Version)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// OTel config
	assert.False(t, cfg.OTel.Enabled)
	assert.Equal(t, "grpc", cfg.OTel.Transport)
	assert.Equal(t, 15*time.Second, cfg.OTel.Interval())

	assert.NoError(t, cfg.Validate())
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadOrDefaultFallsBackOnInvalid(t *testing.T) {
	t.Setenv("METRICS_COLLECTION_INTERVAL", "0")

	cfg := LoadOrDefault()
	assert.Equal(t, 5.0, cfg.Metrics.CollectionInterval)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                        "9000",
		"HOST":                        "127.0.0.1",
		"SHUTDOWN_TIMEOUT":            "2.5",
		"METRICS_PATH":                "/prom",
		"METRICS_COLLECTION_INTERVAL": "0.5",
		"ENABLE_SYSTEM_METRICS":       "false",
		"REQUEST_DURATION_BUCKETS":    "0.1,0.5,1",
		"METRICS_OPENMETRICS":         "true",
		"APP_NAME":                    "svc",
		"APP_VERSION":                 "2.0.0",
		"LOG_LEVEL":                   "debug",
		"LOG_DEV":                     "true",
		"RATE_LIMIT_RPS":              "500",
		"RATE_LIMIT_BURST":            "1000",
		"RATE_LIMIT_ENABLED":          "false",
		"OTEL_ENABLED":                "true",
		"OTEL_TRANSPORT":              "http",
		"OTEL_ENDPOINT":               "collector:4318",
		"OTEL_HEADERS":                "authorization:Bearer x,tenant:a",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, 2500*time.Millisecond, cfg.Server.ShutdownTimeoutDuration())
	assert.Equal(t, "/prom", cfg.Metrics.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.Metrics.Interval())
	assert.False(t, cfg.Metrics.EnableSystemMetrics)
	assert.Equal(t, []float64{0.1, 0.5, 1}, cfg.Metrics.DurationBuckets)
	assert.True(t, cfg.Metrics.OpenMetrics)
	assert.Equal(t, "svc", cfg.App.Name)
	assert.Equal(t, "2.0.0", cfg.App.Version)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.True(t, cfg.OTel.Enabled)
	assert.Equal(t, "http", cfg.OTel.Transport)
	assert.Equal(t, "collector:4318", cfg.OTel.Endpoint)
	assert.Equal(t, map[string]string{"authorization": "Bearer x", "tenant": "a"}, cfg.OTel.Headers)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Defaults still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.True(t, cfg.Metrics.EnableSystemMetrics)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeFile(t, "metricsvc.yaml", `
server:
  port: "9100"
metrics:
  path: /internal/metrics
  collection_interval: 10
  duration_buckets: [0.01, 0.1, 1]
app:
  name: from-yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "/internal/metrics", cfg.Metrics.Path)
	assert.Equal(t, 10*time.Second, cfg.Metrics.Interval())
	assert.Equal(t, []float64{0.01, 0.1, 1}, cfg.Metrics.DurationBuckets)
	assert.Equal(t, "from-yaml", cfg.App.Name)
	assert.Equal(t, "1.0.0", cfg.App.Version)
}

func TestLoadTOMLFile(t *testing.T) {
	path := writeFile(t, "metricsvc.toml", `
[server]
host = "127.0.0.1"

[logging]
level = "debug"

[rate_limit]
enabled = false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "metricsvc.yml", "app:\n  name: from-file\n  version: 3.0.0\n")
	t.Setenv("APP_NAME", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.App.Name)
	assert.Equal(t, "3.0.0", cfg.App.Version)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"unknown extension", "cfg.json", "{}"},
		{"unknown yaml field", "cfg.yaml", "server:\n  bogus: 1\n"},
		{"unknown toml field", "cfg.toml", "[server]\nbogus = 1\n"},
		{"malformed yaml", "cfg.yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"port not numeric", func(c *Config) { c.Server.Port = "http" }},
		{"port out of range", func(c *Config) { c.Server.Port = "70000" }},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }},
		{"root metrics path", func(c *Config) { c.Metrics.Path = "/" }},
		{"zero interval", func(c *Config) { c.Metrics.CollectionInterval = 0 }},
		{"negative interval", func(c *Config) { c.Metrics.CollectionInterval = -1 }},
		{"empty buckets", func(c *Config) { c.Metrics.DurationBuckets = nil }},
		{"unsorted buckets", func(c *Config) { c.Metrics.DurationBuckets = []float64{1, 0.5} }},
		{"empty app name", func(c *Config) { c.App.Name = "" }},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }},
		{"bad otel transport", func(c *Config) {
			c.OTel.Enabled = true
			c.OTel.Transport = "udp"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestValidateIgnoresDisabledSections(t *testing.T) {
	cfg := Default()
	cfg.RateLimit.Enabled = false
	cfg.RateLimit.Burst = 0
	cfg.OTel.Transport = "udp"
	assert.NoError(t, cfg.Validate())
}
