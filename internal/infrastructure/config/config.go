package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
	App       AppConfig       `yaml:"app" toml:"app"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	OTel      OTelConfig      `yaml:"otel" toml:"otel"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `envconfig:"HOST" yaml:"host" toml:"host"`
	Port string `envconfig:"PORT" yaml:"port" toml:"port"`
	// ShutdownTimeout is in seconds.
	ShutdownTimeout float64 `envconfig:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// MetricsConfig holds metric collection and exposition configuration.
type MetricsConfig struct {
	Path string `envconfig:"METRICS_PATH" yaml:"path" toml:"path"`
	// CollectionInterval is the process sampling period in seconds.
	CollectionInterval  float64   `envconfig:"METRICS_COLLECTION_INTERVAL" yaml:"collection_interval" toml:"collection_interval"`
	EnableSystemMetrics bool      `envconfig:"ENABLE_SYSTEM_METRICS" yaml:"enable_system_metrics" toml:"enable_system_metrics"`
	DurationBuckets     []float64 `envconfig:"REQUEST_DURATION_BUCKETS" yaml:"duration_buckets" toml:"duration_buckets"`
	OpenMetrics         bool      `envconfig:"METRICS_OPENMETRICS" yaml:"openmetrics" toml:"openmetrics"`
}

// AppConfig holds the values published through the info metric.
type AppConfig struct {
	Name    string `envconfig:"APP_NAME" yaml:"name" toml:"name"`
	Version string `envconfig:"APP_VERSION" yaml:"version" toml:"version"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled" toml:"enabled"`
}

// OTelConfig holds OTLP push export configuration.
type OTelConfig struct {
	Enabled   bool   `envconfig:"OTEL_ENABLED" yaml:"enabled" toml:"enabled"`
	Transport string `envconfig:"OTEL_TRANSPORT" yaml:"transport" toml:"transport"`
	Endpoint  string `envconfig:"OTEL_ENDPOINT" yaml:"endpoint" toml:"endpoint"`
	Insecure  bool   `envconfig:"OTEL_INSECURE" yaml:"insecure" toml:"insecure"`
	// PushInterval is in seconds.
	PushInterval float64           `envconfig:"OTEL_PUSH_INTERVAL" yaml:"push_interval" toml:"push_interval"`
	Headers      map[string]string `envconfig:"OTEL_HEADERS" yaml:"headers" toml:"headers"`
}

// Load builds the configuration from defaults, then the optional file at
// path, then environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load("")
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8000",
			ShutdownTimeout: 5,
		},
		Metrics: MetricsConfig{
			Path:                "/metrics",
			CollectionInterval:  5,
			EnableSystemMetrics: true,
			DurationBuckets: []float64{
				0.001, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
			},
		},
		App: AppConfig{
			Name:    "metricsvc",
			Version: "1.0.0",
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		OTel: OTelConfig{
			Transport:    "grpc",
			Endpoint:     "localhost:4317",
			Insecure:     true,
			PushInterval: 15,
		},
	}
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.UnmarshalWithOptions(data, c, yaml.DisallowUnknownField())
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(c)
	default:
		return fmt.Errorf("%w: unsupported config file type %q", ErrInvalid, ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("%w: port %q out of range", ErrInvalid, c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalid))
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") || c.Metrics.Path == "/" {
		errs = append(errs, fmt.Errorf("%w: metrics path %q must be absolute and not the root", ErrInvalid, c.Metrics.Path))
	}
	if c.Metrics.CollectionInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: metrics collection interval must be positive", ErrInvalid))
	}
	if len(c.Metrics.DurationBuckets) == 0 {
		errs = append(errs, fmt.Errorf("%w: request duration buckets are empty", ErrInvalid))
	}
	for i := 1; i < len(c.Metrics.DurationBuckets); i++ {
		if c.Metrics.DurationBuckets[i] <= c.Metrics.DurationBuckets[i-1] {
			errs = append(errs, fmt.Errorf("%w: request duration buckets must be strictly ascending", ErrInvalid))
			break
		}
	}

	if c.App.Name == "" {
		errs = append(errs, fmt.Errorf("%w: app name is empty", ErrInvalid))
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, fmt.Errorf("%w: rate limit needs positive rps and burst", ErrInvalid))
	}

	if c.OTel.Enabled {
		switch c.OTel.Transport {
		case "grpc", "http":
		default:
			errs = append(errs, fmt.Errorf("%w: unknown OTLP transport %q", ErrInvalid, c.OTel.Transport))
		}
		if c.OTel.Endpoint == "" {
			errs = append(errs, fmt.Errorf("%w: OTLP endpoint is empty", ErrInvalid))
		}
		if c.OTel.PushInterval <= 0 {
			errs = append(errs, fmt.Errorf("%w: OTLP push interval must be positive", ErrInvalid))
		}
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ShutdownTimeoutDuration returns the graceful shutdown bound.
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return seconds(s.ShutdownTimeout)
}

// Interval returns the process sampling period.
func (m MetricsConfig) Interval() time.Duration {
	return seconds(m.CollectionInterval)
}

// JSONPath returns the route of the JSON metrics view.
func (m MetricsConfig) JSONPath() string {
	return strings.TrimSuffix(m.Path, "/") + "/json"
}

// Interval returns the OTLP push period.
func (o OTelConfig) Interval() time.Duration {
	return seconds(o.PushInterval)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
