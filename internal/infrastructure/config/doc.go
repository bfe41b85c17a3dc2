// Package config provides 12-factor configuration management for metricsvc.
//
// Values are layered: built-in defaults, then an optional YAML or TOML file
// (selected by extension), then environment variables. The result is
// validated before it is returned.
//
// Configuration Sections:
//   - Server: listen address and graceful shutdown bound
//   - Metrics: scrape path, sampling interval, histogram buckets
//   - App: name and version published through app_info
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting
//   - OTel: optional OTLP push export
//
// Example Usage:
//
//	cfg, err := config.Load("metricsvc.yaml")
//	if err != nil {
//		return err
//	}
//	fmt.Printf("Server running on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - HOST, PORT, SHUTDOWN_TIMEOUT
//   - METRICS_PATH, METRICS_COLLECTION_INTERVAL, ENABLE_SYSTEM_METRICS,
//     REQUEST_DURATION_BUCKETS, METRICS_OPENMETRICS
//   - APP_NAME, APP_VERSION
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - OTEL_ENABLED, OTEL_TRANSPORT, OTEL_ENDPOINT, OTEL_INSECURE,
//     OTEL_PUSH_INTERVAL, OTEL_HEADERS (key:value,key:value)
package config
