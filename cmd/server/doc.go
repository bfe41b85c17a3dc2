// Package main is the entry point of metricsvc, a small HTTP service
// instrumented for Prometheus scraping.
//
// The service exposes a demo data store, health endpoints, and the metrics
// it records about its own requests and process:
//
//	GET /metrics       Prometheus text exposition (OpenMetrics on request if enabled)
//	GET /metrics/json  the same snapshot as JSON
//
// Configuration:
//   - Defaults for development
//   - Optional config file (--config, .yaml/.yml/.toml)
//   - Environment variables (12-factor), which override the file
//
// Usage:
//
//	# Serve with defaults
//	./metricsvc
//
//	# Serve with a config file and debug logs
//	./metricsvc --config config.yaml --debug
//
//	# Smoke test a running instance
//	./metricsvc check --url http://localhost:8000
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
