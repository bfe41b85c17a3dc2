// Package http provides the HTTP handlers of the service.
//
// Endpoints:
//   - Root: /
//   - Data store: POST /data, GET /data, GET /data/:key, DELETE /data/:key
//   - Health: /health, /health/ready, /health/live
//   - Metrics: <metrics path>/json, a JSON view of the registry snapshot
//
// Responses follow a {success, message, data} envelope except for the root,
// health and metrics endpoints. The scrape endpoint itself is mounted by the
// server from the monitoring package.
//
// Example Usage:
//
//	handlers := http.NewHandlers(store, registry, info, logger)
//	handlers.Register(router, "/metrics/json")
package http
