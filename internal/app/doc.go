// Package app assembles the service from its configuration.
//
// New builds the metric registry, the HTTP and process collectors, the
// background sampler, the HTTP server and, when enabled, the OTLP exporter.
// Serve runs them under one errgroup: the first failure or a cancelled
// context stops everything, and the sampler is stopped before Serve returns.
//
// Example Usage:
//
//	application, err := app.New(ctx, cfg, logger)
//	if err != nil {
//		return err
//	}
//	return application.Run(ctx)
package app
