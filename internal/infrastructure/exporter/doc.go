// Package exporter pushes the metric registry to an OpenTelemetry collector
// over OTLP (gRPC or HTTP).
//
// Each registered family becomes an observable instrument read from a
// registry snapshot at every push: counters as monotonic counters, gauges
// and info metrics as gauges, histograms as a _count and _sum counter pair.
// The pull endpoint is unaffected; both views read the same series.
//
// Example Usage:
//
//	exp, err := exporter.New(ctx, cfg.OTel, registry, info, logger)
//	if err != nil {
//		return err
//	}
//	go exp.Run(ctx)
package exporter
