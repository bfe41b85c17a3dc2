/*
Package monitoring provides pull-based metrics for the service.

# Overview

A Registry holds every metric family of the process in a private Prometheus
registry. Two collectors write into it: HTTPCollector, fed by the Gin
Middleware for every request, and SystemCollector, driven by a Sampler that
reads process statistics through a ProcessProvider on a fixed period.
Handler exposes the registry in the Prometheus text format.

# Metrics

HTTP (endpoint is the normalized path, see NormalizePath):

	http_requests_total{method,endpoint,status_code}           counter
	http_request_duration_seconds{method,endpoint}             histogram
	http_request_size_bytes{method,endpoint}                   histogram
	http_response_size_bytes{method,endpoint,status_code}      histogram
	http_requests_active{method,endpoint}                      gauge

Process:

	process_cpu_seconds_total                                  counter
	process_resident_memory_bytes, process_virtual_memory_bytes gauge
	process_start_time_seconds, process_uptime_seconds         gauge
	process_open_fds, process_threads                          gauge
	process_gc_collections_total{generation}                   counter
	app_info{name,version,go_version}                          gauge, always 1

# Usage

	reg := monitoring.NewRegistry()
	httpMetrics, err := monitoring.NewHTTPCollector(reg, monitoring.DefaultDurationBuckets, logger)
	if err != nil {
		return err
	}
	router.Use(monitoring.Middleware(httpMetrics, "/metrics"))
	router.GET("/metrics", gin.WrapH(monitoring.Handler(reg, monitoring.ExpositionOptions{})))

	provider, err := monitoring.NewSelfProvider(ctx)
	if err != nil {
		return err
	}
	system, err := monitoring.NewSystemCollector(ctx, reg, provider, info, logger)
	if err != nil {
		return err
	}
	sampler := monitoring.NewSampler(5*time.Second, system, logger)
	sampler.Start(ctx)
	defer sampler.Stop()
*/
package monitoring
