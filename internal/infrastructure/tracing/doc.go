/*
Package tracing provides lightweight request tracing for the HTTP server.

# Overview

Each request gets a span carrying a trace id (taken from the X-Trace-ID
request header when a caller sends one) and a fresh span id. Both are echoed
in the response headers so a client can quote them in a bug report. Finished
spans are logged by a background goroutine; errors at error level, the rest
at debug.

# Usage

	tracer := tracing.New("metricsvc", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer, "/metrics"))

	span, ctx := tracer.StartSpan(ctx, "rebuild-index")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

# Headers

	X-Trace-ID  identifier for the whole request flow
	X-Span-ID   identifier for the current operation
*/
package tracing
