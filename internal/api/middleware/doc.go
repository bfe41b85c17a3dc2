// Package middleware provides the HTTP middleware shared by all routes.
//
//   - CORS: cross-origin resource sharing via gin-contrib/cors
//   - RateLimit: per-IP token buckets (golang.org/x/time/rate); idle clients
//     are forgotten after ten minutes
//   - GlobalRateLimit: one token bucket for every caller
//
// Rejected requests get 429 with a Retry-After header. Paths listed in
// RateLimitConfig.SkipPaths, such as the scrape endpoint, are never limited.
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.RateLimitConfig{
//		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
//		Burst:             cfg.RateLimit.Burst,
//		SkipPaths:         []string{cfg.Metrics.Path},
//	}))
package middleware
