package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// idleClientTTL is how long a client's limiter is kept without traffic.
const idleClientTTL = 10 * time.Minute

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
	// SkipPaths are never limited, e.g. the scrape endpoint.
	SkipPaths []string
}

// DefaultRateLimitConfig returns production-ready rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per client IP and forgets idle clients.
type limiterSet struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterSet(cfg RateLimitConfig, now func() time.Time) *limiterSet {
	return &limiterSet{
		clients:   make(map[string]*client),
		limit:     rate.Limit(cfg.RequestsPerSecond),
		burst:     cfg.Burst,
		lastSweep: now(),
		now:       now,
	}
}

func (s *limiterSet) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > idleClientTTL {
		for k, c := range s.clients {
			if now.Sub(c.lastSeen) > idleClientTTL {
				delete(s.clients, k)
			}
		}
		s.lastSweep = now
	}

	c, ok := s.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// RateLimit creates a per-IP rate limiting middleware.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	return rateLimit(cfg, newLimiterSet(cfg, time.Now))
}

func rateLimit(cfg RateLimitConfig, set *limiterSet) gin.HandlerFunc {
	skip := skipSet(cfg.SkipPaths)

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		if !set.get(c.ClientIP()).Allow() {
			reject(c, cfg)
			return
		}
		c.Next()
	}
}

// GlobalRateLimit creates a rate limiting middleware shared by all clients.
func GlobalRateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	skip := skipSet(cfg.SkipPaths)

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		if !limiter.Allow() {
			reject(c, cfg)
			return
		}
		c.Next()
	}
}

func reject(c *gin.Context, cfg RateLimitConfig) {
	retry := 1
	if cfg.RequestsPerSecond > 0 {
		retry = int(math.Ceil(1 / float64(cfg.RequestsPerSecond)))
	}
	c.Header("Retry-After", strconv.Itoa(retry))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success": false,
		"message": "rate limit exceeded",
	})
}

func skipSet(paths []string) map[string]struct{} {
	m := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		m[p] = struct{}{}
	}
	return m
}
