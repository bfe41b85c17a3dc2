package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestCORS(t *testing.T) {
	router := setupTestRouter()
	router.Use(CORS(DefaultCORSConfig()))
	router.GET("/data", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	tests := []struct {
		name           string
		method         string
		origin         string
		wantStatus     int
		wantCORSHeader bool
	}{
		{
			name:           "simple GET request with origin",
			method:         "GET",
			origin:         "http://localhost:3000",
			wantStatus:     http.StatusOK,
			wantCORSHeader: true,
		},
		{
			name:           "preflight OPTIONS request",
			method:         "OPTIONS",
			origin:         "http://localhost:3000",
			wantStatus:     http.StatusNoContent,
			wantCORSHeader: true,
		},
		{
			name:           "no origin header",
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantCORSHeader: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/data", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == "OPTIONS" {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCORSHeader {
				assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestCORSExposesTraceHeaders(t *testing.T) {
	router := setupTestRouter()
	router.Use(CORS(DefaultCORSConfig()))
	router.GET("/data", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/data", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	exposed := w.Header().Get("Access-Control-Expose-Headers")
	assert.Contains(t, exposed, "X-Trace-Id")
	assert.Contains(t, exposed, "X-Span-Id")
}

func TestCORSWithCustomConfig(t *testing.T) {
	router := setupTestRouter()
	router.Use(CORS(CORSConfig{
		AllowOrigins: []string{"https://example.com"},
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       time.Hour,
	}))
	router.GET("/data", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	allowed := httptest.NewRequest("GET", "/data", nil)
	allowed.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, allowed)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))

	denied := httptest.NewRequest("GET", "/data", nil)
	denied.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, denied)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))
	router.GET("/data", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	// First 2 requests should succeed (burst capacity)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/data", nil)
		req.RemoteAddr = "192.168.1.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	req := httptest.NewRequest("GET", "/data", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"message":"rate limit exceeded"}`, w.Body.String())
}

func TestRateLimitDifferentClients(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))
	router.GET("/data", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(addr string) int {
		req := httptest.NewRequest("GET", "/data", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("192.168.1.1:1234"))
	assert.Equal(t, http.StatusOK, send("192.168.1.2:1234"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.168.1.1:1234"))
}

func TestRateLimitSkipPaths(t *testing.T) {
	router := setupTestRouter()
	router.Use(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, SkipPaths: []string{"/metrics"}}))
	router.GET("/metrics", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/metrics", nil)
		req.RemoteAddr = "10.0.0.1:1"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestLimiterSetForgetsIdleClients(t *testing.T) {
	var mu sync.Mutex
	now := time.Unix(0, 0)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	set := newLimiterSet(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}, clock)

	set.get("10.0.0.1")
	set.get("10.0.0.2")
	assert.Equal(t, 2, set.size())

	mu.Lock()
	now = now.Add(idleClientTTL + time.Second)
	mu.Unlock()

	set.get("10.0.0.3")
	assert.Equal(t, 1, set.size())
}

func TestGlobalRateLimit(t *testing.T) {
	router := setupTestRouter()
	router.Use(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))
	router.GET("/data", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	addrs := []string{"192.168.1.1:1234", "192.168.1.2:1234", "192.168.1.3:1234"}
	codes := make([]int, 0, len(addrs))
	for _, addr := range addrs {
		req := httptest.NewRequest("GET", "/data", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestDefaultConfigs(t *testing.T) {
	cors := DefaultCORSConfig()
	assert.Contains(t, cors.AllowOrigins, "*")
	assert.Contains(t, cors.AllowMethods, "POST")
	assert.Contains(t, cors.AllowMethods, "DELETE")
	assert.False(t, cors.AllowCredentials)
	assert.Equal(t, 12*time.Hour, cors.MaxAge)

	rl := DefaultRateLimitConfig()
	assert.Equal(t, 100, rl.RequestsPerSecond)
	assert.Equal(t, 200, rl.Burst)
}

func BenchmarkRateLimit(b *testing.B) {
	router := setupTestRouter()
	router.Use(RateLimit(DefaultRateLimitConfig()))
	router.GET("/data", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/data", nil)
	req.RemoteAddr = "192.168.1.1:1234"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}
