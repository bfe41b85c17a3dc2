package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware that records request metrics.
// Requests to excludedPaths (typically the scrape endpoint) are not counted.
func Middleware(collector *HTTPCollector, excludedPaths ...string) gin.HandlerFunc {
	excluded := make(map[string]struct{}, len(excludedPaths))
	for _, p := range excludedPaths {
		excluded[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, skip := excluded[path]; skip {
			c.Next()
			return
		}

		method := c.Request.Method
		start := time.Now()
		reqSize := headerSize(c.Request.Header)

		collector.IncrementActive(method, path)
		defer collector.DecrementActive(method, path)

		// A panicking handler is recorded as a 500 and the panic continues
		// unchanged to the outer recovery.
		defer func() {
			if r := recover(); r != nil {
				collector.RecordRequest(method, path, http.StatusInternalServerError,
					time.Since(start).Seconds(), reqSize, 0)
				panic(r)
			}
		}()

		c.Next()

		collector.RecordRequest(method, path, c.Writer.Status(),
			time.Since(start).Seconds(), reqSize, responseSize(c.Writer))
	}
}

// headerSize parses Content-Length, treating absent or malformed values as 0
func headerSize(h http.Header) int64 {
	v := h.Get("Content-Length")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// responseSize prefers an explicit Content-Length and otherwise counts the
// bytes actually written, since net/http only fills the header in later.
// Compression applied outside the router is not seen here, so the size is
// the uncompressed body the handler produced.
func responseSize(w gin.ResponseWriter) int64 {
	if w.Header().Get("Content-Length") != "" {
		return headerSize(w.Header())
	}
	if n := w.Size(); n > 0 {
		return int64(n)
	}
	return 0
}
