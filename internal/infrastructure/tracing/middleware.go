package tracing

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/metricsvc/internal/shared/id"
)

// maxIncomingIDLen bounds propagated ids so a client cannot bloat logs
const maxIncomingIDLen = 128

// HTTPMiddleware creates Gin middleware that opens a span per request and
// echoes the trace ids in the response headers. Paths in skipPaths are not
// traced.
func HTTPMiddleware(tracer *Tracer, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ctx := WithTrace(c.Request.Context(),
			id.TraceID(incomingID(c.GetHeader(HeaderTraceID))),
			id.SpanID(incomingID(c.GetHeader(HeaderSpanID))))

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.path", c.Request.URL.Path)

		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, span.TraceID.String())
		c.Header(HeaderSpanID, span.SpanID.String())

		defer func() {
			if r := recover(); r != nil {
				span.StatusCode = http.StatusInternalServerError
				span.SetError(errPanic)
				span.Finish()
				tracer.Submit(span)
				panic(r)
			}
		}()

		c.Next()

		span.StatusCode = c.Writer.Status()
		span.SetTag("http.status_code", strconv.Itoa(span.StatusCode))
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		span.Finish()
		tracer.Submit(span)
	}
}

func incomingID(v string) string {
	if len(v) > maxIncomingIDLen {
		return ""
	}
	return v
}
