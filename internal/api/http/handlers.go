package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/metricsvc/internal/domain/datastore"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/metricsvc/internal/shared/utils"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	store    *datastore.Store
	registry *monitoring.Registry
	prober   Prober
	info     monitoring.AppInfo
	logger   *zap.Logger
	now      func() time.Time

	bodyLimit *utils.JSONSizeValidator
}

// Option customizes Handlers
type Option func(*Handlers)

// WithClock replaces the wall clock used for response timestamps
func WithClock(now func() time.Time) Option {
	return func(h *Handlers) { h.now = now }
}

// WithBodyLimit caps the size of request bodies in bytes
func WithBodyLimit(maxBytes int) Option {
	return func(h *Handlers) { h.bodyLimit = utils.NewJSONSizeValidator(maxBytes) }
}

// WithProber replaces the host and process prober used by /health
func WithProber(p Prober) Option {
	return func(h *Handlers) { h.prober = p }
}

// NewHandlers creates a new handler set
func NewHandlers(
	store *datastore.Store,
	registry *monitoring.Registry,
	info monitoring.AppInfo,
	logger *zap.Logger,
	opts ...Option,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handlers{
		store:    store,
		registry: registry,
		info:     info,
		logger:   logger,
		now:      time.Now,

		bodyLimit: utils.DefaultJSONValidator(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.prober == nil {
		h.prober = NewSystemProber(logger)
	}
	return h
}

// Register mounts every route except the exposition endpoint
func (h *Handlers) Register(r gin.IRouter, metricsJSONPath string) {
	r.GET("/", h.Root)

	r.POST("/data", h.CreateData)
	r.GET("/data", h.ListData)
	r.GET("/data/:key", h.GetData)
	r.DELETE("/data/:key", h.DeleteData)

	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)
	r.GET("/health/live", h.Live)

	r.GET(metricsJSONPath, h.MetricsJSON)
}

// Root returns the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   h.info.Name + " metrics monitoring service",
		"version":   h.info.Version,
		"status":    "running",
		"timestamp": h.timestamp(),
	})
}

// timestamp is the current time as fractional Unix seconds
func (h *Handlers) timestamp() float64 {
	return unixSeconds(h.now())
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
