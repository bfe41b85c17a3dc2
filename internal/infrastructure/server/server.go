package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/metricsvc/internal/api/http"
	"github.com/GriffinCanCode/metricsvc/internal/api/middleware"
	"github.com/GriffinCanCode/metricsvc/internal/domain/datastore"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/config"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/tracing"
)

// Deps are the components the server routes to
type Deps struct {
	Registry *monitoring.Registry
	HTTP     *monitoring.HTTPCollector
	Store    *datastore.Store
	Info     monitoring.AppInfo
	// Prober overrides the /health prober, for tests
	Prober apihttp.Prober
}

// Server wraps the HTTP server and dependencies
type Server struct {
	config  *config.Config
	router  *gin.Engine
	handler http.Handler
	http    *http.Server
	tracer  *tracing.Tracer
	logger  *zap.Logger
}

// New creates a new server instance
func New(cfg *config.Config, deps Deps, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Registry == nil || deps.HTTP == nil || deps.Store == nil {
		return nil, errors.New("server: registry, HTTP collector and store are required")
	}

	metricsPath := cfg.Metrics.Path
	jsonPath := cfg.Metrics.JSONPath()

	tracer := tracing.New(deps.Info.Name, logger)
	logger.Info("Request tracing initialized")

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Recovery is outermost so the instrumentation below sees the panic first
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer, metricsPath, jsonPath))
	router.Use(monitoring.Middleware(deps.HTTP, metricsPath, jsonPath))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
			SkipPaths:         []string{metricsPath, jsonPath},
		}))
	}

	var opts []apihttp.Option
	if deps.Prober != nil {
		opts = append(opts, apihttp.WithProber(deps.Prober))
	}
	handlers := apihttp.NewHandlers(deps.Store, deps.Registry, deps.Info, logger, opts...)
	handlers.Register(router, jsonPath)

	router.GET(metricsPath, gin.WrapH(monitoring.Handler(deps.Registry, monitoring.ExpositionOptions{
		EnableOpenMetrics:  cfg.Metrics.OpenMetrics,
		DisableCompression: true,
		Logger:             logger,
	})))

	logger.Info("Server initialized successfully",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("metrics_path", metricsPath),
	)

	handler := gzhttp.GzipHandler(router)

	return &Server{
		config:  cfg,
		router:  router,
		handler: handler,
		http: &http.Server{
			Addr:    cfg.Server.Addr(),
			Handler: handler,
		},
		tracer: tracer,
		logger: logger,
	}, nil
}

// Handler returns the root handler, compression included
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully within the configured timeout
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.tracer.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Server.ShutdownTimeoutDuration())
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully stops the HTTP server and flushes pending spans
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	defer s.tracer.Close()

	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	return nil
}
