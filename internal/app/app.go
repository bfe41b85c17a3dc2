package app

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/metricsvc/internal/domain/datastore"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/config"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/exporter"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/server"
)

// App holds initialized application components.
type App struct {
	Config   *config.Config
	Registry *monitoring.Registry
	HTTP     *monitoring.HTTPCollector
	System   *monitoring.SystemCollector
	Sampler  *monitoring.Sampler
	Server   *server.Server
	Exporter *exporter.Exporter

	logger *zap.Logger
}

type options struct {
	provider monitoring.ProcessProvider
	deps     server.Deps
}

// Option customizes New
type Option func(*options)

// WithProcessProvider replaces the reader of the current process
func WithProcessProvider(p monitoring.ProcessProvider) Option {
	return func(o *options) { o.provider = p }
}

// WithServerDeps supplies server dependencies New does not build itself,
// such as a health prober
func WithServerDeps(deps server.Deps) Option {
	return func(o *options) { o.deps = deps }
}

// New builds every component from cfg. A metric registration conflict is
// returned as an error and the application must not start.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	info := monitoring.AppInfo{Name: cfg.App.Name, Version: cfg.App.Version}
	reg := monitoring.NewRegistry()

	httpCollector, err := monitoring.NewHTTPCollector(reg, cfg.Metrics.DurationBuckets, logger.Named("http_metrics"))
	if err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}

	provider := o.provider
	if provider == nil {
		self, err := monitoring.NewSelfProvider(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open current process: %w", err)
		}
		provider = self
	}

	system, err := monitoring.NewSystemCollector(ctx, reg, provider, info, logger.Named("system_metrics"))
	if err != nil {
		return nil, fmt.Errorf("failed to register system metrics: %w", err)
	}

	a := &App{
		Config:   cfg,
		Registry: reg,
		HTTP:     httpCollector,
		System:   system,
		logger:   logger,
	}

	if cfg.Metrics.EnableSystemMetrics {
		// First sample so the process families are populated before the first scrape
		system.Collect(ctx)
		a.Sampler = monitoring.NewSampler(cfg.Metrics.Interval(), system, logger.Named("sampler"))
	} else {
		logger.Info("System metrics sampling disabled")
	}

	deps := o.deps
	deps.Registry = reg
	deps.HTTP = httpCollector
	deps.Info = info
	if deps.Store == nil {
		deps.Store = datastore.New()
	}
	a.Server, err = server.New(cfg, deps, logger)
	if err != nil {
		return nil, err
	}

	if cfg.OTel.Enabled {
		a.Exporter, err = exporter.New(ctx, cfg.OTel, reg, info, logger.Named("otlp"))
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	}

	return a, nil
}

// Run serves on the configured address until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Config.Server.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the sampler, the exporter and the HTTP server on ln until ctx is
// cancelled or one of them fails, then stops all of them.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.Sampler != nil {
		a.Sampler.Start(ctx)
		defer a.Sampler.Stop()
	}

	g.Go(func() error {
		return a.Server.Serve(ctx, ln)
	})

	if a.Exporter != nil {
		g.Go(func() error {
			return a.Exporter.Run(ctx)
		})
	}

	err := g.Wait()
	a.logger.Info("Shutdown complete")
	return err
}
