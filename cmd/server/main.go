package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/metricsvc/internal/app"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/config"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/logging"
	"github.com/GriffinCanCode/metricsvc/internal/smoke"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "metricsvc",
		Usage:   "HTTP service instrumented with Prometheus metrics",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a .yaml, .yml or .toml configuration file",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging with the development encoder",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "smoke test a running instance",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Value: "http://localhost:8000",
						Usage: "base URL of the instance",
					},
					&cli.StringFlag{
						Name:  "metrics-path",
						Value: "/metrics",
						Usage: "scrape path of the instance",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Value: 10 * time.Second,
						Usage: "per-request timeout",
					},
				},
				Action: check,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Bool("debug") {
		cfg.Logging.Level = "debug"
		cfg.Logging.Development = true
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	logger.Info("Starting metricsvc",
		zap.String("version", cfg.App.Version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("metrics_path", cfg.Metrics.Path),
		zap.Bool("system_metrics", cfg.Metrics.EnableSystemMetrics),
		zap.Bool("otlp", cfg.OTel.Enabled),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger.Logger)
	if err != nil {
		logger.Error("Initialization failed", zap.Error(err))
		return fmt.Errorf("initialization failed: %w", err)
	}

	return application.Run(ctx)
}

func check(ctx context.Context, cmd *cli.Command) error {
	logger, err := logging.New(logging.Config{Level: "info", Development: true})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	report := smoke.New(cmd.String("url"), cmd.String("metrics-path"), cmd.Duration("timeout"), logger.Logger).Run(ctx)
	if err := report.Err(); err != nil {
		return err
	}

	logger.Info("All smoke checks passed", zap.Int("checks", len(report.Results)))
	return nil
}
