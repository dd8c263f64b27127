package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/config"
	"github.com/garyjia/translation-quotes/internal/container"
	httpapi "github.com/garyjia/translation-quotes/internal/interfaces/http"
	"github.com/garyjia/translation-quotes/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "translation-quotes",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting translation quote service",
		zap.String("version", httpapi.Version),
		zap.Int("port", cfg.Server.Port),
		zap.String("database_driver", cfg.Database.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("Service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	app, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	if err := app.Start(ctx); err != nil {
		_ = app.Close()
		return fmt.Errorf("start container: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	services := app.Services()
	external := app.External()

	deps := httpapi.Dependencies{
		Quotes:        services.Quote,
		Processing:    services.Processing,
		Thresholds:    services.Threshold,
		Reviews:       services.Review,
		Cancellations: services.Cancellation,
		Poller:        services.Poller,
		ReviewExport:  services.ReviewExport,
		Calculator:    services.Calculator,
		Webhooks:      external.Webhooks,
		Metrics:       app.Metrics(),
		Readiness: func(ctx context.Context) (bool, interface{}) {
			health := app.Health(ctx)
			return health.Overall, health.Components
		},
	}

	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxUploadBytes: cfg.Processing.MaxFileSize,
	}, deps, utils.NewKeyValueLogger(logger.Named("http")))

	return server.Start(ctx)
}
