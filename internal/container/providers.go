package container

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/dispatcher"
	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/application/service"
	"github.com/garyjia/translation-quotes/internal/domain/event"
	"github.com/garyjia/translation-quotes/internal/domain/pricing"
	"github.com/garyjia/translation-quotes/internal/infrastructure/export"
	"github.com/garyjia/translation-quotes/internal/infrastructure/external/brevo"
	infraLark "github.com/garyjia/translation-quotes/internal/infrastructure/external/lark"
	infraStripe "github.com/garyjia/translation-quotes/internal/infrastructure/external/stripe"
	"github.com/garyjia/translation-quotes/internal/infrastructure/external/vision"
	"github.com/garyjia/translation-quotes/internal/infrastructure/metrics"
	"github.com/garyjia/translation-quotes/internal/infrastructure/persistence/repository"
	"github.com/garyjia/translation-quotes/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/translation-quotes/internal/infrastructure/resilience"
	"github.com/garyjia/translation-quotes/internal/infrastructure/storage"
	"github.com/garyjia/translation-quotes/internal/infrastructure/worker"
	"github.com/garyjia/translation-quotes/pkg/database"
	"github.com/garyjia/translation-quotes/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqldb.DB
}

// ExternalBundle holds the outbound adapters. Optional adapters are nil when not configured.
type ExternalBundle struct {
	Analyzer port.DocumentAnalyzer
	Email    port.EmailSender
	Staff    port.StaffNotifier
	Payments port.PaymentGateway
	Webhooks port.PaymentWebhookVerifier
}

// ProvideDatabase opens the connection pool and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		migrator := database.NewMigrator(conn, logger)
		if err := migrator.RunMigrations(database.Migrations, "migrations"); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqldb.New(conn.DB, sqldb.Dialect(conn.Driver), logger),
	}, nil
}

// ProvideRepositories creates all repositories on top of the transaction manager.
func ProvideRepositories(db *sqldb.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Quote:         repository.NewQuoteRepository(db, logger),
		QuoteFile:     repository.NewQuoteFileRepository(db, logger),
		Analysis:      repository.NewAnalysisRepository(db, logger),
		Review:        repository.NewHITLReviewRepository(db, logger),
		Threshold:     repository.NewThresholdRepository(db, logger),
		Order:         repository.NewOrderRepository(db, logger),
		Cancellation:  repository.NewCancellationRepository(db, logger),
		QuoteVersion:  repository.NewQuoteVersionRepository(db, logger),
		StatusHistory: repository.NewStatusHistoryRepository(db, logger),
	}, nil
}

// ProvideBlobStore creates the configured upload store.
func ProvideBlobStore(ctx context.Context, cfg *StorageConfig, logger *zap.Logger) (port.BlobStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	store, err := storage.New(ctx, storage.Config{
		Backend:  cfg.Backend,
		LocalDir: cfg.LocalDir,
		Bucket:   cfg.Bucket,
		Prefix:   cfg.Prefix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}
	return store, nil
}

// ProvideExternal creates the vision analyzer, email sender, staff notifier and Stripe adapters.
func ProvideExternal(cfg *Config, logger *zap.Logger) (*ExternalBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	analyzer, err := ProvideAnalyzer(&cfg.Vision, cfg.Resilience, logger)
	if err != nil {
		return nil, err
	}

	bundle := &ExternalBundle{Analyzer: analyzer}

	if cfg.Email.BrevoAPIKey != "" {
		sender, err := brevo.NewSender(brevo.Config{
			APIKey:      cfg.Email.BrevoAPIKey,
			BaseURL:     cfg.Email.BaseURL,
			SenderEmail: cfg.Email.SenderEmail,
			SenderName:  cfg.Email.SenderName,
			Timeout:     cfg.Email.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create email sender: %w", err)
		}
		bundle.Email = sender
	} else {
		logger.Warn("Brevo is not configured, customer emails are disabled")
	}

	if cfg.Lark.Enabled() {
		larkCfg := infraLark.Config{
			AppID:        cfg.Lark.AppID,
			AppSecret:    cfg.Lark.AppSecret,
			ReviewChatID: cfg.Lark.ReviewChatID,
			AdminBaseURL: cfg.Lark.AdminBaseURL,
		}
		notifier, err := infraLark.NewReviewNotifier(infraLark.NewSDKClient(larkCfg, logger), larkCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create staff notifier: %w", err)
		}
		bundle.Staff = notifier
	}

	bundle.Payments = infraStripe.NewGateway(infraStripe.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	}, logger)

	if cfg.Stripe.WebhookSecret != "" {
		verifier, err := infraStripe.NewWebhookVerifier(cfg.Stripe.WebhookSecret)
		if err != nil {
			return nil, fmt.Errorf("failed to create webhook verifier: %w", err)
		}
		bundle.Webhooks = verifier
	}

	return bundle, nil
}

// ProvideAnalyzer creates the vision analyzer behind the resilience executor.
func ProvideAnalyzer(cfg *VisionConfig, res resilience.Config, logger *zap.Logger) (port.DocumentAnalyzer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("vision config is required")
	}

	prompts, err := vision.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	executor := resilience.NewExecutor(res, logger)
	return vision.NewAnalyzer(vision.Options{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Timeout:           cfg.Timeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		MaxPDFPages:       cfg.MaxPDFPages,
		Prompts:           prompts,
	}, executor, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKeyValueLogger(logger.Named("dispatcher"))),
		dispatcher.WithHandlerTimeout(30*time.Second),
	), nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Config     *Config
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	BlobStore  port.BlobStore
	External   *ExternalBundle
	Dispatcher dispatcher.Dispatcher
	Metrics    *metrics.Recorder
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the event handlers.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Config == nil || deps.Repos == nil || deps.External == nil {
		return nil, fmt.Errorf("service dependencies are incomplete")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	cfg := deps.Config
	repos := deps.Repos
	log := utils.NewKeyValueLogger(deps.Logger.Named("service"))

	calculator, err := pricing.NewCalculator(cfg.Pricing.Table())
	if err != nil {
		return nil, err
	}

	var m service.Metrics
	if deps.Metrics != nil {
		m = deps.Metrics
	}

	transitions := service.NewTransitionService(repos.Quote, repos.StatusHistory, deps.TxManager, m, log)

	thresholds := service.NewThresholdService(
		repos.Quote, repos.Analysis, repos.Threshold, repos.Review,
		transitions, deps.TxManager, deps.Dispatcher, m, log, cfg.HITL.SLA,
	)

	processing := service.NewProcessingService(
		repos.Quote, repos.QuoteFile, repos.Analysis, repos.QuoteVersion,
		deps.BlobStore, deps.External.Analyzer, calculator,
		transitions, thresholds, deps.TxManager, deps.Dispatcher, m, log,
		service.ProcessingOptions{
			MaxConcurrentFiles: cfg.Processing.MaxConcurrentFiles,
			Pricing: service.PricingDefaults{
				BaseRate:           cfg.Pricing.DefaultBaseRate,
				CertificationPrice: cfg.Pricing.CertificationPrice,
				RushFee:            cfg.Pricing.RushFee,
			},
		},
	)

	quotes := service.NewQuoteService(
		repos.Quote, repos.QuoteFile, repos.Analysis, repos.StatusHistory, repos.Order,
		deps.BlobStore, transitions, processing, deps.TxManager, deps.Dispatcher, log,
		service.QuoteOptions{
			ValidityDays:   cfg.Processing.ValidityDays,
			DefaultTaxRate: cfg.Pricing.DefaultTaxRate,
			Currency:       cfg.Pricing.Currency,
			PaymentBaseURL: cfg.Stripe.PaymentBaseURL,
			MaxFileSize:    cfg.Processing.MaxFileSize,
		},
	)

	reviews := service.NewReviewService(
		repos.Review, repos.Quote, repos.QuoteFile, repos.Threshold,
		transitions, deps.TxManager, deps.Dispatcher, log, cfg.Stripe.PaymentBaseURL,
	)

	notifications := service.NewNotificationService(
		repos.Quote, deps.External.Email, deps.External.Staff, log,
		service.NotificationOptions{
			CompanyName:   cfg.Email.CompanyName,
			PortalBaseURL: cfg.Email.PortalBaseURL,
			Currency:      cfg.Pricing.Currency,
		},
	)

	cancellations := service.NewCancellationService(
		repos.Order, repos.Cancellation, deps.External.Payments, notifications,
		deps.TxManager, deps.Dispatcher, m, log,
	)

	if deps.Dispatcher != nil {
		notifications.Register(deps.Dispatcher)
		if deps.Metrics != nil {
			deps.Metrics.CountEvents(deps.Dispatcher, event.AllTypes()...)
		}
	}

	return &ServiceBundle{
		Calculator:   calculator,
		Transition:   transitions,
		Threshold:    thresholds,
		Processing:   processing,
		Quote:        quotes,
		Review:       reviews,
		Notification: notifications,
		Cancellation: cancellations,
		Poller: service.NewStatusPoller(
			quotes, processing, cfg.Processing.PollInterval, cfg.Processing.PollTimeout, log,
		),
		ReviewExport: export.NewReviewQueueExporter(repos.Review, repos.Quote, deps.Logger.Named("export")),
	}, nil
}

// WorkerDeps holds dependencies for creating workers.
type WorkerDeps struct {
	Quotes    service.QuoteService
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates the worker manager with the expiry sweep registered.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil || deps.Quotes == nil || deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker dependencies are incomplete")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewWorkerManager(deps.Logger)
	manager.Register(worker.NewExpiryWorker(worker.ExpiryWorkerConfig{
		Interval:  deps.WorkerCfg.ExpiryInterval,
		BatchSize: deps.WorkerCfg.ExpiryBatchSize,
	}, deps.Quotes, deps.Logger))

	return manager, nil
}
