// Package container provides dependency injection and lifecycle management
// for the translation quote service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/translation-quotes/internal/domain/pricing"
	"github.com/garyjia/translation-quotes/internal/infrastructure/resilience"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database   DatabaseConfig
	Vision     VisionConfig
	Pricing    PricingConfig
	Processing ProcessingConfig
	HITL       HITLConfig
	Storage    StorageConfig
	Email      EmailConfig
	Lark       LarkConfig
	Stripe     StripeConfig
	Resilience resilience.Config
	Server     ServerConfig
	Worker     WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is sqlite3 or pgx
	Driver string

	// Path to SQLite database file
	Path string

	// DSN is the Postgres connection string
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// RunMigrations applies the embedded schema on start
	RunMigrations bool
}

// VisionConfig holds the document analysis model settings.
type VisionConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxPDFPages       int

	// PromptsPath points at an optional YAML prompt override
	PromptsPath string
}

// PricingConfig holds the pricing table and quote-level defaults.
type PricingConfig struct {
	WordsPerPage       float64
	PageStep           float64
	MinBillablePages   float64
	Multipliers        map[string]float64
	DefaultBaseRate    float64
	CertificationPrice float64
	RushFee            float64
	DefaultTaxRate     float64
	Currency           string
}

// Table converts the configured values into a pricing.Config
func (p PricingConfig) Table() pricing.Config {
	table := pricing.DefaultConfig()
	if p.WordsPerPage > 0 {
		table.WordsPerPage = p.WordsPerPage
	}
	if p.PageStep > 0 {
		table.PageStep = p.PageStep
	}
	if p.MinBillablePages > 0 {
		table.MinBillablePages = p.MinBillablePages
	}
	for k, v := range p.Multipliers {
		cx := pricing.Complexity(k)
		if cx.IsValid() {
			table.Multipliers[cx] = v
		}
	}
	return table
}

// ProcessingConfig holds analysis pipeline and quote lifecycle settings.
type ProcessingConfig struct {
	MaxConcurrentFiles int
	MaxFileSize        int64
	PollInterval       time.Duration
	PollTimeout        time.Duration
	ValidityDays       int
}

// HITLConfig holds staff review settings.
type HITLConfig struct {
	SLA time.Duration
}

// StorageConfig holds blob storage settings.
type StorageConfig struct {
	// Backend is local or gcs
	Backend  string
	LocalDir string
	Bucket   string
	Prefix   string
}

// EmailConfig holds transactional email settings.
type EmailConfig struct {
	BrevoAPIKey   string
	BaseURL       string
	SenderEmail   string
	SenderName    string
	CompanyName   string
	PortalBaseURL string
	Timeout       time.Duration
}

// LarkConfig holds Lark API settings for staff alerts.
type LarkConfig struct {
	AppID        string
	AppSecret    string
	ReviewChatID string
	AdminBaseURL string
}

// Enabled reports whether staff alerts can be sent
func (l LarkConfig) Enabled() bool {
	return l.AppID != "" && l.AppSecret != "" && l.ReviewChatID != ""
}

// StripeConfig holds payment gateway settings.
type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	PaymentBaseURL string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	ExpiryInterval  time.Duration
	ExpiryBatchSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite3",
			Path:            "data/quotes.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			RunMigrations:   true,
		},
		Vision: VisionConfig{
			Timeout:           60 * time.Second,
			RequestsPerMinute: 30,
			MaxPDFPages:       5,
		},
		Pricing: PricingConfig{
			WordsPerPage:     225,
			PageStep:         0.01,
			MinBillablePages: 1,
			DefaultBaseRate:  65,
			RushFee:          50,
			DefaultTaxRate:   0.05,
			Currency:         "cad",
		},
		Processing: ProcessingConfig{
			MaxConcurrentFiles: 3,
			MaxFileSize:        25 << 20,
			PollInterval:       3 * time.Second,
			PollTimeout:        45 * time.Second,
			ValidityDays:       30,
		},
		HITL: HITLConfig{
			SLA: 4 * time.Hour,
		},
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: "data/uploads",
		},
		Email: EmailConfig{
			Timeout: 15 * time.Second,
		},
		Resilience: resilience.DefaultConfig(),
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 90 * time.Second,
		},
		Worker: WorkerConfig{
			ExpiryInterval:  10 * time.Minute,
			ExpiryBatchSize: 200,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite3")
		}
	case "pgx":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for pgx")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite3 or pgx, got %q", c.Database.Driver)
	}

	if c.Vision.APIKey == "" {
		return fmt.Errorf("vision.api_key is required")
	}

	if err := c.Pricing.Table().Validate(); err != nil {
		return fmt.Errorf("pricing: %w", err)
	}
	if c.Pricing.DefaultBaseRate <= 0 {
		return fmt.Errorf("pricing.default_base_rate must be positive")
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required for the local backend")
		}
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend must be local or gcs, got %q", c.Storage.Backend)
	}

	if c.Email.BrevoAPIKey != "" && c.Email.SenderEmail == "" {
		return fmt.Errorf("email.sender_email is required when brevo is configured")
	}

	return nil
}
