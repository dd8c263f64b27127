package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Vision     VisionConfig     `mapstructure:"vision"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Processing ProcessingConfig `mapstructure:"processing"`
	HITL       HITLConfig       `mapstructure:"hitl"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Email      EmailConfig      `mapstructure:"email"`
	Lark       LarkConfig       `mapstructure:"lark"`
	Stripe     StripeConfig     `mapstructure:"stripe"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	RunMigrations   bool          `mapstructure:"run_migrations"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// VisionConfig holds document analysis model configuration
type VisionConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxPDFPages       int           `mapstructure:"max_pdf_pages"`
	PromptsPath       string        `mapstructure:"prompts_path"`
}

// PricingConfig holds the pricing table
type PricingConfig struct {
	WordsPerPage          float64            `mapstructure:"words_per_page"`
	PageStep              float64            `mapstructure:"page_step"`
	MinBillablePages      float64            `mapstructure:"min_billable_pages"`
	ComplexityMultipliers map[string]float64 `mapstructure:"complexity_multipliers"`
	DefaultBaseRate       float64            `mapstructure:"default_base_rate"`
	CertificationPrice    float64            `mapstructure:"certification_price"`
	RushFee               float64            `mapstructure:"rush_fee"`
	DefaultTaxRate        float64            `mapstructure:"default_tax_rate"`
	Currency              string             `mapstructure:"currency"`
}

// ProcessingConfig holds analysis pipeline configuration
type ProcessingConfig struct {
	MaxConcurrentFiles  int           `mapstructure:"max_concurrent_files"`
	MaxFileSize         int64         `mapstructure:"max_file_size"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	PollTimeout         time.Duration `mapstructure:"poll_timeout"`
	QuoteValidityDays   int           `mapstructure:"quote_validity_days"`
	ExpirySweepInterval time.Duration `mapstructure:"expiry_sweep_interval"`
	ExpiryBatchSize     int           `mapstructure:"expiry_batch_size"`
}

// HITLConfig holds staff review configuration
type HITLConfig struct {
	SLAHours int `mapstructure:"sla_hours"`
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// EmailConfig holds transactional email configuration
type EmailConfig struct {
	BrevoAPIKey   string        `mapstructure:"brevo_api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	SenderEmail   string        `mapstructure:"sender_email"`
	SenderName    string        `mapstructure:"sender_name"`
	CompanyName   string        `mapstructure:"company_name"`
	PortalBaseURL string        `mapstructure:"portal_base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	AppID        string `mapstructure:"app_id"`
	AppSecret    string `mapstructure:"app_secret"`
	ReviewChatID string `mapstructure:"review_chat_id"`
	AdminBaseURL string `mapstructure:"admin_base_url"`
}

// StripeConfig holds Stripe configuration
type StripeConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	PaymentBaseURL string `mapstructure:"payment_base_url"`
}

// ResilienceConfig holds retry and circuit breaker configuration for outbound calls
type ResilienceConfig struct {
	RetryMaxAttempts        int           `mapstructure:"retry_max_attempts"`
	RetryInitialBackoff     time.Duration `mapstructure:"retry_initial_backoff"`
	RetryMaxBackoff         time.Duration `mapstructure:"retry_max_backoff"`
	RetryMultiplier         float64       `mapstructure:"retry_multiplier"`
	BreakerEnabled          bool          `mapstructure:"breaker_enabled"`
	BreakerMinRequests      uint32        `mapstructure:"breaker_min_requests"`
	BreakerFailureRatio     float64       `mapstructure:"breaker_failure_ratio"`
	BreakerOpenTimeout      time.Duration `mapstructure:"breaker_open_timeout"`
	BreakerHalfOpenMaxCalls uint32        `mapstructure:"breaker_half_open_max_calls"`
}

// Load loads configuration from an optional .env file, the YAML file and environment variables.
// A missing config file is not an error; defaults and the environment still apply.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)

	// Database defaults
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.path", "data/quotes.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.run_migrations", true)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Vision defaults
	v.SetDefault("vision.base_url", "https://api.anthropic.com/v1/")
	v.SetDefault("vision.model", "claude-sonnet-4-5")
	v.SetDefault("vision.timeout", 60*time.Second)
	v.SetDefault("vision.requests_per_minute", 30)
	v.SetDefault("vision.max_pdf_pages", 5)

	// Pricing defaults
	v.SetDefault("pricing.words_per_page", 225)
	v.SetDefault("pricing.page_step", 0.01)
	v.SetDefault("pricing.min_billable_pages", 1.0)
	v.SetDefault("pricing.complexity_multipliers", map[string]float64{
		"easy":   1.0,
		"medium": 1.15,
		"hard":   1.25,
	})
	v.SetDefault("pricing.default_base_rate", 65.0)
	v.SetDefault("pricing.certification_price", 0.0)
	v.SetDefault("pricing.rush_fee", 50.0)
	v.SetDefault("pricing.default_tax_rate", 0.05)
	v.SetDefault("pricing.currency", "cad")

	// Processing defaults
	v.SetDefault("processing.max_concurrent_files", 3)
	v.SetDefault("processing.max_file_size", 25<<20)
	v.SetDefault("processing.poll_interval", 3*time.Second)
	v.SetDefault("processing.poll_timeout", 45*time.Second)
	v.SetDefault("processing.quote_validity_days", 30)
	v.SetDefault("processing.expiry_sweep_interval", 10*time.Minute)
	v.SetDefault("processing.expiry_batch_size", 200)

	// HITL defaults
	v.SetDefault("hitl.sla_hours", 4)

	// Storage defaults
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.dir", "data/uploads")

	// Email defaults
	v.SetDefault("email.base_url", "https://api.brevo.com/v3")
	v.SetDefault("email.sender_name", "Translation Services")
	v.SetDefault("email.company_name", "Translation Services")
	v.SetDefault("email.timeout", 15*time.Second)

	// Resilience defaults
	v.SetDefault("resilience.retry_max_attempts", 3)
	v.SetDefault("resilience.retry_initial_backoff", 500*time.Millisecond)
	v.SetDefault("resilience.retry_max_backoff", 4*time.Second)
	v.SetDefault("resilience.retry_multiplier", 2.0)
	v.SetDefault("resilience.breaker_enabled", true)
	v.SetDefault("resilience.breaker_min_requests", 5)
	v.SetDefault("resilience.breaker_failure_ratio", 0.6)
	v.SetDefault("resilience.breaker_open_timeout", 60*time.Second)
	v.SetDefault("resilience.breaker_half_open_max_calls", 1)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.driver":       "DATABASE_DRIVER",
		"database.dsn":          "DATABASE_URL",
		"vision.api_key":        "VISION_API_KEY",
		"vision.base_url":       "VISION_BASE_URL",
		"vision.model":          "VISION_MODEL",
		"storage.backend":       "STORAGE_BACKEND",
		"storage.bucket":        "GCS_BUCKET",
		"email.brevo_api_key":   "BREVO_API_KEY",
		"email.sender_email":    "EMAIL_SENDER",
		"email.portal_base_url": "PORTAL_BASE_URL",
		"lark.app_id":           "LARK_APP_ID",
		"lark.app_secret":       "LARK_APP_SECRET",
		"lark.review_chat_id":   "LARK_REVIEW_CHAT_ID",
		"lark.admin_base_url":   "ADMIN_BASE_URL",
		"stripe.secret_key":     "STRIPE_SECRET_KEY",
		"stripe.webhook_secret": "STRIPE_WEBHOOK_SECRET",
		"server.port":           "PORT",
		"logger.level":          "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required")
		}
	case "pgx":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the pgx driver")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite3 or pgx")
	}

	if c.Vision.APIKey == "" {
		return fmt.Errorf("vision.api_key is required")
	}

	if c.Pricing.WordsPerPage <= 0 {
		return fmt.Errorf("pricing.words_per_page must be positive")
	}
	if c.Pricing.DefaultBaseRate <= 0 {
		return fmt.Errorf("pricing.default_base_rate must be positive")
	}
	if c.Pricing.DefaultTaxRate < 0 || c.Pricing.DefaultTaxRate > 1 {
		return fmt.Errorf("pricing.default_tax_rate must be between 0 and 1")
	}

	if c.Processing.MaxConcurrentFiles <= 0 {
		return fmt.Errorf("processing.max_concurrent_files must be positive")
	}
	if c.HITL.SLAHours <= 0 {
		return fmt.Errorf("hitl.sla_hours must be positive")
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the local backend")
		}
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend must be local or gcs")
	}

	if c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe.webhook_secret is required when stripe is configured")
	}

	return nil
}
