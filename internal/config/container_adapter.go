package config

import (
	"time"

	"github.com/garyjia/translation-quotes/internal/container"
	"github.com/garyjia/translation-quotes/internal/infrastructure/resilience"
)

// ToContainerConfig converts the file-based Config loaded by viper into a container.Config.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			DSN:             c.Database.DSN,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			RunMigrations:   c.Database.RunMigrations,
		},
		Vision: container.VisionConfig{
			APIKey:            c.Vision.APIKey,
			BaseURL:           c.Vision.BaseURL,
			Model:             c.Vision.Model,
			Timeout:           c.Vision.Timeout,
			RequestsPerMinute: c.Vision.RequestsPerMinute,
			MaxPDFPages:       c.Vision.MaxPDFPages,
			PromptsPath:       c.Vision.PromptsPath,
		},
		Pricing: container.PricingConfig{
			WordsPerPage:       c.Pricing.WordsPerPage,
			PageStep:           c.Pricing.PageStep,
			MinBillablePages:   c.Pricing.MinBillablePages,
			Multipliers:        c.Pricing.ComplexityMultipliers,
			DefaultBaseRate:    c.Pricing.DefaultBaseRate,
			CertificationPrice: c.Pricing.CertificationPrice,
			RushFee:            c.Pricing.RushFee,
			DefaultTaxRate:     c.Pricing.DefaultTaxRate,
			Currency:           c.Pricing.Currency,
		},
		Processing: container.ProcessingConfig{
			MaxConcurrentFiles: c.Processing.MaxConcurrentFiles,
			MaxFileSize:        c.Processing.MaxFileSize,
			PollInterval:       c.Processing.PollInterval,
			PollTimeout:        c.Processing.PollTimeout,
			ValidityDays:       c.Processing.QuoteValidityDays,
		},
		HITL: container.HITLConfig{
			SLA: time.Duration(c.HITL.SLAHours) * time.Hour,
		},
		Storage: container.StorageConfig{
			Backend:  c.Storage.Backend,
			LocalDir: c.Storage.Dir,
			Bucket:   c.Storage.Bucket,
			Prefix:   c.Storage.Prefix,
		},
		Email: container.EmailConfig{
			BrevoAPIKey:   c.Email.BrevoAPIKey,
			BaseURL:       c.Email.BaseURL,
			SenderEmail:   c.Email.SenderEmail,
			SenderName:    c.Email.SenderName,
			CompanyName:   c.Email.CompanyName,
			PortalBaseURL: c.Email.PortalBaseURL,
			Timeout:       c.Email.Timeout,
		},
		Lark: container.LarkConfig{
			AppID:        c.Lark.AppID,
			AppSecret:    c.Lark.AppSecret,
			ReviewChatID: c.Lark.ReviewChatID,
			AdminBaseURL: c.Lark.AdminBaseURL,
		},
		Stripe: container.StripeConfig{
			SecretKey:      c.Stripe.SecretKey,
			WebhookSecret:  c.Stripe.WebhookSecret,
			PaymentBaseURL: c.Stripe.PaymentBaseURL,
		},
		Resilience: resilience.Config{
			RetryMaxAttempts:        c.Resilience.RetryMaxAttempts,
			RetryInitialBackoff:     c.Resilience.RetryInitialBackoff,
			RetryMaxBackoff:         c.Resilience.RetryMaxBackoff,
			RetryMultiplier:         c.Resilience.RetryMultiplier,
			BreakerEnabled:          c.Resilience.BreakerEnabled,
			BreakerMinRequests:      c.Resilience.BreakerMinRequests,
			BreakerFailureRatio:     c.Resilience.BreakerFailureRatio,
			BreakerOpenTimeout:      c.Resilience.BreakerOpenTimeout,
			BreakerHalfOpenMaxCalls: c.Resilience.BreakerHalfOpenMaxCalls,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
		Worker: container.WorkerConfig{
			ExpiryInterval:  c.Processing.ExpirySweepInterval,
			ExpiryBatchSize: c.Processing.ExpiryBatchSize,
		},
	}
}
