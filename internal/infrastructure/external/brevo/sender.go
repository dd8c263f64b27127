package brevo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	brevoapi "github.com/getbrevo/brevo-go/lib"
	"go.uber.org/zap"

	"github.com/garyjia/translation-quotes/internal/application/port"
)

// DefaultBaseURL is the Brevo REST API root
const DefaultBaseURL = "https://api.brevo.com/v3"

// Config configures the Brevo transactional email client
type Config struct {
	APIKey      string
	BaseURL     string
	SenderEmail string
	SenderName  string
	Timeout     time.Duration
}

// Sender implements port.EmailSender with the Brevo SMTP API
type Sender struct {
	cfg    Config
	client *brevoapi.APIClient
	logger *zap.Logger
}

// NewSender creates a Brevo sender
func NewSender(cfg Config, logger *zap.Logger) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("brevo api key is required")
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("brevo sender email is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	apiCfg := brevoapi.NewConfiguration()
	apiCfg.BasePath = strings.TrimRight(cfg.BaseURL, "/")
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	apiCfg.AddDefaultHeader("api-key", cfg.APIKey)

	return &Sender{
		cfg:    cfg,
		client: brevoapi.NewAPIClient(apiCfg),
		logger: logger,
	}, nil
}

var _ port.EmailSender = (*Sender)(nil)

// Send posts one transactional email
func (s *Sender) Send(ctx context.Context, msg port.EmailMessage) error {
	if msg.ToEmail == "" {
		return fmt.Errorf("brevo: recipient email is required")
	}

	email := brevoapi.SendSmtpEmail{
		Sender:      &brevoapi.SendSmtpEmailSender{Email: s.cfg.SenderEmail, Name: s.cfg.SenderName},
		To:          []brevoapi.SendSmtpEmailTo{{Email: msg.ToEmail, Name: msg.ToName}},
		Subject:     msg.Subject,
		HtmlContent: msg.HTMLContent,
		TextContent: msg.TextContent,
		Tags:        msg.Tags,
	}

	start := time.Now()
	created, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		var apiErr brevoapi.GenericSwaggerError
		if errors.As(err, &apiErr) {
			body := strings.TrimSpace(string(apiErr.Body()))
			s.logger.Error("Brevo rejected email",
				zap.Int("status", statusOf(resp)),
				zap.String("body", body),
				zap.Strings("tags", msg.Tags))
			return fmt.Errorf("brevo: %s: %s", apiErr.Error(), body)
		}
		s.logger.Error("Brevo request failed", zap.Error(err), zap.Strings("tags", msg.Tags))
		return fmt.Errorf("brevo: send: %w", err)
	}

	s.logger.Info("Email accepted by Brevo",
		zap.String("message_id", created.MessageId),
		zap.Strings("tags", msg.Tags),
		zap.Duration("latency", time.Since(start)))
	return nil
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
