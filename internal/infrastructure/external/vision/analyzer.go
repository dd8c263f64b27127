package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/pricing"
	"github.com/garyjia/translation-quotes/internal/infrastructure/resilience"
)

const (
	// DefaultBaseURL is the OpenAI-compatible endpoint of the Anthropic API
	DefaultBaseURL = "https://api.anthropic.com/v1/"
	DefaultModel   = "claude-sonnet-4-5"

	operationAnalyze = "vision.analyze"
	maxPriorText     = 4000
	manualEntryNote  = "Automatic analysis unavailable, manual entry required"
)

var errEmptyResponse = errors.New("no response from vision model")

// chatClient is the part of the go-openai client the analyzer uses
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options configures the vision analyzer
type Options struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxPDFPages       int
	Prompts           *PromptConfig
}

// Analyzer implements port.DocumentAnalyzer with a vision-capable chat model
type Analyzer struct {
	client    chatClient
	model     string
	timeout   time.Duration
	maxPages  int
	prompts   *PromptConfig
	limiter   *rate.Limiter
	executor  *resilience.Executor
	rasterize rasterizer
	readText  textExtractor
	logger    *zap.Logger
}

// NewAnalyzer creates an analyzer talking to an OpenAI-compatible endpoint
func NewAnalyzer(opts Options, executor *resilience.Executor, logger *zap.Logger) *Analyzer {
	cfg := openai.DefaultConfig(opts.APIKey)
	cfg.BaseURL = opts.BaseURL
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return newAnalyzer(openai.NewClientWithConfig(cfg), opts, executor, logger)
}

func newAnalyzer(client chatClient, opts Options, executor *resilience.Executor, logger *zap.Logger) *Analyzer {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxPDFPages <= 0 {
		opts.MaxPDFPages = 5
	}
	if opts.Prompts == nil {
		opts.Prompts = DefaultPrompts()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig(), logger)
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}

	return &Analyzer{
		client:    client,
		model:     opts.Model,
		timeout:   opts.Timeout,
		maxPages:  opts.MaxPDFPages,
		prompts:   opts.Prompts,
		limiter:   rate.NewLimiter(limit, 1),
		executor:  executor,
		rasterize: rasterizePDF,
		readText:  extractPDFText,
		logger:    logger,
	}
}

// Analyze sends the document to the vision model and normalizes its answer.
// Provider failures yield a degraded result with a nil error. Output that cannot be
// parsed yields a degraded result together with a *ParseError.
func (a *Analyzer) Analyze(ctx context.Context, in port.AnalysisInput) (*port.DocumentAnalysis, error) {
	log := a.logger.With(zap.String("file", in.FileName), zap.String("mime_type", in.MimeType))

	images, pageCount, priorText, err := a.prepare(in)
	if err != nil {
		log.Warn("Document cannot be sent for analysis", zap.Error(err))
		return degraded(pageCount, countWords(priorText), manualEntryNote+": "+err.Error()), nil
	}

	prompt, err := renderTemplate(a.prompts.DocumentAnalysis.UserTemplate, promptData{
		FileName:  in.FileName,
		MimeType:  in.MimeType,
		PageCount: pageCount,
		PriorText: truncate(priorText, maxPriorText),
		GroupHint: in.GroupHint,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		log.Warn("Vision call not attempted, rate limiter wait aborted", zap.Error(err))
		return degraded(pageCount, countWords(priorText), manualEntryNote), nil
	}

	content, err := a.complete(ctx, prompt, images)
	if err != nil {
		log.Error("Vision call failed", zap.Error(err), zap.Bool("circuit_open", resilience.IsCircuitOpen(err)))
		return degraded(pageCount, countWords(priorText), manualEntryNote), nil
	}

	analysis, err := parseAnalysis(content)
	if err != nil {
		log.Error("Failed to parse vision response", zap.Error(err), zap.String("content", truncate(content, 500)))
		return degraded(pageCount, countWords(priorText), "Model response could not be read"), err
	}

	if analysis.WordCount == 0 {
		analysis.WordCount = countWords(priorText)
	}
	analysis.PageCount = max(analysis.PageCount, pageCount, 1)

	log.Info("Document analyzed",
		zap.String("language", analysis.DetectedLanguage),
		zap.String("document_type", analysis.DocumentType),
		zap.Int("word_count", analysis.WordCount),
		zap.Int("page_count", analysis.PageCount),
		zap.Float64("ocr_confidence", analysis.OCRConfidence))
	return analysis, nil
}

// prepare turns the upload into data URLs for the model. PDFs are rasterized and their
// text layer is kept as context; raw PDF bytes are never sent.
func (a *Analyzer) prepare(in port.AnalysisInput) (images []string, pageCount int, priorText string, err error) {
	priorText = in.PriorText
	mime := strings.ToLower(in.MimeType)

	switch {
	case mime == "application/pdf":
		if text, textErr := a.readText(in.Content); textErr != nil {
			a.logger.Debug("No PDF text layer", zap.String("file", in.FileName), zap.Error(textErr))
		} else if text != "" && priorText == "" {
			priorText = text
		}

		pages, total, rasterErr := a.rasterize(in.Content, a.maxPages)
		if rasterErr != nil {
			return nil, total, priorText, rasterErr
		}
		for _, page := range pages {
			images = append(images, dataURL("image/jpeg", page))
		}
		return images, total, priorText, nil

	case strings.HasPrefix(mime, "image/"):
		return []string{dataURL(mime, in.Content)}, 1, priorText, nil

	default:
		return nil, 0, priorText, fmt.Errorf("unsupported file type %q", in.MimeType)
	}
}

func (a *Analyzer) complete(ctx context.Context, prompt string, images []string) (string, error) {
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}}
	for _, url := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailHigh},
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       a.model,
		MaxTokens:   a.prompts.DocumentAnalysis.MaxTokens,
		Temperature: a.prompts.DocumentAnalysis.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: a.prompts.DocumentAnalysis.System},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	}

	var content string
	err := a.executor.Execute(ctx, operationAnalyze, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		resp, err := a.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return errEmptyResponse
		}
		content = resp.Choices[0].Message.Content
		return nil
	}, classifyError)
	return content, err
}

// classifyError retries throttling, server errors and timeouts. Client errors such as a bad
// key or an oversized image are not retried and do not trip the breaker.
func classifyError(err error) resilience.Classification {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode)
	}
	if errors.Is(err, context.Canceled) {
		return resilience.Classification{}
	}
	return resilience.Classification{Retryable: true, RecordFailure: true}
}

func classifyStatus(status int) resilience.Classification {
	switch {
	case status == http.StatusTooManyRequests || status >= 500:
		return resilience.Classification{Retryable: true, RecordFailure: true}
	case status >= 400:
		return resilience.Classification{}
	default:
		return resilience.Classification{Retryable: true, RecordFailure: true}
	}
}

func dataURL(mime string, content []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// degraded is the low-confidence stand-in used when the model gave no usable answer.
// Zero confidences send the quote to human review.
func degraded(pageCount, wordCount int, note string) *port.DocumentAnalysis {
	return &port.DocumentAnalysis{
		Complexity: pricing.ComplexityMedium,
		WordCount:  wordCount,
		PageCount:  max(pageCount, 1),
		Notes:      note,
		Degraded:   true,
	}
}
