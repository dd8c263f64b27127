package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/translation-quotes/internal/application/service"
)

// maxWebhookBytes caps the Stripe webhook body
const maxWebhookBytes = 64 << 10

// CreateQuoteRequest is the body of POST /api/quotes
type CreateQuoteRequest struct {
	EntryPoint     string `json:"entryPoint"`
	CustomerEmail  string `json:"customerEmail"`
	CustomerName   string `json:"customerName"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

// SubmitDetailsRequest is the body of PUT /api/quotes/:id/details
type SubmitDetailsRequest struct {
	CustomerEmail  string   `json:"customerEmail"`
	CustomerName   string   `json:"customerName"`
	SourceLanguage string   `json:"sourceLanguage"`
	TargetLanguage string   `json:"targetLanguage"`
	IsRush         bool     `json:"isRush"`
	DeliveryFee    *float64 `json:"deliveryFee"`
}

// ProcessQuoteRequest is the body of POST /api/quotes/process
type ProcessQuoteRequest struct {
	QuoteID string `json:"quoteId" binding:"required"`
	FileID  string `json:"fileId"`
}

// CreateQuote handles POST /api/quotes
func (h *Handlers) CreateQuote(c *gin.Context) {
	var req CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return
	}

	quote, err := h.deps.Quotes.CreateQuote(c.Request.Context(), service.CreateQuoteRequest{
		EntryPoint:     req.EntryPoint,
		CustomerEmail:  req.CustomerEmail,
		CustomerName:   req.CustomerName,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		h.respondCustomerError(c, "Failed to create quote", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: quote})
}

// GetQuote handles GET /api/quotes/:id
func (h *Handlers) GetQuote(c *gin.Context) {
	id := c.Param("id")
	quote, err := h.deps.Quotes.GetQuote(c.Request.Context(), id)
	if err != nil {
		h.respondCustomerError(c, "Failed to get quote", err, "quote_id", id)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: quote})
}

// UploadFile handles POST /api/quotes/:id/files (multipart field "file")
func (h *Handlers) UploadFile(c *gin.Context) {
	id := c.Param("id")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+(1<<20))

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "file is too large"})
			return
		}
		badRequest(c, "a file is required")
		return
	}
	if header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "file is too large"})
		return
	}

	f, err := header.Open()
	if err != nil {
		h.respondCustomerError(c, "Failed to open upload", err, "quote_id", id)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		h.respondCustomerError(c, "Failed to read upload", err, "quote_id", id)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(content)
	}

	file, err := h.deps.Quotes.AddFile(c.Request.Context(), service.UploadRequest{
		QuoteID:  id,
		FileName: header.Filename,
		MimeType: mimeType,
		Content:  content,
	})
	if err != nil {
		h.respondCustomerError(c, "Failed to add file", err, "quote_id", id, "file_name", header.Filename)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: file})
}

// SubmitDetails handles PUT /api/quotes/:id/details
func (h *Handlers) SubmitDetails(c *gin.Context) {
	id := c.Param("id")
	var req SubmitDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	quote, err := h.deps.Quotes.SubmitDetails(c.Request.Context(), id, service.QuoteDetails{
		CustomerEmail:  req.CustomerEmail,
		CustomerName:   req.CustomerName,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		IsRush:         req.IsRush,
		DeliveryFee:    req.DeliveryFee,
	})
	if err != nil {
		h.respondCustomerError(c, "Failed to submit details", err, "quote_id", id)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: quote})
}

// GetStatus handles GET /api/quotes/:id/status
func (h *Handlers) GetStatus(c *gin.Context) {
	id := c.Param("id")
	status, err := h.deps.Quotes.GetStatus(c.Request.Context(), id)
	if err != nil {
		h.respondCustomerError(c, "Failed to get quote status", err, "quote_id", id)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: status})
}

// WaitForStatus handles GET /api/quotes/:id/wait.
// It holds the request until processing finishes or the poll timeout moves the quote to review.
func (h *Handlers) WaitForStatus(c *gin.Context) {
	id := c.Param("id")
	status, err := h.deps.Poller.Wait(c.Request.Context(), id)
	if err != nil {
		if c.Request.Context().Err() != nil {
			// client went away
			c.Status(499)
			return
		}
		h.respondCustomerError(c, "Failed to wait for quote", err, "quote_id", id)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: status})
}

// AcceptQuote handles POST /api/quotes/:id/accept
func (h *Handlers) AcceptQuote(c *gin.Context) {
	id := c.Param("id")
	quote, err := h.deps.Quotes.RequestPayment(c.Request.Context(), id, "customer")
	if err != nil {
		h.respondCustomerError(c, "Failed to accept quote", err, "quote_id", id)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: quote})
}

// ProcessQuote handles POST /api/quotes/process
func (h *Handlers) ProcessQuote(c *gin.Context) {
	var req ProcessQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quoteId is required")
		return
	}

	result, err := h.deps.Processing.ProcessQuote(c.Request.Context(), req.QuoteID, req.FileID)
	if err != nil {
		h.respondCustomerError(c, "Failed to process quote", err, "quote_id", req.QuoteID, "file_id", req.FileID)
		return
	}

	c.JSON(http.StatusOK, result)
}

// StripeWebhook handles POST /api/webhooks/stripe
func (h *Handlers) StripeWebhook(c *gin.Context) {
	if h.deps.Webhooks == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "webhooks are not configured"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		badRequest(c, "unreadable body")
		return
	}

	payment, err := h.deps.Webhooks.ParsePaymentSucceeded(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Error("Rejected Stripe webhook", "error", err)
		badRequest(c, "invalid webhook")
		return
	}
	if payment == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	order, created, err := h.deps.Quotes.ConvertFromPayment(c.Request.Context(), *payment)
	if err != nil {
		status := statusFor(err)
		h.logger.Error("Failed to convert paid quote",
			"error", err,
			"status", status,
			"event_id", payment.EventID,
			"quote_id", payment.QuoteID,
		)
		if status >= http.StatusInternalServerError {
			// non-2xx makes Stripe redeliver
			c.JSON(http.StatusInternalServerError, gin.H{"received": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": true, "converted": false})
		return
	}

	h.logger.Info("Processed Stripe payment",
		"event_id", payment.EventID,
		"quote_id", payment.QuoteID,
		"order_id", order.ID,
		"created", created,
	)
	c.JSON(http.StatusOK, gin.H{"received": true, "converted": true, "orderId": order.ID})
}
