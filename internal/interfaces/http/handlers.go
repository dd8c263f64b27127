package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/translation-quotes/internal/domain/pricing"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// staffHeader carries the acting staff member on admin routes
const staffHeader = "X-Staff-ID"

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps           Dependencies
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		deps:           deps,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready      bool        `json:"ready"`
	Components interface{} `json:"components,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   Version,
	})
}

// ReadinessCheck handles GET /ready
func (h *Handlers) ReadinessCheck(c *gin.Context) {
	if h.deps.Readiness == nil {
		c.JSON(http.StatusOK, ReadinessResponse{Ready: true})
		return
	}

	ready, detail := h.deps.Readiness(c.Request.Context())
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, ReadinessResponse{Ready: ready, Components: detail})
}

// CalculatePriceRequest is a single-document price preview
type CalculatePriceRequest struct {
	WordCount          int               `json:"wordCount"`
	Complexity         string            `json:"complexity"`
	BaseRate           float64           `json:"baseRate"`
	CertificationPrice float64           `json:"certificationPrice"`
	IsRush             bool              `json:"isRush"`
	RushFee            float64           `json:"rushFee"`
	DeliveryFee        float64           `json:"deliveryFee"`
	TaxRates           []pricing.TaxRate `json:"taxRates"`
}

// CalculatePrice handles POST /api/pricing/calculate
func (h *Handlers) CalculatePrice(c *gin.Context) {
	if h.deps.Calculator == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "pricing is not available"})
		return
	}

	var req CalculatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	cx := pricing.Complexity(req.Complexity)
	if req.Complexity == "" {
		cx = pricing.ComplexityMedium
	}
	switch {
	case req.WordCount < 0:
		badRequest(c, "wordCount cannot be negative")
		return
	case !cx.IsValid():
		badRequest(c, "complexity must be easy, medium or hard")
		return
	case req.BaseRate < 0, req.CertificationPrice < 0, req.RushFee < 0, req.DeliveryFee < 0:
		badRequest(c, "prices and fees cannot be negative")
		return
	}
	for _, t := range req.TaxRates {
		if t.Rate < 0 || t.Rate > 1 {
			badRequest(c, "tax rates must be between 0 and 1")
			return
		}
	}

	breakdown := h.deps.Calculator.Compute(pricing.Input{
		WordCount:          req.WordCount,
		Complexity:         cx,
		BaseRate:           req.BaseRate,
		CertificationPrice: req.CertificationPrice,
		Fees: pricing.Fees{
			IsRush:      req.IsRush,
			RushFee:     req.RushFee,
			DeliveryFee: req.DeliveryFee,
			TaxRates:    req.TaxRates,
		},
	})

	c.JSON(http.StatusOK, Response{Success: true, Data: breakdown})
}

// staffID resolves the acting staff member from the header, falling back to the body
func staffID(c *gin.Context, fromBody string) string {
	if id := c.GetHeader(staffHeader); id != "" {
		return id
	}
	return fromBody
}
