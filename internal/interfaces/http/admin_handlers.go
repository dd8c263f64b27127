package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/translation-quotes/internal/application/service"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// CheckThresholdsRequest is the body of POST /api/admin/hitl/check
type CheckThresholdsRequest struct {
	QuoteID string `json:"quoteId" binding:"required"`
}

// PageQuery holds pagination query parameters
type PageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ReviewActionRequest is the body of the review action routes
type ReviewActionRequest struct {
	StaffID        string   `json:"staffId"`
	Notes          string   `json:"notes"`
	RequestPayment bool     `json:"requestPayment"`
	FileIDs        []string `json:"fileIds"`
}

// SetThresholdRequest is the body of PUT /api/admin/hitl-thresholds/:key
type SetThresholdRequest struct {
	Value  *float64 `json:"value" binding:"required"`
	Active *bool    `json:"active"`
}

// OverrideAnalysisRequest is the body of PATCH /api/admin/analyses/:id
type OverrideAnalysisRequest struct {
	StaffID             string   `json:"staffId"`
	Reason              string   `json:"reason"`
	WordCount           *int     `json:"wordCount"`
	Complexity          *string  `json:"complexity"`
	BaseRate            *float64 `json:"baseRate"`
	CertificationPrice  *float64 `json:"certificationPrice"`
	CertificationTypeID *string  `json:"certificationTypeId"`
}

// CancelOrderRequest is the body of POST /api/admin/orders/cancel
type CancelOrderRequest struct {
	OrderID      string   `json:"orderId" binding:"required"`
	StaffID      string   `json:"staffId"`
	ReasonCode   string   `json:"reasonCode"`
	ReasonNotes  string   `json:"reasonNotes"`
	RefundType   string   `json:"refundType"`
	RefundAmount *float64 `json:"refundAmount"`
	RefundMethod string   `json:"refundMethod"`
	SendEmail    bool     `json:"sendEmail"`
}

// CheckThresholds handles POST /api/admin/hitl/check
func (h *Handlers) CheckThresholds(c *gin.Context) {
	var req CheckThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quoteId is required")
		return
	}

	result, err := h.deps.Thresholds.CheckThresholds(c.Request.Context(), req.QuoteID)
	if err != nil {
		h.respondStaffError(c, "Failed to check thresholds", err, "quote_id", req.QuoteID)
		return
	}

	body := gin.H{
		"success":        true,
		"passed":         result.Passed,
		"triggerReasons": result.TriggerReasons,
	}
	if result.ReviewID != "" {
		body["reviewId"] = result.ReviewID
	}
	if result.AlreadyInHITL {
		body["alreadyInHitl"] = true
	}
	c.JSON(http.StatusOK, body)
}

// ListReviews handles GET /api/admin/hitl-reviews
func (h *Handlers) ListReviews(c *gin.Context) {
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid pagination parameters")
		return
	}
	if q.Limit <= 0 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	reviews, err := h.deps.Reviews.ListOpen(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		h.respondStaffError(c, "Failed to list reviews", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: reviews})
}

// ExportReviews handles GET /api/admin/hitl-reviews/export
func (h *Handlers) ExportReviews(c *gin.Context) {
	if h.deps.ReviewExport == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "export is not available"})
		return
	}

	now := time.Now().UTC()
	// buffered so a failure can still return JSON
	var buf bytes.Buffer
	rows, err := h.deps.ReviewExport.Export(c.Request.Context(), &buf, now)
	if err != nil {
		h.respondStaffError(c, "Failed to export reviews", err)
		return
	}

	h.logger.Info("Exported review queue", "rows", rows, "bytes", buf.Len())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="hitl-reviews-%s.xlsx"`, now.Format("20060102")))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetReview handles GET /api/admin/hitl-reviews/:id
func (h *Handlers) GetReview(c *gin.Context) {
	id := c.Param("id")
	review, err := h.deps.Reviews.GetReview(c.Request.Context(), id)
	if err != nil {
		h.respondStaffError(c, "Failed to get review", err, "review_id", id)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: review})
}

// ClaimReview handles POST /api/admin/hitl-reviews/:id/claim
func (h *Handlers) ClaimReview(c *gin.Context) {
	d, ok := h.bindDecision(c)
	if !ok {
		return
	}
	review, err := h.deps.Reviews.Claim(c.Request.Context(), d.ReviewID, d.StaffID)
	if err != nil {
		h.respondStaffError(c, "Failed to claim review", err, "review_id", d.ReviewID, "staff_id", d.StaffID)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: review})
}

// ApproveReview handles POST /api/admin/hitl-reviews/:id/approve
func (h *Handlers) ApproveReview(c *gin.Context) {
	h.decide(c, "approve", h.deps.Reviews.Approve)
}

// RejectReview handles POST /api/admin/hitl-reviews/:id/reject
func (h *Handlers) RejectReview(c *gin.Context) {
	h.decide(c, "reject", h.deps.Reviews.Reject)
}

// RequestBetterScan handles POST /api/admin/hitl-reviews/:id/request-better-scan
func (h *Handlers) RequestBetterScan(c *gin.Context) {
	h.decide(c, "request_better_scan", h.deps.Reviews.RequestBetterScan)
}

func (h *Handlers) decide(c *gin.Context, action string, fn func(context.Context, service.ReviewDecision) (*entity.HITLReview, error)) {
	d, ok := h.bindDecision(c)
	if !ok {
		return
	}
	review, err := fn(c.Request.Context(), d)
	if err != nil {
		h.respondStaffError(c, "Failed to resolve review", err,
			"action", action,
			"review_id", d.ReviewID,
			"staff_id", d.StaffID,
		)
		return
	}
	h.logger.Info("Review resolved", "action", action, "review_id", d.ReviewID, "staff_id", d.StaffID)
	c.JSON(http.StatusOK, Response{Success: true, Data: review})
}

// bindDecision reads the review id, staff id and optional body. It writes the error response itself.
func (h *Handlers) bindDecision(c *gin.Context) (service.ReviewDecision, bool) {
	var req ReviewActionRequest
	// EOF covers both an empty body and one of unknown length that turns out empty
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return service.ReviewDecision{}, false
	}

	d := service.ReviewDecision{
		ReviewID:       c.Param("id"),
		StaffID:        staffID(c, req.StaffID),
		Notes:          req.Notes,
		RequestPayment: req.RequestPayment,
		FileIDs:        req.FileIDs,
	}
	if d.StaffID == "" {
		badRequest(c, "staff id is required")
		return service.ReviewDecision{}, false
	}
	return d, true
}

// ListThresholds handles GET /api/admin/hitl-thresholds
func (h *Handlers) ListThresholds(c *gin.Context) {
	thresholds, err := h.deps.Reviews.ListThresholds(c.Request.Context())
	if err != nil {
		h.respondStaffError(c, "Failed to list thresholds", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: thresholds})
}

// SetThreshold handles PUT /api/admin/hitl-thresholds/:key
func (h *Handlers) SetThreshold(c *gin.Context) {
	key := c.Param("key")
	var req SetThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "value is required")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	if err := h.deps.Reviews.SetThreshold(c.Request.Context(), key, *req.Value, active); err != nil {
		h.respondStaffError(c, "Failed to set threshold", err, "key", key)
		return
	}

	h.logger.Info("Threshold updated", "key", key, "value", *req.Value, "active", active, "staff_id", staffID(c, ""))
	c.JSON(http.StatusOK, Response{Success: true})
}

// ListFiles handles GET /api/admin/quotes/:id/files
func (h *Handlers) ListFiles(c *gin.Context) {
	id := c.Param("id")
	files, err := h.deps.Quotes.ListFiles(c.Request.Context(), id)
	if err != nil {
		h.respondStaffError(c, "Failed to list files", err, "quote_id", id)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: files})
}

// ListAnalyses handles GET /api/admin/quotes/:id/analyses
func (h *Handlers) ListAnalyses(c *gin.Context) {
	id := c.Param("id")
	analyses, err := h.deps.Quotes.ListAnalyses(c.Request.Context(), id)
	if err != nil {
		h.respondStaffError(c, "Failed to list analyses", err, "quote_id", id)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: analyses})
}

// ListHistory handles GET /api/admin/quotes/:id/history
func (h *Handlers) ListHistory(c *gin.Context) {
	id := c.Param("id")
	history, err := h.deps.Quotes.ListHistory(c.Request.Context(), id)
	if err != nil {
		h.respondStaffError(c, "Failed to list status history", err, "quote_id", id)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// RecalculateTotals handles POST /api/admin/quotes/:id/recalculate
func (h *Handlers) RecalculateTotals(c *gin.Context) {
	id := c.Param("id")
	totals, err := h.deps.Processing.RecalculateTotals(c.Request.Context(), id)
	if err != nil {
		h.respondStaffError(c, "Failed to recalculate totals", err, "quote_id", id)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: totals})
}

// OverrideAnalysis handles PATCH /api/admin/analyses/:id
func (h *Handlers) OverrideAnalysis(c *gin.Context) {
	id := c.Param("id")
	var req OverrideAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	staff := staffID(c, req.StaffID)
	if staff == "" {
		badRequest(c, "staff id is required")
		return
	}

	quote, err := h.deps.Processing.OverrideAnalysis(c.Request.Context(), service.AnalysisOverride{
		AnalysisID:          id,
		StaffID:             staff,
		Reason:              req.Reason,
		WordCount:           req.WordCount,
		Complexity:          req.Complexity,
		BaseRate:            req.BaseRate,
		CertificationPrice:  req.CertificationPrice,
		CertificationTypeID: req.CertificationTypeID,
	})
	if err != nil {
		h.respondStaffError(c, "Failed to override analysis", err, "analysis_id", id, "staff_id", staff)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: quote})
}

// CancelOrder handles POST /api/admin/orders/cancel
func (h *Handlers) CancelOrder(c *gin.Context) {
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "orderId is required")
		return
	}

	result, err := h.deps.Cancellations.CancelOrder(c.Request.Context(), service.CancelOrderRequest{
		OrderID:      req.OrderID,
		StaffID:      staffID(c, req.StaffID),
		ReasonCode:   req.ReasonCode,
		ReasonNotes:  req.ReasonNotes,
		RefundType:   req.RefundType,
		RefundAmount: req.RefundAmount,
		RefundMethod: req.RefundMethod,
		SendEmail:    req.SendEmail,
	})
	if err != nil {
		h.respondStaffError(c, "Failed to cancel order", err, "order_id", req.OrderID)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListCancellations handles GET /api/admin/orders/:id/cancellations
func (h *Handlers) ListCancellations(c *gin.Context) {
	id := c.Param("id")
	cancellations, err := h.deps.Cancellations.ListCancellations(c.Request.Context(), id)
	if err != nil {
		h.respondStaffError(c, "Failed to list cancellations", err, "order_id", id)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: cancellations})
}
