package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrValidation),
		errors.Is(err, entity.ErrNoFilesToProcess),
		errors.Is(err, workflow.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrQuoteNotFound),
		errors.Is(err, entity.ErrQuoteFileNotFound),
		errors.Is(err, entity.ErrAnalysisNotFound),
		errors.Is(err, entity.ErrReviewNotFound),
		errors.Is(err, entity.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrOrderAlreadyCancelled),
		errors.Is(err, entity.ErrQuoteTerminal),
		errors.Is(err, entity.ErrReviewClosed),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrGuardFailed),
		errors.Is(err, workflow.ErrStaleState):
		return http.StatusConflict
	case errors.Is(err, entity.ErrPaymentGatewayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// customerMessage is the copy shown to customers. Internal failures never leak details.
func customerMessage(err error, status int) string {
	switch status {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusNotFound:
		return "quote not found"
	case http.StatusConflict:
		return "this quote can no longer be changed"
	default:
		return "something went wrong, please try again or contact us"
	}
}

// respondCustomerError writes a generic error body for customer-facing routes
func (h *Handlers) respondCustomerError(c *gin.Context, msg string, err error, kv ...interface{}) {
	status := statusFor(err)
	h.logger.Error(msg, append(kv, "error", err, "status", status)...)
	c.JSON(status, Response{
		Success: false,
		Error:   customerMessage(err, status),
	})
}

// respondStaffError writes the underlying error for staff routes
func (h *Handlers) respondStaffError(c *gin.Context, msg string, err error, kv ...interface{}) {
	status := statusFor(err)
	h.logger.Error(msg, append(kv, "error", err, "status", status)...)
	c.JSON(status, Response{
		Success: false,
		Error:   err.Error(),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}
