package entity

import "errors"

var (
	ErrQuoteNotFound         = errors.New("quote not found")
	ErrQuoteFileNotFound     = errors.New("quote file not found")
	ErrAnalysisNotFound      = errors.New("analysis result not found")
	ErrReviewNotFound        = errors.New("hitl review not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderAlreadyCancelled = errors.New("order is already cancelled")
	ErrQuoteTerminal         = errors.New("quote is in a terminal state")
	ErrReviewClosed          = errors.New("hitl review is not open")
	ErrNoFilesToProcess      = errors.New("quote has no files to process")
	ErrValidation            = errors.New("validation failed")

	// ErrPaymentGatewayUnavailable is returned when an electronic refund is requested without a configured gateway
	ErrPaymentGatewayUnavailable = errors.New("payment gateway is not configured")
)
