package workflow

// Trigger represents an event that can cause a quote status transition
type Trigger string

const (
	TriggerSubmitDetails         Trigger = "SUBMIT_DETAILS"
	TriggerStartProcessing       Trigger = "START_PROCESSING"
	TriggerCompleteProcessing    Trigger = "COMPLETE_PROCESSING"
	TriggerFlagForReview         Trigger = "FLAG_FOR_REVIEW"
	TriggerRequireReview         Trigger = "REQUIRE_REVIEW"
	TriggerStartReview           Trigger = "START_REVIEW"
	TriggerApprove               Trigger = "APPROVE"
	TriggerApproveForPayment     Trigger = "APPROVE_FOR_PAYMENT"
	TriggerRequestBetterScan     Trigger = "REQUEST_BETTER_SCAN"
	TriggerRequestRevision       Trigger = "REQUEST_REVISION"
	TriggerRequestCustomerAction Trigger = "REQUEST_CUSTOMER_ACTION"
	TriggerRequestPayment        Trigger = "REQUEST_PAYMENT"
	TriggerConvert               Trigger = "CONVERT"
	TriggerExpire                Trigger = "EXPIRE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
