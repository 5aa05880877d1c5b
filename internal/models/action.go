package models

// PaymentActionType tells the host platform how to update its own
// payment state.
type PaymentActionType string

const (
	PaymentActionComplete PaymentActionType = "complete_payment"
	PaymentActionRefund   PaymentActionType = "refund_payment"
	PaymentActionFail     PaymentActionType = "fail_payment"
)

// PaymentAction is the normalized output contract to the host platform.
// ID doubles as the dedup key: re-delivery of the same processor event
// produces the same ID, so the host can treat repeats as no-ops.
type PaymentAction struct {
	ID             string            `json:"id"`
	SubmissionID   int64             `json:"submission_id"`
	TransactionID  string            `json:"transaction_id"`
	Amount         int64             `json:"amount"`
	Type           PaymentActionType `json:"type"`
	ReadyToFulfill bool              `json:"ready_to_fulfill"`
	PaymentDate    string            `json:"payment_date"`
	PaymentMethod  string            `json:"payment_method"`
}
