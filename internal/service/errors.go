package service

import (
	"errors"
	"fmt"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/payflexi"
)

// ServiceError represents a business logic error with a code
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRemoteRequestFailed     = "remote_request_failed"
	ErrCodeRemoteProtocolError     = "remote_protocol_error"
	ErrCodeWebhookValidationFailed = "webhook_validation_failed"
	ErrCodeIntegrityCheckFailed    = "integrity_check_failed"
	ErrCodeSubmissionNotFound      = "submission_not_found"
	ErrCodeDuplicateSubmission     = "duplicate_submission"
	ErrCodeInvalidRequest          = "invalid_request"
	ErrCodeInternalError           = "internal_error"
)

func isProtocolError(err error) bool {
	return errors.Is(err, payflexi.ErrProtocol)
}
