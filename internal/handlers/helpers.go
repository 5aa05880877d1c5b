package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeServiceError maps a service error to an HTTP response. Unknown
// errors become opaque 500s; the detail stays in the log.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	svcErr := extractServiceError(err)
	if svcErr == nil {
		h.logger.Error("unexpected error", "error", err)
		h.writeError(w, http.StatusInternalServerError, service.ErrCodeInternalError, "internal error")
		return
	}

	h.writeError(w, statusForCode(svcErr.Code), svcErr.Code, svcErr.Message)
}

func statusForCode(code string) int {
	switch code {
	case service.ErrCodeInvalidRequest, service.ErrCodeIntegrityCheckFailed, service.ErrCodeWebhookValidationFailed:
		return http.StatusBadRequest
	case service.ErrCodeDuplicateSubmission:
		return http.StatusConflict
	case service.ErrCodeSubmissionNotFound:
		return http.StatusNotFound
	case service.ErrCodeRemoteRequestFailed, service.ErrCodeRemoteProtocolError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func extractServiceError(err error) *service.ServiceError {
	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}
