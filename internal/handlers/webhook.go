package handlers

import (
	"io"
	"net/http"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/payflexi"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/service"
)

// Processor deliveries are small; anything bigger is not a webhook.
const maxWebhookBody = 1 << 20

type webhookResponse struct {
	Status   string `json:"status"`
	ActionID string `json:"action_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// HandleWebhook handles POST /payflexi/webhook
//
// Status mapping: 400 tells the processor the delivery itself was bad
// (it should not retry a signature mismatch), 200 acknowledges
// everything we understood, including events we chose to ignore and
// events for submissions we no longer know, so the processor stops
// redelivering them.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, service.ErrCodeWebhookValidationFailed, "failed to read body")
		return
	}

	result, err := h.webhooks.HandleWebhook(r.Context(), body, r.Header.Get(payflexi.SignatureHeader))
	if err != nil {
		if svcErr := extractServiceError(err); svcErr != nil && svcErr.Code == service.ErrCodeSubmissionNotFound {
			h.logger.Warn("acknowledging webhook for unknown submission")
			h.writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored", Reason: "unknown submission"})
			return
		}
		h.writeServiceError(w, err)
		return
	}

	if result.Ignored {
		h.writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored", Reason: result.Reason})
		return
	}

	h.writeJSON(w, http.StatusOK, webhookResponse{Status: "processed", ActionID: result.Action.ID})
}
