package handlers

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/service"
)

type initiatePaymentRequest struct {
	SubmissionID int64              `json:"submission_id"`
	FeedID       int64              `json:"feed_id"`
	FormID       int64              `json:"form_id"`
	Email        string             `json:"email"`
	Amount       int64              `json:"amount"`
	Currency     string             `json:"currency"`
	FormTitle    string             `json:"form_title"`
	SiteURL      string             `json:"site_url"`
	Meta         []models.MetaField `json:"meta"`
}

type initiatePaymentResponse struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
}

// InitiatePayment handles POST /api/v1/payments
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, service.ErrCodeInvalidRequest, "invalid JSON body")
		return
	}

	result, err := h.initiator.Initiate(r.Context(), service.InitiateRequest{
		SubmissionID: req.SubmissionID,
		FeedID:       req.FeedID,
		FormID:       req.FormID,
		Email:        req.Email,
		Amount:       req.Amount,
		Currency:     req.Currency,
		FormTitle:    req.FormTitle,
		SiteURL:      req.SiteURL,
		SourceIP:     clientIP(r),
		Meta:         req.Meta,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, initiatePaymentResponse{
		Reference:   result.Reference,
		CheckoutURL: result.CheckoutURL,
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
