package handlers

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status     string `json:"status"`
	WebhookURL string `json:"webhook_url"`
}

// GetHealth handles GET /health
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pinger.Ping(pingCtx); err != nil {
		h.logger.Error("health check failed: store unreachable", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unhealthy",
		})
		return
	}

	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:     "healthy",
		WebhookURL: h.cfg.Payflexi.WebhookURL(0),
	})
}
