// Package handlers implements the HTTP surface of the reconciliation
// engine: payment initiation, the checkout return redirect, webhook
// intake, and health.
package handlers

import (
	"context"
	"log/slog"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/config"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/service"
)

// Pinger reports whether the correlation store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the services behind all endpoints.
type Handler struct {
	initiator service.Initiator
	returns   service.ReturnProcessor
	webhooks  service.WebhookProcessor
	pinger    Pinger
	cfg       *config.Config
	logger    *slog.Logger
}

// NewHandler creates a Handler with injected service dependencies.
func NewHandler(
	initiator service.Initiator,
	returns service.ReturnProcessor,
	webhooks service.WebhookProcessor,
	pinger Pinger,
	cfg *config.Config,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		initiator: initiator,
		returns:   returns,
		webhooks:  webhooks,
		pinger:    pinger,
		cfg:       cfg,
		logger:    logger,
	}
}
