package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/config"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/events"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/middleware"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/payflexi"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/repository"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/service"
)

// Dependencies carries the stores and boundaries the router wires the
// services to. Correlations and Idempotency may be the same value when
// the bolt store backs both.
type Dependencies struct {
	Correlations repository.CorrelationRepository
	Idempotency  repository.IdempotencyRepository
	Submissions  service.SubmissionStore
	Publisher    events.Publisher
	Pinger       Pinger
	Config       *config.Config
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router with all routes and
// middleware.
func NewRouter(deps Dependencies) http.Handler {
	pfx := &deps.Config.Payflexi

	gateway := service.GatewayFactory(func(mode models.Mode) service.RemoteGateway {
		return payflexi.NewClient(payflexi.Config{
			SecretKey: pfx.SecretKey(mode),
			PublicKey: pfx.PublicKey(mode),
			BaseURL:   pfx.APIBase,
			Gateway:   pfx.Gateway,
			Timeout:   pfx.Timeout,
		})
	})

	initiator := service.NewInitiationService(deps.Correlations, deps.Submissions, gateway, pfx, deps.Logger)
	returns := service.NewReturnService(deps.Correlations, deps.Submissions, gateway, pfx, deps.Logger)
	webhooks := service.NewWebhookService(deps.Correlations, gateway, deps.Publisher, deps.Logger)

	handler := NewHandler(initiator, returns, webhooks, deps.Pinger, deps.Config, deps.Logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Idempotency(deps.Idempotency, deps.Logger))

	r.Post("/api/v1/payments", handler.InitiatePayment)
	r.Get("/payflexi/return", handler.HandleReturn)
	r.Post("/payflexi/webhook", handler.HandleWebhook)
	r.Get("/health", handler.GetHealth)

	return r
}
