package handlers

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/config"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/service"
)

type stubInitiator struct {
	fn func(ctx context.Context, req service.InitiateRequest) (*service.InitiateResult, error)
}

func (s stubInitiator) Initiate(ctx context.Context, req service.InitiateRequest) (*service.InitiateResult, error) {
	return s.fn(ctx, req)
}

type stubReturns struct {
	fn func(ctx context.Context, req service.ReturnRequest) (*service.RenderInstruction, error)
}

func (s stubReturns) HandleReturn(ctx context.Context, req service.ReturnRequest) (*service.RenderInstruction, error) {
	return s.fn(ctx, req)
}

type stubWebhooks struct {
	fn func(ctx context.Context, rawBody []byte, signature string) (*service.WebhookResult, error)
}

func (s stubWebhooks) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*service.WebhookResult, error) {
	return s.fn(ctx, rawBody, signature)
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func testConfig() *config.Config {
	return &config.Config{
		Payflexi: config.PayflexiConfig{
			Mode:          models.ModeTest,
			SigningSecret: "secret",
			PublicURL:     "https://forms.example.com",
		},
	}
}

func testHandler(t *testing.T, mutate func(h *Handler)) *Handler {
	t.Helper()

	h := NewHandler(
		stubInitiator{fn: func(context.Context, service.InitiateRequest) (*service.InitiateResult, error) {
			t.Fatal("unexpected Initiate call")
			return nil, nil
		}},
		stubReturns{fn: func(context.Context, service.ReturnRequest) (*service.RenderInstruction, error) {
			t.Fatal("unexpected HandleReturn call")
			return nil, nil
		}},
		stubWebhooks{fn: func(context.Context, []byte, string) (*service.WebhookResult, error) {
			t.Fatal("unexpected HandleWebhook call")
			return nil, nil
		}},
		stubPinger{},
		testConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	mutate(h)
	return h
}
