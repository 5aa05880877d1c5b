package service

import (
	"context"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/payflexi"
)

// RemoteGateway is the slice of the PayFlexi client the services use.
type RemoteGateway interface {
	CreateTransaction(ctx context.Context, intent *models.TransactionIntent) (*payflexi.CheckoutSession, error)
	FetchTransaction(ctx context.Context, reference string) (*payflexi.TransactionStatus, error)
	VerifySignature(payload []byte, signature string) bool
}

// GatewayFactory resolves a RemoteGateway for a mode. Every request
// constructs its client from the resolved credential pair; no ambient
// mode state is shared between requests.
type GatewayFactory func(mode models.Mode) RemoteGateway

// SubmissionStore is the host platform boundary: the forms platform owns
// submission storage, we only read and flag payment status through it.
type SubmissionStore interface {
	Find(ctx context.Context, submissionID int64) (*models.Submission, error)
	UpdatePaymentStatus(ctx context.Context, submissionID int64, status models.PaymentStatus) error
}

// Initiator creates hosted-checkout transactions
type Initiator interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
}

// ReturnProcessor handles the synchronous browser redirect after checkout
type ReturnProcessor interface {
	HandleReturn(ctx context.Context, req ReturnRequest) (*RenderInstruction, error)
}

// WebhookProcessor reconciles asynchronous payment notifications
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookResult, error)
}

// Ensure concrete types implement interfaces
var (
	_ Initiator        = (*InitiationService)(nil)
	_ ReturnProcessor  = (*ReturnService)(nil)
	_ WebhookProcessor = (*WebhookService)(nil)
	_ RemoteGateway    = (*payflexi.Client)(nil)
)
