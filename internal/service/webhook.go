package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/events"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/payflexi"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/repository"
)

// WebhookResult is the outcome of one webhook delivery. Exactly one of
// Action or Ignored is meaningful: an approved event yields the action
// emitted to the host, everything else is acknowledged and dropped.
type WebhookResult struct {
	Action  *models.PaymentAction
	Ignored bool
	Reason  string
}

// WebhookService reconciles asynchronous payment notifications from the
// processor. This is the authoritative path: merges here override
// whatever the synchronous return path recorded.
type WebhookService struct {
	correlations repository.CorrelationRepository
	gateway      GatewayFactory
	publisher    events.Publisher
	logger       *slog.Logger
}

// NewWebhookService creates a WebhookService.
func NewWebhookService(
	correlations repository.CorrelationRepository,
	gateway GatewayFactory,
	publisher events.Publisher,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		correlations: correlations,
		gateway:      gateway,
		publisher:    publisher,
		logger:       logger,
	}
}

// HandleWebhook validates and reconciles one raw webhook delivery.
//
// The payload is parsed first because the event's own domain field
// decides which secret verifies the signature; verification still runs
// over the exact raw bytes received. Nothing is written to the store
// until the signature has checked out.
func (s *WebhookService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookResult, error) {
	event, err := payflexi.ParseEvent(rawBody)
	if err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeWebhookValidationFailed,
			Message: "failed to parse webhook payload",
			Err:     err,
		}
	}

	if !s.gateway(event.Mode).VerifySignature(rawBody, signature) {
		s.logger.Warn("webhook signature mismatch",
			slog.String("mode", string(event.Mode)),
			slog.String("event", event.Type),
		)
		return nil, &ServiceError{
			Code:    ErrCodeWebhookValidationFailed,
			Message: "webhook signature mismatch",
		}
	}

	if event.Type != models.EventTransactionApproved || event.Status != models.EventStatusApproved {
		s.logger.Info("ignoring webhook event",
			slog.String("event", event.Type),
			slog.String("status", event.Status),
		)
		return &WebhookResult{
			Ignored: true,
			Reason:  fmt.Sprintf("event %s with status %s is not actionable", event.Type, event.Status),
		}, nil
	}

	rec, err := s.resolveRecord(ctx, event)
	if err != nil {
		return nil, err
	}

	merged, err := s.correlations.MergeEvent(ctx, event.Mode, rec.SubmissionID, event.InitialReference, event.TxnAmount, event.Amount)
	if err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: "failed to merge payment event",
			Err:     err,
		}
	}

	action := &models.PaymentAction{
		// Deterministic per processor event, so re-deliveries collapse to
		// the same id on the host side.
		ID:             event.TransactionID + "_" + string(models.PaymentActionComplete),
		SubmissionID:   merged.SubmissionID,
		TransactionID:  event.TransactionID,
		Amount:         merged.AmountPaid,
		Type:           models.PaymentActionComplete,
		ReadyToFulfill: !merged.Fulfilled,
		PaymentDate:    event.CreatedAt,
		PaymentMethod:  "payflexi",
	}

	// The record is already durable; a publish failure is an operational
	// problem, not a reason to make the processor retry the delivery.
	if err := s.publisher.Publish(ctx, action); err != nil {
		s.logger.Error("failed to publish payment action",
			slog.String("action_id", action.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("webhook reconciled",
		slog.Int64("submission_id", merged.SubmissionID),
		slog.String("reference", event.InitialReference),
		slog.Int64("amount_paid", merged.AmountPaid),
		slog.Int64("amount_ordered", merged.AmountOrdered),
		slog.Bool("ready_to_fulfill", action.ReadyToFulfill),
	)

	return &WebhookResult{Action: action}, nil
}

// resolveRecord finds the correlation record an event belongs to. The
// embedded submission id wins when present; otherwise the reference
// index resolves the instalment chain.
func (s *WebhookService) resolveRecord(ctx context.Context, event *models.RemoteEvent) (*models.CorrelationRecord, error) {
	var (
		rec *models.CorrelationRecord
		err error
	)
	if event.SubmissionID > 0 {
		rec, err = s.correlations.FindBySubmission(ctx, event.Mode, event.SubmissionID)
	} else {
		rec, err = s.correlations.FindByReference(ctx, event.Mode, event.InitialReference)
	}

	if errors.Is(err, models.ErrNotFound) {
		return nil, &ServiceError{
			Code:    ErrCodeSubmissionNotFound,
			Message: "no correlation record for webhook event",
			Err:     err,
		}
	}
	if err != nil {
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: "failed to resolve correlation record",
			Err:     err,
		}
	}
	return rec, nil
}
