package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/config"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/repository"
)

// ReturnRequest is the parsed browser redirect from the hosted checkout
// page. Token is the opaque integrity token minted at initiation; the
// marker fields come from the query parameters the checkout page adds.
type ReturnRequest struct {
	Token string

	// Reference is the transaction the checkout page reports as approved,
	// empty when the payer cancelled or the payment was declined.
	Reference string

	Cancelled bool
	Declined  bool
}

// RenderKind tells the handler what to show the returning payer.
type RenderKind string

const (
	// RenderNone suppresses any page change; used when the submission is
	// missing or flagged as spam, so probing the endpoint reveals nothing.
	RenderNone RenderKind = "none"

	// RenderRedirect sends the payer back to the page they submitted from.
	RenderRedirect RenderKind = "redirect"

	// RenderFailed shows the payment-failed page without mutating anything.
	RenderFailed RenderKind = "failed"

	// RenderConfirmation shows the confirmation page for a verified payment.
	RenderConfirmation RenderKind = "confirmation"
)

// RenderInstruction is the return path's outcome: what to render and,
// for confirmations, the verified payment details.
type RenderInstruction struct {
	Kind         RenderKind
	RedirectURL  string
	SubmissionID int64
	Reference    string
	AmountPaid   int64
}

// ReturnService handles the synchronous browser return from checkout.
// The webhook remains the authoritative reconciliation path; this one
// only exists so the payer sees an immediate outcome.
type ReturnService struct {
	correlations repository.CorrelationRepository
	submissions  SubmissionStore
	gateway      GatewayFactory
	cfg          *config.PayflexiConfig
	logger       *slog.Logger
}

// NewReturnService creates a ReturnService.
func NewReturnService(
	correlations repository.CorrelationRepository,
	submissions SubmissionStore,
	gateway GatewayFactory,
	cfg *config.PayflexiConfig,
	logger *slog.Logger,
) *ReturnService {
	return &ReturnService{
		correlations: correlations,
		submissions:  submissions,
		gateway:      gateway,
		cfg:          cfg,
		logger:       logger,
	}
}

// HandleReturn verifies the return token, re-checks the transaction
// with the processor, and decides what the payer should see. The token
// check fails closed: a tampered or malformed token yields an error and
// no store access happens at all.
func (s *ReturnService) HandleReturn(ctx context.Context, req ReturnRequest) (*RenderInstruction, error) {
	token, err := DecodeReturnToken(s.cfg.SigningSecret, req.Token)
	if err != nil {
		return nil, err
	}

	submission, err := s.submissions.Find(ctx, token.SubmissionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &RenderInstruction{Kind: RenderNone}, nil
		}
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: "failed to load submission",
			Err:     err,
		}
	}
	if submission.Spam {
		// Spam entries get the same silence as missing ones.
		return &RenderInstruction{Kind: RenderNone}, nil
	}

	if req.Cancelled || req.Declined {
		s.logger.Info("payer returned without completing checkout",
			slog.Int64("submission_id", token.SubmissionID),
			slog.Bool("declined", req.Declined),
		)
		return &RenderInstruction{
			Kind:         RenderRedirect,
			RedirectURL:  submission.SourceURL,
			SubmissionID: token.SubmissionID,
		}, nil
	}

	mode := s.cfg.Mode

	reference := req.Reference
	if reference == "" {
		rec, err := s.correlations.FindBySubmission(ctx, mode, token.SubmissionID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return &RenderInstruction{Kind: RenderNone}, nil
			}
			return nil, &ServiceError{
				Code:    ErrCodeInternalError,
				Message: "failed to load correlation record",
				Err:     err,
			}
		}
		reference = rec.InitialReference
	}

	status, err := s.gateway(mode).FetchTransaction(ctx, reference)
	if err != nil {
		return nil, remoteError("failed to verify transaction", err)
	}

	if status.Status != models.EventStatusApproved {
		s.logger.Info("returned transaction not approved",
			slog.Int64("submission_id", token.SubmissionID),
			slog.String("reference", reference),
			slog.String("status", status.Status),
		)
		return &RenderInstruction{
			Kind:         RenderFailed,
			SubmissionID: token.SubmissionID,
			Reference:    reference,
		}, nil
	}

	// The fetch is authoritative for this instant; a webhook merge may
	// supersede the counter later and that is fine.
	if err := s.correlations.SetAmountPaid(ctx, mode, token.SubmissionID, status.Reference, status.TxnAmount); err != nil {
		s.logger.Warn("failed to record verified payment amount",
			slog.Int64("submission_id", token.SubmissionID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.submissions.UpdatePaymentStatus(ctx, token.SubmissionID, models.PaymentStatusPaid); err != nil {
		s.logger.Warn("failed to flag submission as paid",
			slog.Int64("submission_id", token.SubmissionID),
			slog.String("error", err.Error()),
		)
	}

	return &RenderInstruction{
		Kind:         RenderConfirmation,
		SubmissionID: token.SubmissionID,
		Reference:    status.Reference,
		AmountPaid:   status.TxnAmount,
	}, nil
}
