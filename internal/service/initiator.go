package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/config"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/repository"
)

// InitiateRequest describes one checkout initiation: which submission
// is paying, how much, and the feed context that shapes the remote call.
type InitiateRequest struct {
	SubmissionID int64
	FeedID       int64
	FormID       int64
	Email        string
	Amount       int64
	Currency     string
	FormTitle    string
	SiteURL      string
	SourceIP     string
	Meta         []models.MetaField
}

// InitiateResult carries the checkout redirect target back to the caller.
type InitiateResult struct {
	Reference   string
	CheckoutURL string
}

// InitiationService creates hosted-checkout transactions with the
// processor and seeds the correlation record that later webhook and
// return deliveries reconcile against.
type InitiationService struct {
	correlations repository.CorrelationRepository
	submissions  SubmissionStore
	gateway      GatewayFactory
	cfg          *config.PayflexiConfig
	logger       *slog.Logger
}

// NewInitiationService creates an InitiationService.
func NewInitiationService(
	correlations repository.CorrelationRepository,
	submissions SubmissionStore,
	gateway GatewayFactory,
	cfg *config.PayflexiConfig,
	logger *slog.Logger,
) *InitiationService {
	return &InitiationService{
		correlations: correlations,
		submissions:  submissions,
		gateway:      gateway,
		cfg:          cfg,
		logger:       logger,
	}
}

// Initiate registers a transaction with the processor and returns the
// checkout URL the payer should be redirected to. No correlation record
// is written unless the remote call succeeds, so a failed initiation
// can simply be retried.
func (s *InitiationService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if err := validateInitiateRequest(req); err != nil {
		return nil, err
	}

	mode := s.cfg.Mode

	// Reject re-initiation up front so we do not register a second
	// remote transaction for a submission that already has one.
	if _, err := s.correlations.FindBySubmission(ctx, mode, req.SubmissionID); err == nil {
		return nil, &ServiceError{
			Code:    ErrCodeDuplicateSubmission,
			Message: fmt.Sprintf("submission %d already has a transaction", req.SubmissionID),
		}
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: "failed to check for existing transaction",
			Err:     err,
		}
	}

	reference := newReference(req.SubmissionID)
	token := EncodeReturnToken(s.cfg.SigningSecret, req.SubmissionID, req.FeedID, req.FormID)

	intent := &models.TransactionIntent{
		Reference:    reference,
		SubmissionID: req.SubmissionID,
		FeedID:       req.FeedID,
		FormID:       req.FormID,
		Email:        req.Email,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Mode:         mode,
		CallbackURL:  s.cfg.ReturnURL(token),
		FormTitle:    req.FormTitle,
		SiteURL:      req.SiteURL,
		SourceIP:     req.SourceIP,
		Meta: append(trimMeta(req.Meta), models.MetaField{
			DisplayName:  "Plugin Name",
			VariableName: "plugin_name",
			Value:        pluginMetaName,
		}),
	}

	// Optimistic write before the remote call. If the remote call fails
	// the submission stays at processing; surfacing that inconsistency
	// beats rolling back a status the payer may already be looking at.
	if err := s.submissions.UpdatePaymentStatus(ctx, req.SubmissionID, models.PaymentStatusProcessing); err != nil {
		s.logger.Warn("failed to flag submission as processing",
			slog.Int64("submission_id", req.SubmissionID),
			slog.String("error", err.Error()),
		)
	}

	session, err := s.gateway(mode).CreateTransaction(ctx, intent)
	if err != nil {
		return nil, remoteError("failed to create transaction", err)
	}

	// The processor echoes the merchant reference; fall back to ours if
	// the echo is missing so the record always has a chain anchor.
	if session.Reference == "" {
		session.Reference = reference
	}

	rec := &models.CorrelationRecord{
		Mode:             mode,
		SubmissionID:     req.SubmissionID,
		InitialReference: session.Reference,
		LastReference:    session.Reference,
		AmountOrdered:    req.Amount,
		AmountPaid:       0,
	}

	if err := s.correlations.Create(ctx, rec); err != nil {
		if errors.Is(err, models.ErrDuplicateSubmission) {
			return nil, &ServiceError{
				Code:    ErrCodeDuplicateSubmission,
				Message: fmt.Sprintf("submission %d already has a transaction", req.SubmissionID),
				Err:     err,
			}
		}
		return nil, &ServiceError{
			Code:    ErrCodeInternalError,
			Message: "failed to store correlation record",
			Err:     err,
		}
	}

	s.logger.Info("checkout transaction created",
		slog.Int64("submission_id", req.SubmissionID),
		slog.String("reference", session.Reference),
		slog.String("mode", string(mode)),
	)

	return &InitiateResult{
		Reference:   session.Reference,
		CheckoutURL: session.CheckoutURL,
	}, nil
}

func validateInitiateRequest(req InitiateRequest) error {
	var problems []string
	if req.SubmissionID <= 0 {
		problems = append(problems, "submission id is required")
	}
	if req.Email == "" {
		problems = append(problems, "email is required")
	}
	if req.Amount <= 0 {
		problems = append(problems, "amount must be positive")
	}
	if req.Currency == "" {
		problems = append(problems, "currency is required")
	}
	if len(problems) > 0 {
		return &ServiceError{
			Code:    ErrCodeInvalidRequest,
			Message: strings.Join(problems, "; "),
		}
	}
	return nil
}

// newReference mints the merchant-side reference that anchors the
// instalment chain for a submission.
func newReference(submissionID int64) string {
	return fmt.Sprintf("gf-%d-%s", submissionID, uuid.NewString()[:8])
}

// pluginMetaName identifies this integration to the processor dashboard.
const pluginMetaName = "pyfc-gravityforms"

// trimMeta caps forwarded meta values; the processor truncates anything
// longer anyway.
const maxMetaValueLen = 500

func trimMeta(meta []models.MetaField) []models.MetaField {
	out := make([]models.MetaField, 0, len(meta))
	for _, f := range meta {
		if f.Value == "" {
			continue
		}
		if len(f.Value) > maxMetaValueLen {
			f.Value = f.Value[:maxMetaValueLen]
		}
		out = append(out, f)
	}
	return out
}

func remoteError(message string, err error) *ServiceError {
	code := ErrCodeRemoteRequestFailed
	if isProtocolError(err) {
		code = ErrCodeRemoteProtocolError
	}
	return &ServiceError{Code: code, Message: message, Err: err}
}
