// Package repository provides data access layer implementations for the
// payment reconciliation engine.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/db"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/lib/pq"
)

// CorrelationRepository defines the interface for correlation record access.
// Implementations must keep MergeEvent atomic under concurrent delivery
// of events for the same submission.
type CorrelationRepository interface {
	Create(ctx context.Context, rec *models.CorrelationRecord) error
	FindBySubmission(ctx context.Context, mode models.Mode, submissionID int64) (*models.CorrelationRecord, error)
	FindByReference(ctx context.Context, mode models.Mode, reference string) (*models.CorrelationRecord, error)
	MergeEvent(ctx context.Context, mode models.Mode, submissionID int64, eventRef string, txnAmount, orderTotal int64) (*models.CorrelationRecord, error)
	SetAmountPaid(ctx context.Context, mode models.Mode, submissionID int64, reference string, amount int64) error
	MarkFulfilled(ctx context.Context, mode models.Mode, submissionID int64) error
}

const uniqueViolation = "23505"

// correlationRepository implements CorrelationRepository on Postgres
type correlationRepository struct {
	db *db.DB
}

// NewCorrelationRepository creates a Postgres-backed CorrelationRepository
func NewCorrelationRepository(database *db.DB) CorrelationRepository {
	return &correlationRepository{db: database}
}

const correlationColumns = `
	mode, submission_id, initial_reference, last_reference,
	amount_ordered, amount_paid, fulfilled, created_at, updated_at
`

// Create inserts a new correlation record. Returns
// models.ErrDuplicateSubmission when a record already exists for the
// (mode, submission) pair.
func (r *correlationRepository) Create(ctx context.Context, rec *models.CorrelationRecord) error {
	query := `
		INSERT INTO correlation_records
			(mode, submission_id, initial_reference, last_reference, amount_ordered, amount_paid, fulfilled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.Mode,
		rec.SubmissionID,
		rec.InitialReference,
		rec.LastReference,
		rec.AmountOrdered,
		rec.AmountPaid,
		rec.Fulfilled,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return models.ErrDuplicateSubmission
	}
	if err != nil {
		return fmt.Errorf("failed to create correlation record: %w", err)
	}

	return nil
}

// FindBySubmission retrieves the record for a submission in the given mode.
func (r *correlationRepository) FindBySubmission(ctx context.Context, mode models.Mode, submissionID int64) (*models.CorrelationRecord, error) {
	query := `
		SELECT ` + correlationColumns + `
		FROM correlation_records
		WHERE mode = $1 AND submission_id = $2
	`

	return scanCorrelation(r.db.QueryRowContext(ctx, query, mode, submissionID))
}

// FindByReference resolves a record through the reference index. Both the
// initial reference (instalment chain anchor) and the last seen reference
// are matched, within a single mode namespace.
func (r *correlationRepository) FindByReference(ctx context.Context, mode models.Mode, reference string) (*models.CorrelationRecord, error) {
	query := `
		SELECT ` + correlationColumns + `
		FROM correlation_records
		WHERE mode = $1 AND (initial_reference = $2 OR last_reference = $2)
	`

	return scanCorrelation(r.db.QueryRowContext(ctx, query, mode, reference))
}

// MergeEvent folds one approved event into the record's counters as a
// single read-modify-write. The row is locked for the duration so
// concurrent deliveries for the same submission serialize.
func (r *correlationRepository) MergeEvent(ctx context.Context, mode models.Mode, submissionID int64, eventRef string, txnAmount, orderTotal int64) (*models.CorrelationRecord, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to start merge transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback error is not critical in defer
	}()

	query := `
		SELECT ` + correlationColumns + `
		FROM correlation_records
		WHERE mode = $1 AND submission_id = $2
		FOR UPDATE
	`

	rec, err := scanCorrelation(tx.QueryRowContext(ctx, query, mode, submissionID))
	if err != nil {
		return nil, err
	}

	rec.ApplyEvent(eventRef, txnAmount, orderTotal)

	update := `
		UPDATE correlation_records
		SET amount_ordered = $3,
		    amount_paid = $4,
		    last_reference = $5,
		    updated_at = NOW()
		WHERE mode = $1 AND submission_id = $2
	`

	if _, err := tx.ExecContext(ctx, update, mode, submissionID, rec.AmountOrdered, rec.AmountPaid, rec.LastReference); err != nil {
		return nil, fmt.Errorf("failed to update correlation record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit merge: %w", err)
	}

	return rec, nil
}

// SetAmountPaid overwrites the paid counter with a single authoritative
// amount, used by the synchronous return path. Tolerates being
// superseded by a later webhook merge.
func (r *correlationRepository) SetAmountPaid(ctx context.Context, mode models.Mode, submissionID int64, reference string, amount int64) error {
	query := `
		UPDATE correlation_records
		SET amount_paid = $3,
		    last_reference = $4,
		    updated_at = NOW()
		WHERE mode = $1 AND submission_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, mode, submissionID, amount, reference)
	if err != nil {
		return fmt.Errorf("failed to set amount paid: %w", err)
	}

	return requireRowAffected(result)
}

// MarkFulfilled records that the host has fulfilled the submission.
func (r *correlationRepository) MarkFulfilled(ctx context.Context, mode models.Mode, submissionID int64) error {
	query := `
		UPDATE correlation_records
		SET fulfilled = TRUE,
		    updated_at = NOW()
		WHERE mode = $1 AND submission_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, mode, submissionID)
	if err != nil {
		return fmt.Errorf("failed to mark fulfilled: %w", err)
	}

	return requireRowAffected(result)
}

func scanCorrelation(row *sql.Row) (*models.CorrelationRecord, error) {
	var rec models.CorrelationRecord
	err := row.Scan(
		&rec.Mode,
		&rec.SubmissionID,
		&rec.InitialReference,
		&rec.LastReference,
		&rec.AmountOrdered,
		&rec.AmountPaid,
		&rec.Fulfilled,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan correlation record: %w", err)
	}

	return &rec, nil
}

func requireRowAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
