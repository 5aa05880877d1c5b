package models

import (
	"time"
)

// Mode selects the PayFlexi credential pair and the correlation namespace.
// Live and test transactions never cross-reconcile.
type Mode string

const (
	ModeLive Mode = "live"
	ModeTest Mode = "test"
)

// Valid reports whether the mode is one of the known values.
func (m Mode) Valid() bool {
	return m == ModeLive || m == ModeTest
}

// CorrelationRecord tracks the payment lifecycle of a single submission.
// One record per (mode, submission); created when a transaction is
// initiated and mutated as approvals arrive. Counters are monotonic
// except where an event restates a known transaction.
type CorrelationRecord struct {
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
	Mode             Mode      `db:"mode"`
	InitialReference string    `db:"initial_reference"`
	LastReference    string    `db:"last_reference"`
	SubmissionID     int64     `db:"submission_id"`
	AmountOrdered    int64     `db:"amount_ordered"`
	AmountPaid       int64     `db:"amount_paid"`
	Fulfilled        bool      `db:"fulfilled"`
}

// ApplyEvent folds one approved transaction event into the record's
// counters using the instalment rules:
//
//   - an event covering the full ordered amount is authoritative for the
//     whole payment, so both counters are replaced
//   - a partial event restating the most recent known reference updates
//     that instalment in place (replace, never add)
//   - a partial event with a new reference is a fresh instalment on the
//     chain and accumulates on top of what was already paid
//
// txnAmount is the amount settled by this event alone; orderTotal is the
// (possibly revised) total the processor now expects for the order.
// Overpayment is representable: amountPaid may end up above amountOrdered.
func (r *CorrelationRecord) ApplyEvent(eventRef string, txnAmount, orderTotal int64) {
	switch {
	case txnAmount >= r.AmountOrdered:
		r.AmountOrdered = orderTotal
		r.AmountPaid = txnAmount
	case eventRef == r.LastReference:
		r.AmountOrdered = orderTotal
		r.AmountPaid = txnAmount
	default:
		r.AmountPaid += txnAmount
	}
	r.LastReference = eventRef
}
