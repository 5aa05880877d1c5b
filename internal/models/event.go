package models

// RemoteEvent is a typed PayFlexi transaction event, decoded and
// validated at the boundary before any business logic runs. It is
// produced from a webhook payload or a synchronous status fetch.
type RemoteEvent struct {
	// Type is the processor event name, e.g. "transaction.approved".
	Type string

	// TransactionID is the processor-side id for this transaction.
	TransactionID string

	// InitialReference anchors the instalment chain this event belongs to.
	InitialReference string

	Status   string
	Currency string

	// Amount is the (possibly revised) order total reported by the event.
	Amount int64

	// TxnAmount is the amount settled by this event alone, in the
	// currency's smallest unit. Not necessarily cumulative.
	TxnAmount int64

	// Mode is parsed from the event's domain field before any secret is
	// chosen for signature verification.
	Mode Mode

	// CreatedAt is the processor timestamp, passed through verbatim.
	CreatedAt string

	// SubmissionID is the submission id embedded in the event meta.
	// Zero when the meta did not carry one.
	SubmissionID int64
}

// EventStatusApproved is the only transaction status that moves money.
const EventStatusApproved = "approved"

// EventTransactionApproved is the only event type this integration acts on.
const EventTransactionApproved = "transaction.approved"
