package models

// PaymentStatus mirrors the host platform's payment status values for a
// submission.
type PaymentStatus string

const (
	PaymentStatusProcessing PaymentStatus = "Processing"
	PaymentStatusPaid       PaymentStatus = "Paid"
	PaymentStatusFailed     PaymentStatus = "Failed"
)

// Submission is the slice of the host platform's form submission this
// integration needs. The host owns storage and rendering; we only read
// it through the SubmissionStore boundary.
type Submission struct {
	ID        int64
	FormID    int64
	Currency  string
	SourceURL string
	Spam      bool
	Fulfilled bool
}

// MetaField is one feed-configured key/value pair forwarded to the
// processor with a transaction.
type MetaField struct {
	DisplayName  string `json:"display_name"`
	VariableName string `json:"variable_name"`
	Value        string `json:"value"`
}

// TransactionIntent is the immutable description of one create-transaction
// attempt, assembled by the initiator before the remote call.
type TransactionIntent struct {
	Reference    string
	SubmissionID int64
	FeedID       int64
	FormID       int64
	Email        string
	Amount       int64
	Currency     string
	Mode         Mode
	CallbackURL  string
	FormTitle    string
	SiteURL      string
	SourceIP     string
	Meta         []MetaField
}
