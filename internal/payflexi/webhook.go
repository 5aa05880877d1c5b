package payflexi

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
)

// ErrBadPayload marks a webhook body that could not be decoded into an
// event. The body is untrusted at this point; callers must still verify
// the signature before acting on the parsed event.
var ErrBadPayload = fmt.Errorf("undecipherable webhook payload")

type webhookEnvelope struct {
	Event string      `json:"event"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	ID               jsonID      `json:"id"`
	Status           string      `json:"status"`
	Currency         string      `json:"currency"`
	Domain           string      `json:"domain"`
	InitialReference string      `json:"initial_reference"`
	CreatedAt        string      `json:"created_at"`
	Amount           json.Number `json:"amount"`
	TxnAmount        json.Number `json:"txn_amount"`
	Meta             webhookMeta `json:"meta"`
}

type webhookMeta struct {
	EntryID jsonID `json:"entry_id"`
}

// jsonID accepts a processor identifier that may arrive as a JSON string
// or number.
type jsonID string

func (v *jsonID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = jsonID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = jsonID(n.String())
	return nil
}

// ParseEvent decodes a raw webhook body into a typed RemoteEvent. The
// mode comes from the payload's domain field so the caller can pick the
// matching secret before verifying the signature over the same raw bytes.
func ParseEvent(body []byte) (*models.RemoteEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if envelope.Event == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrBadPayload)
	}

	mode := models.Mode(envelope.Data.Domain)
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown domain %q", ErrBadPayload, envelope.Data.Domain)
	}

	event := &models.RemoteEvent{
		Type:             envelope.Event,
		TransactionID:    string(envelope.Data.ID),
		InitialReference: envelope.Data.InitialReference,
		Status:           envelope.Data.Status,
		Currency:         envelope.Data.Currency,
		Amount:           numberToInt64(envelope.Data.Amount),
		TxnAmount:        numberToInt64(envelope.Data.TxnAmount),
		Mode:             mode,
		CreatedAt:        envelope.Data.CreatedAt,
	}

	if entryID, err := strconv.ParseInt(string(envelope.Data.Meta.EntryID), 10, 64); err == nil {
		event.SubmissionID = entryID
	}

	return event, nil
}
