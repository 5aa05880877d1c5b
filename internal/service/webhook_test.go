package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/repository"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/service/mocks"
)

func approvedEventBody(txnID, initialRef string, txnAmount, amount int64, entryID int64) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "transaction.approved",
		"data": {
			"id": %q,
			"status": "approved",
			"currency": "USD",
			"domain": "test",
			"initial_reference": %q,
			"created_at": "2021-06-01T10:00:00Z",
			"amount": %d,
			"txn_amount": %d,
			"meta": {"entry_id": %d}
		}
	}`, txnID, initialRef, amount, txnAmount, entryID))
}

func seedWebhookRecord(t *testing.T, store *repository.BoltStore) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &models.CorrelationRecord{
		Mode:             models.ModeTest,
		SubmissionID:     42,
		InitialReference: "gf-42-ref",
		LastReference:    "gf-42-ref",
		AmountOrdered:    10000,
	}))
}

func newWebhookService(store *repository.BoltStore, gateway *mocks.MockRemoteGateway, publisher *mocks.MockPublisher) *WebhookService {
	return NewWebhookService(store, func(models.Mode) RemoteGateway { return gateway }, publisher, testLogger())
}

func TestWebhookService_BadSignatureMutatesNothing(t *testing.T) {
	store := testStore(t)
	gateway := mocks.NewMockRemoteGateway(t)
	publisher := mocks.NewMockPublisher(t)
	svc := newWebhookService(store, gateway, publisher)
	seedWebhookRecord(t, store)

	body := approvedEventBody("tx-1", "gf-42-ref", 10000, 10000, 42)
	gateway.On("VerifySignature", body, "bad-sig").Return(false)

	_, err := svc.HandleWebhook(context.Background(), body, "bad-sig")

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, ErrCodeWebhookValidationFailed, svcErr.Code)

	rec, err := store.FindBySubmission(context.Background(), models.ModeTest, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.AmountPaid, "unverified event must not move counters")
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestWebhookService_UndecipherablePayload(t *testing.T) {
	store := testStore(t)
	gateway := mocks.NewMockRemoteGateway(t)
	publisher := mocks.NewMockPublisher(t)
	svc := newWebhookService(store, gateway, publisher)

	tests := []struct {
		name string
		body []byte
	}{
		{name: "not json", body: []byte("<html>502</html>")},
		{name: "missing event", body: []byte(`{"data": {"domain": "test"}}`)},
		{name: "unknown domain", body: []byte(`{"event": "transaction.approved", "data": {"domain": "staging"}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.HandleWebhook(context.Background(), tt.body, "any")

			var svcErr *ServiceError
			require.True(t, errors.As(err, &svcErr))
			assert.Equal(t, ErrCodeWebhookValidationFailed, svcErr.Code)
		})
	}
}

func TestWebhookService_IgnoresInactionableEvents(t *testing.T) {
	store := testStore(t)
	gateway := mocks.NewMockRemoteGateway(t)
	publisher := mocks.NewMockPublisher(t)
	svc := newWebhookService(store, gateway, publisher)

	body := []byte(`{
		"event": "transaction.declined",
		"data": {"id": "tx-9", "status": "declined", "domain": "test", "initial_reference": "gf-42-ref"}
	}`)
	gateway.On("VerifySignature", body, "sig").Return(true)

	result, err := svc.HandleWebhook(context.Background(), body, "sig")
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Nil(t, result.Action)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestWebhookService_ApprovedEventEmitsAction(t *testing.T) {
	store := testStore(t)
	gateway := mocks.NewMockRemoteGateway(t)
	publisher := mocks.NewMockPublisher(t)
	svc := newWebhookService(store, gateway, publisher)
	seedWebhookRecord(t, store)

	body := approvedEventBody("tx-1", "gf-42-ref", 10000, 10000, 42)
	gateway.On("VerifySignature", body, "sig").Return(true)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.HandleWebhook(context.Background(), body, "sig")
	require.NoError(t, err)
	require.NotNil(t, result.Action)

	action := result.Action
	assert.Equal(t, "tx-1_complete_payment", action.ID)
	assert.Equal(t, int64(42), action.SubmissionID)
	assert.Equal(t, "tx-1", action.TransactionID)
	assert.Equal(t, int64(10000), action.Amount)
	assert.Equal(t, models.PaymentActionComplete, action.Type)
	assert.True(t, action.ReadyToFulfill)
	assert.Equal(t, "2021-06-01T10:00:00Z", action.PaymentDate)
	assert.Equal(t, "payflexi", action.PaymentMethod)
}

func TestWebhookService_RedeliveryYieldsSameActionID(t *testing.T) {
	store := testStore(t)
	gateway := mocks.NewMockRemoteGateway(t)
	publisher := mocks.NewMockPublisher(t)
	svc := newWebhookService(store, gateway, publisher)
	seedWebhookRecord(t, store)

	body := approvedEventBody("tx-1", "gf-42-ref", 10000, 10000, 42)
	gateway.On("VerifySignature", body, "sig").Return(true)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	first, err := svc.HandleWebhook(context.Background(), body, "sig")
	require.NoError(t, err)
	second, err := svc.HandleWebhook(context.Background(), body, "sig")
	require.NoError(t, err)

	assert.Equal(t, first.Action.ID, second.Action.ID, "re-delivery must collapse to one dedup key")
	assert.Equal(t, first.Action.Amount, second.Action.Amount)
}

func TestWebhookService_InstalmentSequence(t *testing.T) {
	store := testStore(t)
	gateway := mocks.NewMockRemoteGateway(t)
	publisher := mocks.NewMockPublisher(t)
	svc := newWebhookService(store, gateway, publisher)
	seedWebhookRecord(t, store)

	gateway.On("VerifySignature", mock.Anything, "sig").Return(true)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	first, err := svc.HandleWebhook(context.Background(), approvedEventBody("tx-1", "R1", 4000, 10000, 42), "sig")
	require.NoError(t, err)
	assert.Equal(t, int64(4000), first.Action.Amount)

	second, err := svc.HandleWebhook(context.Background(), approvedEventBody("tx-2", "R2", 6000, 10000, 42), "sig")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), second.Action.Amount, "instalments accumulate")
}

func TestWebhookService_FulfilledRecordNotRefulfilled(t *testing.T) {
	store := testStore(t)
	gateway := mocks.NewMockRemoteGateway(t)
	publisher := mocks.NewMockPublisher(t)
	svc := newWebhookService(store, gateway, publisher)
	seedWebhookRecord(t, store)
	require.NoError(t, store.MarkFulfilled(context.Background(), models.ModeTest, 42))

	body := approvedEventBody("tx-1", "gf-42-ref", 10000, 10000, 42)
	gateway.On("VerifySignature", body, "sig").Return(true)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.HandleWebhook(context.Background(), body, "sig")
	require.NoError(t, err)
	assert.False(t, result.Action.ReadyToFulfill, "host must not fulfil twice")
}

func TestWebhookService_ResolvesByReferenceWithoutEntryMeta(t *testing.T) {
	store := testStore(t)
	gateway := mocks.NewMockRemoteGateway(t)
	publisher := mocks.NewMockPublisher(t)
	svc := newWebhookService(store, gateway, publisher)
	seedWebhookRecord(t, store)

	// entry_id 0 means the meta did not carry a submission id; the
	// reference index must resolve the chain instead.
	body := []byte(`{
		"event": "transaction.approved",
		"data": {
			"id": "tx-1",
			"status": "approved",
			"currency": "USD",
			"domain": "test",
			"initial_reference": "gf-42-ref",
			"amount": 10000,
			"txn_amount": 10000,
			"meta": {}
		}
	}`)
	gateway.On("VerifySignature", body, "sig").Return(true)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.HandleWebhook(context.Background(), body, "sig")
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.Action.SubmissionID)
}

func TestWebhookService_UnknownSubmission(t *testing.T) {
	store := testStore(t)
	gateway := mocks.NewMockRemoteGateway(t)
	publisher := mocks.NewMockPublisher(t)
	svc := newWebhookService(store, gateway, publisher)

	body := approvedEventBody("tx-1", "gf-999-ref", 10000, 10000, 999)
	gateway.On("VerifySignature", body, "sig").Return(true)

	_, err := svc.HandleWebhook(context.Background(), body, "sig")

	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, ErrCodeSubmissionNotFound, svcErr.Code)
}

func TestWebhookService_PublishFailureDoesNotFailDelivery(t *testing.T) {
	store := testStore(t)
	gateway := mocks.NewMockRemoteGateway(t)
	publisher := mocks.NewMockPublisher(t)
	svc := newWebhookService(store, gateway, publisher)
	seedWebhookRecord(t, store)

	body := approvedEventBody("tx-1", "gf-42-ref", 10000, 10000, 42)
	gateway.On("VerifySignature", body, "sig").Return(true)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	result, err := svc.HandleWebhook(context.Background(), body, "sig")
	require.NoError(t, err, "the record is durable; publish failure is operational")
	require.NotNil(t, result.Action)

	rec, err := store.FindBySubmission(context.Background(), models.ModeTest, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), rec.AmountPaid)
}
