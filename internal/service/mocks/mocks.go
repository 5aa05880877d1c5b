// Package mocks provides testify mocks for the service boundaries.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/payflexi"
)

// MockRemoteGateway mocks the PayFlexi client surface the services use.
type MockRemoteGateway struct {
	mock.Mock
}

// NewMockRemoteGateway creates a MockRemoteGateway whose expectations
// are asserted when the test finishes.
func NewMockRemoteGateway(t *testing.T) *MockRemoteGateway {
	m := &MockRemoteGateway{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRemoteGateway) CreateTransaction(ctx context.Context, intent *models.TransactionIntent) (*payflexi.CheckoutSession, error) {
	args := m.Called(ctx, intent)
	if session, ok := args.Get(0).(*payflexi.CheckoutSession); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRemoteGateway) FetchTransaction(ctx context.Context, reference string) (*payflexi.TransactionStatus, error) {
	args := m.Called(ctx, reference)
	if status, ok := args.Get(0).(*payflexi.TransactionStatus); ok {
		return status, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRemoteGateway) VerifySignature(payload []byte, signature string) bool {
	args := m.Called(payload, signature)
	return args.Bool(0)
}

// MockSubmissionStore mocks the host platform's submission boundary.
type MockSubmissionStore struct {
	mock.Mock
}

// NewMockSubmissionStore creates a MockSubmissionStore whose
// expectations are asserted when the test finishes.
func NewMockSubmissionStore(t *testing.T) *MockSubmissionStore {
	m := &MockSubmissionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSubmissionStore) Find(ctx context.Context, submissionID int64) (*models.Submission, error) {
	args := m.Called(ctx, submissionID)
	if sub, ok := args.Get(0).(*models.Submission); ok {
		return sub, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubmissionStore) UpdatePaymentStatus(ctx context.Context, submissionID int64, status models.PaymentStatus) error {
	args := m.Called(ctx, submissionID, status)
	return args.Error(0)
}

// MockPublisher mocks the payment action publisher.
type MockPublisher struct {
	mock.Mock
}

// NewMockPublisher creates a MockPublisher whose expectations are
// asserted when the test finishes.
func NewMockPublisher(t *testing.T) *MockPublisher {
	m := &MockPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPublisher) Publish(ctx context.Context, action *models.PaymentAction) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
