package host

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/config"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
)

func TestClient_Find(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/entries/42", r.URL.Path)
		assert.Equal(t, "Bearer host-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test handler
			"id":         42,
			"form_id":    3,
			"currency":   "USD",
			"source_url": "https://forms.example.com/register",
			"is_spam":    false,
		})
	}))
	defer server.Close()

	client := NewClient(config.HostConfig{APIBase: server.URL, APIKey: "host-key"})

	sub, err := client.Find(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), sub.ID)
	assert.Equal(t, int64(3), sub.FormID)
	assert.Equal(t, "https://forms.example.com/register", sub.SourceURL)
	assert.False(t, sub.Spam)
}

func TestClient_FindNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(config.HostConfig{APIBase: server.URL})

	_, err := client.Find(context.Background(), 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestClient_UpdatePaymentStatus(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/entries/42/payment", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(config.HostConfig{APIBase: server.URL})

	err := client.UpdatePaymentStatus(context.Background(), 42, models.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, "Paid", gotBody["payment_status"])
}

func TestClient_UpdatePaymentStatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(config.HostConfig{APIBase: server.URL})

	err := client.UpdatePaymentStatus(context.Background(), 42, models.PaymentStatusPaid)
	assert.Error(t, err)
}
