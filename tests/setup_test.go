//nolint:errcheck // unchecked errors are acceptable in test files
package tests

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/config"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/events"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/handlers"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/host"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/repository"
)

const (
	testSecretKey     = "sk_test_integration"
	testSigningSecret = "signing-secret-integration"
)

// fakeProcessor stands in for the PayFlexi API: it echoes created
// transactions and serves status fetches from a scriptable table.
type fakeProcessor struct {
	mu           sync.Mutex
	createCalls  int
	transactions map[string]map[string]any
}

func (p *fakeProcessor) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodPost && r.URL.Path == "/merchants/transactions/" {
			p.createCalls++
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			ref, _ := body["reference"].(string)
			json.NewEncoder(w).Encode(map[string]any{
				"errors":       false,
				"reference":    ref,
				"checkout_url": "https://checkout.payflexi.test/" + ref,
			})
			return
		}

		if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/merchants/transactions/") {
			ref := strings.TrimPrefix(r.URL.Path, "/merchants/transactions/")
			data, ok := p.transactions[ref]
			if !ok {
				json.NewEncoder(w).Encode(map[string]any{
					"errors":  true,
					"message": "transaction not found",
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"errors": false, "data": data})
			return
		}

		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":true,"message":"no such endpoint"}`))
	})
}

func (p *fakeProcessor) setTransaction(ref string, data map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transactions[ref] = data
}

func (p *fakeProcessor) creates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createCalls
}

// fakeHost stands in for the forms platform's entries API.
type fakeHost struct {
	mu          sync.Mutex
	submissions map[int64]map[string]any
	statuses    map[int64]string
}

func (h *fakeHost) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()

		var id int64
		if r.Method == http.MethodGet {
			fmt.Sscanf(r.URL.Path, "/entries/%d", &id)
			sub, ok := h.submissions[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(sub)
			return
		}

		if r.Method == http.MethodPatch {
			fmt.Sscanf(r.URL.Path, "/entries/%d/payment", &id)
			if _, ok := h.submissions[id]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			h.statuses[id] = body["payment_status"]
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func (h *fakeHost) addSubmission(id int64, spam bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.submissions[id] = map[string]any{
		"id":         id,
		"form_id":    3,
		"currency":   "USD",
		"source_url": "https://forms.example.com/register",
		"is_spam":    spam,
	}
}

func (h *fakeHost) status(id int64) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statuses[id]
}

// TestServer wires the full router against a bolt store and fakes for
// both remote boundaries.
type TestServer struct {
	Server    *httptest.Server
	Store     *repository.BoltStore
	Processor *fakeProcessor
	Host      *fakeHost
	t         *testing.T
}

func SetupTest(t *testing.T) *TestServer {
	t.Helper()

	processor := &fakeProcessor{transactions: map[string]map[string]any{}}
	processorServer := httptest.NewServer(processor.handler())
	t.Cleanup(processorServer.Close)

	hostFake := &fakeHost{submissions: map[int64]map[string]any{}, statuses: map[int64]string{}}
	hostServer := httptest.NewServer(hostFake.handler())
	t.Cleanup(hostServer.Close)

	store, err := repository.OpenBolt(filepath.Join(t.TempDir(), "integration.db"))
	require.NoError(t, err, "failed to open bolt store")
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		Payflexi: config.PayflexiConfig{
			APIBase:       processorServer.URL,
			Gateway:       "stripe",
			Mode:          models.ModeTest,
			TestSecretKey: testSecretKey,
			SigningSecret: testSigningSecret,
			PublicURL:     "https://pay.example.com",
		},
		Host: config.HostConfig{APIBase: hostServer.URL},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := handlers.NewRouter(handlers.Dependencies{
		Correlations: store,
		Idempotency:  store,
		Submissions:  host.NewClient(cfg.Host),
		Publisher:    events.NewNoOpPublisher(logger),
		Pinger:       store,
		Config:       cfg,
		Logger:       logger,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:    server,
		Store:     store,
		Processor: processor,
		Host:      hostFake,
		t:         t,
	}
}

func (ts *TestServer) post(path, body string, headers map[string]string) *http.Response {
	ts.t.Helper()

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path, strings.NewReader(body))
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := ts.Server.Client().Do(req)
	require.NoError(ts.t, err)
	return res
}

func (ts *TestServer) get(path string) *http.Response {
	ts.t.Helper()

	res, err := ts.Server.Client().Get(ts.Server.URL + path)
	require.NoError(ts.t, err)
	return res
}

func decodeBody(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	defer res.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func signBody(body string) string {
	mac := hmac.New(sha512.New, []byte(testSecretKey))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func approvedWebhook(txnID, initialRef string, txnAmount, amount, entryID int64) string {
	return fmt.Sprintf(`{
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
	}`, txnID, initialRef, amount, txnAmount, entryID)
}
