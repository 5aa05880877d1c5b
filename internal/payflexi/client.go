// Package payflexi implements the client for the PayFlexi transaction
// API: creating hosted-checkout transactions, fetching transaction
// status, and validating webhook signatures.
package payflexi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
)

// SignatureHeader carries the HMAC of the raw webhook body.
const SignatureHeader = "X-Payflexi-Signature"

var (
	// ErrRequestFailed covers transport failures and processor responses
	// carrying the errors flag.
	ErrRequestFailed = errors.New("payflexi request failed")

	// ErrProtocol marks a processor response that could not be decoded.
	ErrProtocol = errors.New("undecipherable payflexi response")
)

// Config carries the mode-resolved credentials and transport settings
// for one client. A client is constructed per request with the resolved
// credential pair; there is no ambient mode state.
type Config struct {
	SecretKey string
	PublicKey string
	BaseURL   string
	// Gateway is the merchant's enabled payment gateway setting, sent
	// with every create request.
	Gateway string
	Timeout time.Duration
}

// Client issues authenticated requests against the PayFlexi API.
// Stateless aside from the credential pair it was constructed with.
type Client struct {
	secretKey string
	publicKey string
	baseURL   string
	gateway   string
	httpc     *http.Client
}

// NewClient creates a Client for one credential pair.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.payflexi.co/"
	}

	return &Client{
		secretKey: cfg.SecretKey,
		publicKey: cfg.PublicKey,
		baseURL:   strings.TrimRight(baseURL, "/") + "/",
		gateway:   cfg.Gateway,
		httpc:     &http.Client{Timeout: timeout},
	}
}

// CheckoutSession is the successful result of a create-transaction call.
type CheckoutSession struct {
	Reference   string
	CheckoutURL string
}

// TransactionStatus is the result of a synchronous status fetch.
type TransactionStatus struct {
	Reference        string
	InitialReference string
	Status           string
	Currency         string
	TxnAmount        int64
	Amount           int64
}

type createRequest struct {
	Email       string            `json:"email"`
	Currency    string            `json:"currency"`
	Gateway     string            `json:"gateway,omitempty"`
	Amount      int64             `json:"amount"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url"`
	Domain      string            `json:"domain"`
	Meta        createRequestMeta `json:"meta"`
}

type createRequestMeta struct {
	Title     string             `json:"title,omitempty"`
	EntryID   int64              `json:"entry_id"`
	SiteURL   string             `json:"site_url,omitempty"`
	IPAddress string             `json:"ip_address,omitempty"`
	Custom    []models.MetaField `json:"custom,omitempty"`
}

type createResponse struct {
	Errors      bool   `json:"errors"`
	Message     string `json:"message"`
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
}

type fetchResponse struct {
	Errors  bool      `json:"errors"`
	Message string    `json:"message"`
	Data    fetchData `json:"data"`
}

type fetchData struct {
	ID               jsonID      `json:"id"`
	Reference        string      `json:"reference"`
	InitialReference string      `json:"initial_reference"`
	Status           string      `json:"status"`
	Currency         string      `json:"currency"`
	Amount           json.Number `json:"amount"`
	TxnAmount        json.Number `json:"txn_amount"`
}

// CreateTransaction registers a hosted-checkout transaction with the
// processor and returns the checkout redirect target.
func (c *Client) CreateTransaction(ctx context.Context, intent *models.TransactionIntent) (*CheckoutSession, error) {
	body := createRequest{
		Email:       intent.Email,
		Currency:    intent.Currency,
		Gateway:     c.gateway,
		Amount:      intent.Amount,
		Reference:   intent.Reference,
		CallbackURL: intent.CallbackURL,
		Domain:      "global",
		Meta: createRequestMeta{
			Title:     intent.FormTitle,
			EntryID:   intent.SubmissionID,
			SiteURL:   intent.SiteURL,
			IPAddress: intent.SourceIP,
			Custom:    intent.Meta,
		},
	}

	raw, err := c.send(ctx, http.MethodPost, "merchants/transactions/", body)
	if err != nil {
		return nil, err
	}

	var resp createResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if resp.Errors {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, resp.Message)
	}
	if resp.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: response missing checkout_url", ErrProtocol)
	}

	return &CheckoutSession{
		Reference:   resp.Reference,
		CheckoutURL: resp.CheckoutURL,
	}, nil
}

// FetchTransaction looks up the authoritative status of a transaction.
func (c *Client) FetchTransaction(ctx context.Context, reference string) (*TransactionStatus, error) {
	raw, err := c.send(ctx, http.MethodGet, "merchants/transactions/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var resp fetchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if resp.Errors {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, resp.Message)
	}

	status := &TransactionStatus{
		Reference:        resp.Data.Reference,
		InitialReference: resp.Data.InitialReference,
		Status:           resp.Data.Status,
		Currency:         resp.Data.Currency,
		TxnAmount:        numberToInt64(resp.Data.TxnAmount),
		Amount:           numberToInt64(resp.Data.Amount),
	}
	if status.Reference == "" {
		status.Reference = reference
	}

	return status, nil
}

// VerifySignature reports whether signature is a valid HMAC-SHA512 of
// the raw payload under this client's secret key. Comparison is
// constant time.
func (c *Client) VerifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() {
		_ = res.Body.Close() //nolint:errcheck // nothing useful to do on close failure
	}()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: non-JSON response (status %d)", ErrProtocol, res.StatusCode)
	}

	return raw, nil
}

func numberToInt64(n json.Number) int64 {
	if n == "" {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return v
	}
	// Processor occasionally reports integer amounts with a decimal point.
	if f, err := n.Float64(); err == nil {
		return int64(f)
	}
	return 0
}
