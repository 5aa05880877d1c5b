// Package host is the adapter to the forms platform that owns
// submission storage. The reconciliation engine only reads submissions
// and flags their payment status; everything else stays on the host.
package host

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/config"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/service"
)

// Client implements service.SubmissionStore against the host's REST API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewClient creates a Client from host config.
func NewClient(cfg config.HostConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.APIBase, "/"),
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type submissionPayload struct {
	ID        int64  `json:"id"`
	FormID    int64  `json:"form_id"`
	Currency  string `json:"currency"`
	SourceURL string `json:"source_url"`
	Spam      bool   `json:"is_spam"`
	Fulfilled bool   `json:"is_fulfilled"`
}

// Find loads one submission by id. Returns models.ErrNotFound when the
// host no longer has it.
func (c *Client) Find(ctx context.Context, submissionID int64) (*models.Submission, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/entries/%d", c.baseURL, submissionID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.authorize(req)

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("host request failed: %w", err)
	}
	defer func() {
		_ = res.Body.Close() //nolint:errcheck // nothing useful to do on close failure
	}()

	if res.StatusCode == http.StatusNotFound {
		return nil, models.ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("host returned status %d", res.StatusCode)
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read host response: %w", err)
	}

	var payload submissionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode submission: %w", err)
	}

	return &models.Submission{
		ID:        payload.ID,
		FormID:    payload.FormID,
		Currency:  payload.Currency,
		SourceURL: payload.SourceURL,
		Spam:      payload.Spam,
		Fulfilled: payload.Fulfilled,
	}, nil
}

// UpdatePaymentStatus flags the submission's payment status on the host.
func (c *Client) UpdatePaymentStatus(ctx context.Context, submissionID int64, status models.PaymentStatus) error {
	body, err := json.Marshal(map[string]string{"payment_status": string(status)})
	if err != nil {
		return fmt.Errorf("failed to encode status update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		fmt.Sprintf("%s/entries/%d/payment", c.baseURL, submissionID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	res, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("host request failed: %w", err)
	}
	defer func() {
		_ = res.Body.Close() //nolint:errcheck // nothing useful to do on close failure
	}()

	if res.StatusCode == http.StatusNotFound {
		return models.ErrNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("host returned status %d", res.StatusCode)
	}

	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

var _ service.SubmissionStore = (*Client)(nil)
