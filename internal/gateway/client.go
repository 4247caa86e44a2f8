package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pwvale/panel-backend/pkg/config"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

const responseBodyReadLimit int64 = 64 * 1024

var errBaseURLRequired = errors.New("gateway base url is required")

// SessionRequest describes one checkout session to open with the payment
// provider. DonationID doubles as the provider-side order id so the webhook
// can route back to the right row.
type SessionRequest struct {
	DonationID  uint64
	AccountName string
	PackageName string
	Amount      decimal.Decimal
	Currency    string
}

// Session is the provider's handle for a created checkout.
type Session struct {
	Reference  string
	PaymentURL string
}

// Client opens checkout sessions with the external payment provider.
type Client interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// HTTPClient talks to the provider's REST API.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	currency   string
}

// Option configures optional client behavior.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewHTTPClient builds the provider client from configuration.
func NewHTTPClient(cfg config.GatewayConfig, opts ...Option) (*HTTPClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		currency:   cfg.Currency,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type createSessionPayload struct {
	OrderID     string `json:"order_id"`
	AccountName string `json:"account_name"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

type createSessionResponse struct {
	Reference  string `json:"reference"`
	PaymentURL string `json:"payment_url"`
}

// CreateSession opens a checkout session and returns the provider reference.
func (c *HTTPClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway client not configured")
	}
	if req.DonationID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session amount must be positive")
	}

	currency := req.Currency
	if currency == "" {
		currency = c.currency
	}

	payload := createSessionPayload{
		OrderID:     fmt.Sprintf("%d", req.DonationID),
		AccountName: req.AccountName,
		Description: req.PackageName,
		Amount:      req.Amount.StringFixed(2),
		Currency:    currency,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding session payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building session request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling payment gateway")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading gateway response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("payment gateway returned status %d", resp.StatusCode)).
			WithDetails(strings.TrimSpace(string(raw)))
	}

	var decoded createSessionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding gateway response")
	}
	if decoded.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway response missing reference")
	}

	return &Session{Reference: decoded.Reference, PaymentURL: decoded.PaymentURL}, nil
}
