package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rahulmehra/shopkart-backend/pkg/config"
	pkgerrors "github.com/rahulmehra/shopkart-backend/pkg/errors"
	"github.com/rahulmehra/shopkart-backend/pkg/logger"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

var (
	errKeyRequired           = errors.New("payments key id and secret are required")
	errWebhookSecretRequired = errors.New("payments webhook secret is required")
)

// Gateway is the surface checkout depends on; the concrete client talks to
// the hosted payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*ProviderOrder, error)
}

// CreateOrderInput describes the provider order to open for a checkout.
// Amount is in minor currency units.
type CreateOrderInput struct {
	AmountPaise int               `json:"amount"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// ProviderOrder is the provider-side order handle the client app pays
// against.
type ProviderOrder struct {
	ID          string `json:"id"`
	AmountPaise int    `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// Client wraps the provider REST API with centralized auth and error
// mapping.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	logger        *logger.Logger
}

// NewClient validates credentials and builds the provider client.
func NewClient(ctx context.Context, cfg config.PaymentsConfig, logg *logger.Logger) (*Client, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keyID == "" || keySecret == "" {
		return nil, errKeyRequired
	}
	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       defaultBaseURL,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		logger:        logg,
	}
	if logg != nil {
		logg.Info(ctx, "payments client initialized")
	}
	return c, nil
}

// SigningSecret returns the webhook HMAC secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// CreateOrder opens a provider order for the given amount.
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*ProviderOrder, error) {
	if input.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider order amount must be positive")
	}
	if input.Currency == "" {
		input.Currency = "INR"
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode provider order")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build provider request")
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "call payment provider")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment provider returned %d", resp.StatusCode))
	}

	var order ProviderOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode provider order")
	}
	return &order, nil
}
