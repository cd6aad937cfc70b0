// Package razorpay talks to the Razorpay orders API and checks payment signatures.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain"

	"github.com/sirupsen/logrus"
)

const service = "razorpay"

// Config carries API credentials. BaseURL defaults to the public endpoint.
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.razorpay.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder asks the gateway for an order token. amount is in minor units.
// The gateway's response body is returned unchanged for the payment widget.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (json.RawMessage, error) {
	if c.cfg.KeyID == "" || c.cfg.KeySecret == "" {
		return nil, fmt.Errorf("%s: %w", service, domain.ErrNotConfigured)
	}
	c.logger.WithFields(logrus.Fields{"amount": amount, "currency": currency, "receipt": receipt}).Info("creating gateway order")

	body, err := json.Marshal(createOrderRequest{Amount: amount, Currency: currency, Receipt: receipt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &domain.UpstreamError{Service: service, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{Service: service, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if !json.Valid(raw) {
		return nil, &domain.UpstreamError{Service: service, StatusCode: resp.StatusCode, Body: "invalid JSON response"}
	}

	c.logger.WithFields(logrus.Fields{"receipt": receipt, "status": resp.StatusCode}).Info("gateway order created")
	return json.RawMessage(raw), nil
}

// VerifyPayment checks a checkout signature with the configured key secret.
func (c *Client) VerifyPayment(orderID, paymentID, signature string) error {
	if c.cfg.KeySecret == "" {
		return fmt.Errorf("%s: %w", service, domain.ErrNotConfigured)
	}
	if !VerifySignature(c.cfg.KeySecret, orderID, paymentID, signature) {
		return domain.ErrVerification
	}
	return nil
}
