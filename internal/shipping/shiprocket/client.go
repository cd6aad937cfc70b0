// Package shiprocket hands orders to the Shiprocket shipping API.
package shiprocket

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

const service = "shiprocket"

type Config struct {
	Email          string
	Password       string
	BaseURL        string
	PickupLocation string
}

// Result is the provider's response to an order submission.
type Result struct {
	Raw         json.RawMessage
	ShipmentRef string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logrus.Logger
	now        func() time.Time
}

func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://apiv2.shiprocket.in"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PickupLocation == "" {
		cfg.PickupLocation = "Primary"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}
}

// CreateOrder authenticates and submits s. Tokens are not cached: every call
// logs in again.
func (c *Client) CreateOrder(ctx context.Context, s domain.Shipment) (*Result, error) {
	if c.cfg.Email == "" || c.cfg.Password == "" {
		return nil, fmt.Errorf("%s: %w", service, domain.ErrNotConfigured)
	}

	token, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	payload := buildOrder(s, c.cfg.PickupLocation, c.now())
	c.logger.WithFields(logrus.Fields{
		"order_id":  s.OrderID,
		"sub_total": payload.SubTotal,
		"items":     len(payload.OrderItems),
	}).Info("submitting shipping order")

	raw, status, err := c.post(ctx, "/v1/external/orders/create/adhoc", token, payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &domain.UpstreamError{Service: service, StatusCode: status, Body: string(raw)}
	}

	res := &Result{Raw: json.RawMessage(raw), ShipmentRef: shipmentRef(raw)}
	c.logger.WithFields(logrus.Fields{"order_id": s.OrderID, "shipment_ref": res.ShipmentRef}).Info("shipping order created")
	return res, nil
}

func (c *Client) login(ctx context.Context) (string, error) {
	raw, status, err := c.post(ctx, "/v1/external/auth/login", "", map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.Password,
	})
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", &domain.UpstreamError{Service: service, StatusCode: status, Body: string(raw)}
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.Token == "" {
		return "", &domain.UpstreamError{Service: service, StatusCode: status, Body: "login response carried no token"}
	}
	return out.Token, nil
}

func (c *Client) post(ctx context.Context, path, token string, body interface{}) ([]byte, int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &domain.UpstreamError{Service: service, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, &domain.UpstreamError{Service: service, StatusCode: resp.StatusCode, Err: err}
	}
	return raw, resp.StatusCode, nil
}

// shipmentRef picks the provider's shipment id, falling back to its order id.
func shipmentRef(raw []byte) string {
	var out map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return ""
	}
	for _, key := range []string{"shipment_id", "order_id"} {
		switch v := out[key].(type) {
		case json.Number:
			return v.String()
		case string:
			if v != "" {
				return v
			}
		}
	}
	return ""
}
