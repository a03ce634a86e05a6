package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/uzeed/uzeed/internal/pkg/config"
)

const (
	defaultKhipuBaseURL  = "https://payment-api.khipu.com"
	khipuPaymentsPath    = "/v1/payments"
	khipuNotifyAPIVer    = "3.0"
	maxKhipuErrorMessage = 500
)

type KhipuClient struct {
	APIKey  string
	BaseURL string

	HTTPClient *http.Client
}

type KhipuPaymentRequest struct {
	Amount           int    `json:"amount"`
	Currency         string `json:"currency"`
	Subject          string `json:"subject"`
	Body             string `json:"body,omitempty"`
	TransactionID    string `json:"transaction_id"`
	ReturnURL        string `json:"return_url"`
	CancelURL        string `json:"cancel_url"`
	NotifyURL        string `json:"notify_url"`
	NotifyAPIVersion string `json:"notify_api_version,omitempty"`
}

type KhipuPayment struct {
	PaymentID     string `json:"payment_id"`
	PaymentURL    string `json:"payment_url,omitempty"`
	Status        string `json:"status,omitempty"`
	Amount        int    `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// NewKhipuClient builds a client with a bounded request timeout.
func NewKhipuClient(cfg config.KhipuConfig) *KhipuClient {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultKhipuBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KhipuClient{
		APIKey:  cfg.APIKey,
		BaseURL: base,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *KhipuClient) CreatePayment(ctx context.Context, req KhipuPaymentRequest) (*KhipuPayment, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("%w: KHIPU_API_KEY is not configured", ErrUpstreamProvider)
	}
	if req.NotifyAPIVersion == "" {
		req.NotifyAPIVersion = khipuNotifyAPIVer
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var out KhipuPayment
	if err := c.do(ctx, http.MethodPost, khipuPaymentsPath, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *KhipuClient) GetPayment(ctx context.Context, paymentID string) (*KhipuPayment, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return nil, errors.New("payment id is required")
	}
	var out KhipuPayment
	if err := c.do(ctx, http.MethodGet, khipuPaymentsPath+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *KhipuClient) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamProvider, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(raw)
		if len(msg) > maxKhipuErrorMessage {
			msg = msg[:maxKhipuErrorMessage] + "..."
		}
		log.Errorf("[Billing] khipu error status=%d path=%s message=%s", resp.StatusCode, path, msg)
		return &KhipuError{Status: resp.StatusCode, Path: path, Message: msg}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrUpstreamProvider, err)
	}
	return nil
}
