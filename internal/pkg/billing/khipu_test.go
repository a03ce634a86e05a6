package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uzeed/uzeed/internal/pkg/config"
)

func newTestKhipuClient(url, key string) *KhipuClient {
	return NewKhipuClient(config.KhipuConfig{BaseURL: url + "/", APIKey: key, Timeout: 2 * time.Second})
}

func TestKhipuCreatePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))

		var req KhipuPaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 5000, req.Amount)
		assert.Equal(t, "3.0", req.NotifyAPIVersion)
		assert.Equal(t, "42", req.TransactionID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payment_id":"kp_1","payment_url":"https://khipu.com/payment/info/kp_1"}`))
	}))
	defer srv.Close()

	c := newTestKhipuClient(srv.URL, "key-1")
	p, err := c.CreatePayment(context.Background(), KhipuPaymentRequest{Amount: 5000, Currency: "CLP", TransactionID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "kp_1", p.PaymentID)
	assert.Equal(t, "https://khipu.com/payment/info/kp_1", p.PaymentURL)
}

func TestKhipuCreatePaymentRequiresAPIKey(t *testing.T) {
	c := newTestKhipuClient("http://127.0.0.1:1", "")
	_, err := c.CreatePayment(context.Background(), KhipuPaymentRequest{})
	assert.ErrorIs(t, err, ErrUpstreamProvider)
}

func TestKhipuErrorStatusIsTruncated(t *testing.T) {
	long := strings.Repeat("x", 800)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	c := newTestKhipuClient(srv.URL, "key")
	_, err := c.CreatePayment(context.Background(), KhipuPaymentRequest{Amount: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamProvider)

	var kerr *KhipuError
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, http.StatusBadRequest, kerr.Status)
	assert.Len(t, kerr.Message, maxKhipuErrorMessage+3)
}

func TestKhipuMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	c := newTestKhipuClient(srv.URL, "key")
	_, err := c.GetPayment(context.Background(), "kp_1")
	assert.ErrorIs(t, err, ErrUpstreamProvider)
}

func TestKhipuGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/kp_9", r.URL.Path)
		_, _ = w.Write([]byte(`{"payment_id":"kp_9","status":"done"}`))
	}))
	defer srv.Close()

	c := newTestKhipuClient(srv.URL, "key")
	p, err := c.GetPayment(context.Background(), "kp_9")
	require.NoError(t, err)
	assert.Equal(t, "done", p.Status)

	_, err = c.GetPayment(context.Background(), " ")
	assert.Error(t, err)
}
