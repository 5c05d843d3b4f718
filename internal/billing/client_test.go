package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mvega/pos-checkout-service/config"
	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.BillingConfig {
	return &config.BillingConfig{
		BaseURL:            baseURL,
		Timeout:            2 * time.Second,
		TaxRate:            21.0,
		DefaultInvoiceType: "C",
	}
}

func TestRequestInvoiceSuccess(t *testing.T) {
	expiry := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/invoices", r.URL.Path)

		var req InvoiceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 121000.0, req.Total)
		assert.Equal(t, "C", req.InvoiceType, "default type is filled in before sending")

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"authorization_code": "CAE-9001",
			"expiry":             expiry,
			"amount_breakdown":   Breakdown(121000, 21),
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(testConfig(srv.URL), logger.NewNop())
	auth, err := client.RequestInvoice(context.Background(), &InvoiceRequest{
		Total:         121000,
		PaymentMethod: model.PaymentCreditCard,
	})
	require.NoError(t, err)
	assert.Equal(t, "CAE-9001", auth.Code)
	assert.Equal(t, "C", auth.Type)
	assert.True(t, expiry.Equal(auth.Expiry))
	assert.Equal(t, 100000.0, auth.Breakdown.Net)
	assert.Equal(t, 21000.0, auth.Breakdown.Tax)
}

func TestRequestInvoiceRejectionIsNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid tax id"})
	}))
	defer srv.Close()

	client := NewHTTPClient(testConfig(srv.URL), logger.NewNop())
	_, err := client.RequestInvoice(context.Background(), &InvoiceRequest{Total: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid tax id")
	assert.Equal(t, 1, calls, "HTTP rejections must not be replayed")
}

func TestRequestInvoiceRetriesTransportErrorOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // every request now fails at the transport level

	client := NewHTTPClient(testConfig(srv.URL), logger.NewNop())
	_, err := client.RequestInvoice(context.Background(), &InvoiceRequest{Total: 100})
	require.Error(t, err)
}

func TestRequestInvoiceEmptyAuthorizationCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"authorization_code": ""})
	}))
	defer srv.Close()

	client := NewHTTPClient(testConfig(srv.URL), logger.NewNop())
	_, err := client.RequestInvoice(context.Background(), &InvoiceRequest{Total: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty authorization code")
}

func TestBreakdown(t *testing.T) {
	b := Breakdown(121, 21)
	assert.Equal(t, 100.0, b.Net)
	assert.Equal(t, 21.0, b.Tax)
	assert.Equal(t, 121.0, b.Total)
}
