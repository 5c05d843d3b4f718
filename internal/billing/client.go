package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/mvega/pos-checkout-service/config"
	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"go.uber.org/zap"
)

// Client requests electronic invoice authorizations from the billing service.
type Client interface {
	RequestInvoice(ctx context.Context, req *InvoiceRequest) (*model.InvoiceAuthorization, error)
}

type InvoiceRequest struct {
	Total         float64             `json:"total"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	InvoiceType   string              `json:"invoice_type"`
	Customer      *CustomerDoc        `json:"customer,omitempty"`
}

type CustomerDoc struct {
	DocType   string `json:"doc_type"`
	DocNumber string `json:"doc_number"`
}

type invoiceResponse struct {
	AuthorizationCode string                `json:"authorization_code"`
	Expiry            time.Time             `json:"expiry"`
	AmountBreakdown   model.AmountBreakdown `json:"amount_breakdown"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type httpClient struct {
	baseURL string
	cfg     *config.BillingConfig
	client  *http.Client
	logger  logger.ZapLogger
}

func NewHTTPClient(cfg *config.BillingConfig, log logger.ZapLogger) Client {
	return &httpClient{
		baseURL: cfg.BaseURL,
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  log,
	}
}

// Breakdown splits a gross total using the configured tax rate.
func Breakdown(total, taxRate float64) model.AmountBreakdown {
	net := total / (1 + taxRate/100)
	net = math.Round(net*100) / 100
	return model.AmountBreakdown{
		Net:   net,
		Tax:   math.Round((total-net)*100) / 100,
		Total: total,
	}
}

func (c *httpClient) RequestInvoice(ctx context.Context, req *InvoiceRequest) (*model.InvoiceAuthorization, error) {
	if req.InvoiceType == "" {
		req.InvoiceType = c.cfg.DefaultInvoiceType
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	// One retry on transport errors. HTTP-level rejections are not retried:
	// the billing service has already seen the request.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying invoice request", zap.Error(lastErr))
		}

		auth, retryable, err := c.doRequest(ctx, body)
		if err == nil {
			auth.Type = req.InvoiceType
			return auth, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

func (c *httpClient) doRequest(ctx context.Context, body []byte) (*model.InvoiceAuthorization, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoices", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var errResp errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error != "" {
			return nil, false, fmt.Errorf("billing service rejected invoice: %s", errResp.Error)
		}
		return nil, false, fmt.Errorf("billing service returned status %d", resp.StatusCode)
	}

	var invResp invoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&invResp); err != nil {
		return nil, false, fmt.Errorf("failed to decode invoice response: %w", err)
	}
	if invResp.AuthorizationCode == "" {
		return nil, false, fmt.Errorf("billing service returned empty authorization code")
	}

	return &model.InvoiceAuthorization{
		Code:      invResp.AuthorizationCode,
		Expiry:    invResp.Expiry,
		Breakdown: invResp.AmountBreakdown,
	}, false, nil
}
