package sale

import (
	"time"

	"github.com/mvega/pos-checkout-service/internal/model"
)

type SaleCompletedEvent struct {
	EventID   string      `json:"event_id"`
	EventType string      `json:"event_type"`
	Payload   SalePayload `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type SalePayload struct {
	SaleID        string              `json:"sale_id"`
	Total         float64             `json:"total"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	InvoiceCode   *string             `json:"invoice_code"`
	Items         []SaleItemPayload   `json:"items"`
}

type SaleItemPayload struct {
	ProductID *string `json:"product_id"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
	IsReturn  bool    `json:"is_return"`
}
