package model

import "time"

type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
	PaymentQR         PaymentMethod = "qr"
	PaymentTransfer   PaymentMethod = "transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentQR, PaymentTransfer:
		return true
	}
	return false
}

// LineItem is one cart entry. Quick items carry no product reference and no
// selector; catalog items carry both.
type LineItem struct {
	ProductID   string           `json:"product_id"`
	Name        string           `json:"name"`
	Selection   *VariantSelector `json:"selection"`
	Quantity    int              `json:"quantity"`
	UnitPrice   float64          `json:"unit_price"`
	IsReturn    bool             `json:"is_return"`
	IsQuickItem bool             `json:"is_quick_item"`
}

type CustomerInfo struct {
	Name      string `json:"name"`
	DocType   string `json:"doc_type"`
	DocNumber string `json:"doc_number"`
}

// Session is an in-flight checkout. It lives only in memory and is destroyed
// once finalization succeeds or the cart is abandoned.
type Session struct {
	ID            string        `json:"id"`
	Items         []LineItem    `json:"items"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Customer      *CustomerInfo `json:"customer"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// SaleItem is the resolved, immutable snapshot of a line item at finalization.
// Subtotal is signed: negative for returns.
type SaleItem struct {
	ID          string  `db:"id" json:"id"`
	SaleID      string  `db:"sale_id" json:"sale_id"`
	Position    int     `db:"position" json:"position"`
	ProductID   *string `db:"product_id" json:"product_id"`
	Name        string  `db:"name" json:"name"`
	SKU         string  `db:"sku" json:"sku"`
	Size        string  `db:"size" json:"size"`
	Color       string  `db:"color" json:"color"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	Quantity    int     `db:"quantity" json:"quantity"`
	Subtotal    float64 `db:"subtotal" json:"subtotal"`
	IsReturn    bool    `db:"is_return" json:"is_return"`
	IsQuickItem bool    `db:"is_quick_item" json:"is_quick_item"`
}

type SaleRecord struct {
	ID            string        `db:"id" json:"id"`
	Items         []SaleItem    `db:"-" json:"items"`
	Total         float64       `db:"total" json:"total"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	CustomerName  *string       `db:"customer_name" json:"customer_name"`
	CustomerDoc   *string       `db:"customer_doc" json:"customer_doc"`
	InvoiceCode   *string       `db:"invoice_code" json:"invoice_code"`
	InvoiceExpiry *time.Time    `db:"invoice_expiry" json:"invoice_expiry"`
	InvoiceType   *string       `db:"invoice_type" json:"invoice_type"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}
