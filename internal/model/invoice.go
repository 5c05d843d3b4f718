package model

import "time"

// AmountBreakdown splits a gross total into its net and tax components.
type AmountBreakdown struct {
	Net   float64 `json:"net"`
	Tax   float64 `json:"tax"`
	Total float64 `json:"total"`
}

// InvoiceAuthorization is the opaque authorization reference returned by the
// tax authority for an accepted electronic invoice.
type InvoiceAuthorization struct {
	Code      string          `json:"authorization_code"`
	Expiry    time.Time       `json:"expiry"`
	Type      string          `json:"invoice_type"`
	Breakdown AmountBreakdown `json:"amount_breakdown"`
}
