package dto

import (
	"time"

	"github.com/mvega/pos-checkout-service/internal/model"
)

type SaleFilters struct {
	PaymentMethod string
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}

// FinalizeResult carries the persisted sale plus a non-fatal warning when the
// electronic invoice request failed.
type FinalizeResult struct {
	Sale    *model.SaleRecord
	Warning error
}
