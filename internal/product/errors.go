package product

import "errors"

var (
	// ErrVariantMissing means a stock adjustment targeted a (size, color)
	// pair the product does not carry.
	ErrVariantMissing = errors.New("variant does not exist for product")

	// ErrStockConflict means a stock adjustment would drive stock negative.
	ErrStockConflict = errors.New("stock adjustment rejected: insufficient stock")
)
