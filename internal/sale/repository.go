package sale

import (
	"context"

	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/sale/dto"
)

// StockAdjustment is one signed variant delta a finalization must apply.
type StockAdjustment struct {
	ProductID    string
	Selection    model.VariantSelector
	Delta        int
	MovementType string
}

type Repository interface {
	// CreateWithStock persists the sale and applies every stock adjustment in
	// a single transaction. Either everything lands or nothing does.
	CreateWithStock(ctx context.Context, record *model.SaleRecord, adjustments []StockAdjustment) error

	FindByID(ctx context.Context, id string) (*model.SaleRecord, error)
	FindAll(ctx context.Context, filters *dto.SaleFilters) ([]model.SaleRecord, int, error)
}
