package product

import (
	"context"

	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/product/dto"
)

type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id string) error

	IsSKUUnique(ctx context.Context, sku, excludeID string) (bool, error)

	UpsertVariant(ctx context.Context, v *model.Variant) error
	ListVariants(ctx context.Context, productID string) ([]model.Variant, error)

	// AdjustVariantStock applies a signed delta to the variant matched by the
	// selector and logs the movement in the same transaction. Returns
	// ErrStockConflict when the delta would drive stock negative and
	// ErrVariantMissing when the selector matches nothing.
	AdjustVariantStock(ctx context.Context, productID string, sel model.VariantSelector, delta int, movementType, refType, refID string) (*model.Variant, error)

	ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error)
}
