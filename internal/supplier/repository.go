package supplier

import (
	"context"

	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/supplier/dto"
)

type Repository interface {
	Create(ctx context.Context, supplier *model.Supplier) error
	FindByID(ctx context.Context, id string) (*model.Supplier, error)
	FindAll(ctx context.Context, filters *dto.SupplierFilters) ([]model.Supplier, int, error)
	Update(ctx context.Context, supplier *model.Supplier) error
	Delete(ctx context.Context, id string) error
}
