package product

import (
	"context"

	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/product/dto"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	AddVariant(ctx context.Context, input *dto.UpsertVariantInput) (*model.Variant, error)
	ListVariants(ctx context.Context, productID string) ([]model.Variant, error)

	RestockVariant(ctx context.Context, input *dto.RestockInput) (*model.Variant, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, int, error)
}
