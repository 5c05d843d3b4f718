package dto

import "github.com/mvega/pos-checkout-service/internal/model"

type CreateProductInput struct {
	CategoryID  string
	SupplierID  string
	SKU         string
	Name        string
	Description string
	Variants    []UpsertVariantInput
}

type UpdateProductInput struct {
	ID          string
	CategoryID  string
	SupplierID  string
	SKU         string
	Name        string
	Description string
	IsActive    bool
}

type UpsertVariantInput struct {
	ProductID string
	Size      string
	Color     string
	Stock     int
	Price     float64
}

type RestockInput struct {
	ProductID     string
	Selector      model.VariantSelector
	QuantityAdded int
	ReferenceType string
	ReferenceID   string
}
