package model

import "time"

type Product struct {
	BaseModel
	CategoryID  *string   `db:"category_id" json:"category_id"` // Nullable
	SupplierID  *string   `db:"supplier_id" json:"supplier_id"` // Nullable
	SKU         string    `db:"sku" json:"sku"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	Variants    []Variant `db:"-" json:"variants"` // Loaded from product_variants
	Category    *Category `db:"-" json:"category"` // Joined data
}

// VariantSelector identifies a variant within a product by its (size, color)
// pair. The same value travels unchanged from cart entry through stock lookup;
// nothing in between renames its fields.
type VariantSelector struct {
	Size  string `db:"size" json:"size"`
	Color string `db:"color" json:"color"`
}

func (s VariantSelector) IsComplete() bool {
	return s.Size != "" && s.Color != ""
}

// Variant is one size/color combination of a product with its own stock count.
type Variant struct {
	ID        string    `db:"id" json:"id"`
	ProductID string    `db:"product_id" json:"product_id"`
	Size      string    `db:"size" json:"size"`
	Color     string    `db:"color" json:"color"`
	Stock     int       `db:"stock" json:"stock"`
	Price     float64   `db:"price" json:"price"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (v *Variant) Selector() VariantSelector {
	return VariantSelector{Size: v.Size, Color: v.Color}
}

// ResolveVariant returns the variant matching the selector exactly, or nil.
func (p *Product) ResolveVariant(sel VariantSelector) *Variant {
	for i := range p.Variants {
		if p.Variants[i].Size == sel.Size && p.Variants[i].Color == sel.Color {
			return &p.Variants[i]
		}
	}
	return nil
}

// StockMovement records one signed stock change on a variant.
type StockMovement struct {
	ID             string    `db:"id" json:"id"`
	ProductID      string    `db:"product_id" json:"product_id"`
	Size           string    `db:"size" json:"size"`
	Color          string    `db:"color" json:"color"`
	MovementType   string    `db:"movement_type" json:"movement_type"` // sale, return, restock, adjustment
	QuantityChange int       `db:"quantity_change" json:"quantity_change"`
	QuantityAfter  int       `db:"quantity_after" json:"quantity_after"`
	ReferenceType  *string   `db:"reference_type" json:"reference_type"`
	ReferenceID    *string   `db:"reference_id" json:"reference_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
