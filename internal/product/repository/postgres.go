package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/product"
	"github.com/mvega/pos-checkout-service/internal/product/dto"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO products (id, category_id, supplier_id, sku, name, description, is_active, created_at, updated_at)
        VALUES (:id, :category_id, :supplier_id, :sku, :name, :description, :is_active, :created_at, :updated_at)
    `
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	for i := range p.Variants {
		if err := upsertVariantTx(ctx, tx, &p.Variants[i]); err != nil {
			return fmt.Errorf("failed to insert variant: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	query := `SELECT * FROM products WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	variants, err := r.ListVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Variants = variants

	return &p, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	var items []model.Product
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.CategoryID != "" {
		conditions = append(conditions, "category_id = :category_id")
		args["category_id"] = f.CategoryID
	}
	if f.SupplierID != "" {
		conditions = append(conditions, "supplier_id = :supplier_id")
		args["supplier_id"] = f.SupplierID
	}
	if f.IsActive != nil {
		conditions = append(conditions, "is_active = :is_active")
		args["is_active"] = *f.IsActive
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, "(name ILIKE :search OR sku ILIKE :search)")
		args["search"] = "%" + f.SearchQuery + "%"
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM products" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	sortBy := "created_at"
	if f.SortBy == "name" {
		sortBy = "name"
	}
	sortOrder := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		sortOrder = "ASC"
	}

	query := "SELECT * FROM products" + whereClause + fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) Update(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE products SET
            category_id = :category_id,
            supplier_id = :supplier_id,
            sku = :sku,
            name = :name,
            description = :description,
            is_active = :is_active,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.DB.NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (r *PGRepository) IsSKUUnique(ctx context.Context, sku, excludeID string) (bool, error) {
	var count int
	query := `SELECT count(*) FROM products WHERE sku = $1 AND id != $2`
	if err := r.DB.GetContext(ctx, &count, query, sku, excludeID); err != nil {
		return false, err
	}
	return count == 0, nil
}

func upsertVariantTx(ctx context.Context, tx *sqlx.Tx, v *model.Variant) error {
	query := `
        INSERT INTO product_variants (id, product_id, size, color, stock, price, created_at, updated_at)
        VALUES (:id, :product_id, :size, :color, :stock, :price, :created_at, :updated_at)
        ON CONFLICT (product_id, size, color)
        DO UPDATE SET
            stock = EXCLUDED.stock,
            price = EXCLUDED.price,
            updated_at = EXCLUDED.updated_at
    `
	_, err := tx.NamedExecContext(ctx, query, v)
	return err
}

func (r *PGRepository) UpsertVariant(ctx context.Context, v *model.Variant) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertVariantTx(ctx, tx, v); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) ListVariants(ctx context.Context, productID string) ([]model.Variant, error) {
	var variants []model.Variant
	query := `SELECT * FROM product_variants WHERE product_id = $1 ORDER BY size, color`
	err := r.DB.SelectContext(ctx, &variants, query, productID)
	return variants, err
}

func (r *PGRepository) AdjustVariantStock(ctx context.Context, productID string, sel model.VariantSelector, delta int, movementType, refType, refID string) (*model.Variant, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	v, err := AdjustVariantStockTx(ctx, tx, productID, sel, delta, movementType, refType, refID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return v, nil
}

// AdjustVariantStockTx is exported so the sale repository can apply all of a
// finalization's deltas inside one transaction.
func AdjustVariantStockTx(ctx context.Context, tx *sqlx.Tx, productID string, sel model.VariantSelector, delta int, movementType, refType, refID string) (*model.Variant, error) {
	var v model.Variant
	query := `
        UPDATE product_variants
        SET stock = stock + $4, updated_at = $5
        WHERE product_id = $1 AND size = $2 AND color = $3 AND stock + $4 >= 0
        RETURNING *
    `
	err := tx.GetContext(ctx, &v, query, productID, sel.Size, sel.Color, delta, time.Now())
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		// Distinguish a guard rejection from a missing variant.
		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM product_variants WHERE product_id = $1 AND size = $2 AND color = $3)`
		if err := tx.GetContext(ctx, &exists, check, productID, sel.Size, sel.Color); err != nil {
			return nil, err
		}
		if !exists {
			return nil, product.ErrVariantMissing
		}
		return nil, product.ErrStockConflict
	}

	movement := &model.StockMovement{
		ID:             uuid.New().String(),
		ProductID:      productID,
		Size:           sel.Size,
		Color:          sel.Color,
		MovementType:   movementType,
		QuantityChange: delta,
		QuantityAfter:  v.Stock,
		CreatedAt:      time.Now(),
	}
	if refType != "" {
		movement.ReferenceType = &refType
	}
	if refID != "" {
		movement.ReferenceID = &refID
	}

	insertLog := `
        INSERT INTO stock_movements (
            id, product_id, size, color, movement_type,
            quantity_change, quantity_after, reference_type, reference_id, created_at
        )
        VALUES (
            :id, :product_id, :size, :color, :movement_type,
            :quantity_change, :quantity_after, :reference_type, :reference_id, :created_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, insertLog, movement); err != nil {
		return nil, fmt.Errorf("failed to log movement: %w", err)
	}

	return &v, nil
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, int, error) {
	var items []model.StockMovement
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.MovementType != "" {
		conditions = append(conditions, "movement_type = :movement_type")
		args["movement_type"] = f.MovementType
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM stock_movements" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM stock_movements" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}
