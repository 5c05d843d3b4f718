package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mvega/pos-checkout-service/internal/model"
	productrepo "github.com/mvega/pos-checkout-service/internal/product/repository"
	"github.com/mvega/pos-checkout-service/internal/sale"
	"github.com/mvega/pos-checkout-service/internal/sale/dto"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) CreateWithStock(ctx context.Context, record *model.SaleRecord, adjustments []sale.StockAdjustment) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Apply every stock delta. Any guard rejection aborts the whole
	// transaction, so a half-applied finalization cannot exist.
	for _, adj := range adjustments {
		_, err := productrepo.AdjustVariantStockTx(ctx, tx, adj.ProductID, adj.Selection, adj.Delta, adj.MovementType, "sale", record.ID)
		if err != nil {
			return err
		}
	}

	// 2. Insert the sale.
	insertSale := `
        INSERT INTO sales (
            id, total, payment_method, customer_name, customer_doc,
            invoice_code, invoice_expiry, invoice_type, created_at
        )
        VALUES (
            :id, :total, :payment_method, :customer_name, :customer_doc,
            :invoice_code, :invoice_expiry, :invoice_type, :created_at
        )
    `
	if _, err := tx.NamedExecContext(ctx, insertSale, record); err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	// 3. Insert the items.
	insertItem := `
        INSERT INTO sale_items (
            id, sale_id, position, product_id, name, sku, size, color,
            unit_price, quantity, subtotal, is_return, is_quick_item
        )
        VALUES (
            :id, :sale_id, :position, :product_id, :name, :sku, :size, :color,
            :unit_price, :quantity, :subtotal, :is_return, :is_quick_item
        )
    `
	for i := range record.Items {
		if _, err := tx.NamedExecContext(ctx, insertItem, &record.Items[i]); err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.SaleRecord, error) {
	var record model.SaleRecord
	err := r.DB.GetContext(ctx, &record, `SELECT * FROM sales WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	err = r.DB.SelectContext(ctx, &record.Items, `SELECT * FROM sale_items WHERE sale_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.SaleFilters) ([]model.SaleRecord, int, error) {
	var records []model.SaleRecord
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.PaymentMethod != "" {
		conditions = append(conditions, "payment_method = :payment_method")
		args["payment_method"] = f.PaymentMethod
	}
	if f.From != nil {
		conditions = append(conditions, "created_at >= :from")
		args["from"] = *f.From
	}
	if f.To != nil {
		conditions = append(conditions, "created_at <= :to")
		args["to"] = *f.To
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM sales" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM sales" + whereClause + " ORDER BY created_at DESC"
	if f.PageSize > 0 {
		offset := (f.Page - 1) * f.PageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, offset)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &records, args)
	return records, count, err
}
