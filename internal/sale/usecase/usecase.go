package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mvega/pos-checkout-service/config"
	"github.com/mvega/pos-checkout-service/internal/apperrors"
	"github.com/mvega/pos-checkout-service/internal/billing"
	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/product"
	"github.com/mvega/pos-checkout-service/internal/sale"
	"github.com/mvega/pos-checkout-service/internal/sale/dto"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"go.uber.org/zap"
)

type saleUseCase struct {
	sessions  sale.SessionSource
	products  sale.ProductReader
	repo      sale.Repository
	billing   billing.Client
	locker    sale.Locker
	publisher sale.EventPublisher
	cfg       *config.BillingConfig
	logger    logger.ZapLogger
}

func NewSaleUseCase(
	sessions sale.SessionSource,
	products sale.ProductReader,
	repo sale.Repository,
	billingClient billing.Client,
	locker sale.Locker,
	publisher sale.EventPublisher,
	cfg *config.BillingConfig,
	log logger.ZapLogger,
) sale.UseCase {
	return &saleUseCase{
		sessions:  sessions,
		products:  products,
		repo:      repo,
		billing:   billingClient,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
	}
}

// resolvedItem pairs a line item with the catalog state it resolved against.
type resolvedItem struct {
	line    model.LineItem
	product *model.Product // nil for quick items
}

func (uc *saleUseCase) Finalize(ctx context.Context, sessionID string) (*dto.FinalizeResult, error) {
	session, err := uc.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if len(session.Items) == 0 {
		return nil, &apperrors.ValidationError{Field: "items", Reason: "session is empty"}
	}
	if !session.PaymentMethod.Valid() {
		return nil, &apperrors.ValidationError{Field: "payment_method", Reason: "unknown method"}
	}

	// Pass 1: dry-run validation of every item before any mutation.
	resolved, err := uc.resolveAll(ctx, session)
	if err != nil {
		return nil, err
	}

	total := sessionTotal(session)

	// The invoice request happens outside the stock locks: the total depends
	// only on the session, and holding a lock across a network call would
	// starve other finalizations. Invoicing is best-effort either way.
	var invoice *model.InvoiceAuthorization
	var warning error
	if uc.isElectronic(session.PaymentMethod) {
		invoice, warning = uc.requestInvoice(ctx, session, total)
	}

	// Lock the touched products in deterministic order, then re-validate
	// against a fresh read before applying anything.
	productIDs := distinctProductIDs(resolved)
	unlock, err := uc.lockProducts(ctx, productIDs)
	if err != nil {
		uc.logOrphanedInvoice(invoice, total, err)
		return nil, err
	}
	defer unlock()

	resolved, err = uc.resolveAll(ctx, session)
	if err != nil {
		uc.logOrphanedInvoice(invoice, total, err)
		return nil, err
	}

	record := buildRecord(session, resolved, total, invoice)
	adjustments := buildAdjustments(resolved)

	if err := uc.repo.CreateWithStock(ctx, record, adjustments); err != nil {
		if conflict := uc.asStockError(ctx, err, resolved); conflict != nil {
			uc.logOrphanedInvoice(invoice, total, conflict)
			return nil, conflict
		}
		uc.logOrphanedInvoice(invoice, total, err)
		return nil, &apperrors.PersistenceError{Err: err}
	}

	uc.sessions.Delete(sessionID)

	uc.publishCompleted(record)

	uc.logger.Info("sale finalized",
		zap.String("sale_id", record.ID),
		zap.Float64("total", record.Total),
		zap.String("payment_method", string(record.PaymentMethod)),
		zap.Bool("invoiced", invoice != nil),
	)

	return &dto.FinalizeResult{Sale: record, Warning: warning}, nil
}

// resolveAll checks every line item against the catalog: product existence,
// exact variant match on the captured selection, and stock sufficiency.
// Quick items skip resolution entirely. Stock is validated on the net
// quantity per variant, so two items on the same variant are checked
// against its stock combined, not one at a time.
func (uc *saleUseCase) resolveAll(ctx context.Context, session *model.Session) ([]resolvedItem, error) {
	cache := map[string]*model.Product{}
	resolved := make([]resolvedItem, 0, len(session.Items))

	for _, item := range session.Items {
		if item.Quantity <= 0 {
			return nil, &apperrors.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
		if item.IsQuickItem {
			resolved = append(resolved, resolvedItem{line: item})
			continue
		}
		if item.ProductID == "" {
			return nil, &apperrors.ValidationError{Field: "product_id", Reason: "required for catalog items"}
		}
		if item.Selection == nil || !item.Selection.IsComplete() {
			return nil, &apperrors.ValidationError{Field: "selection", Reason: "size and color are required for catalog items"}
		}

		p, ok := cache[item.ProductID]
		if !ok {
			var err error
			p, err = uc.products.FindByID(ctx, item.ProductID)
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, fmt.Errorf("%w: %s", apperrors.ErrProductNotFound, item.ProductID)
			}
			cache[item.ProductID] = p
		}

		if p.ResolveVariant(*item.Selection) == nil {
			return nil, &apperrors.VariantNotFoundError{ProductID: p.ID, Selection: *item.Selection}
		}

		resolved = append(resolved, resolvedItem{line: item, product: p})
	}

	for _, req := range aggregateRequirements(resolved) {
		if req.quantity <= 0 {
			// Net return on this variant; stock only goes up.
			continue
		}
		variant := cache[req.productID].ResolveVariant(req.selection)
		if variant.Stock < req.quantity {
			return nil, &apperrors.InsufficientStockError{
				ProductID: req.productID,
				Selection: req.selection,
				Requested: req.quantity,
				Available: variant.Stock,
			}
		}
	}

	return resolved, nil
}

// variantRequirement is the net stock a finalization draws from one variant:
// the sum of sale quantities minus return quantities across all line items
// that target it.
type variantRequirement struct {
	productID string
	selection model.VariantSelector
	quantity  int
}

func aggregateRequirements(resolved []resolvedItem) []variantRequirement {
	index := map[string]int{}
	reqs := []variantRequirement{}
	for _, r := range resolved {
		if r.product == nil {
			continue
		}
		key := r.product.ID + "|" + r.line.Selection.Size + "|" + r.line.Selection.Color
		i, ok := index[key]
		if !ok {
			i = len(reqs)
			index[key] = i
			reqs = append(reqs, variantRequirement{productID: r.product.ID, selection: *r.line.Selection})
		}
		if r.line.IsReturn {
			reqs[i].quantity -= r.line.Quantity
		} else {
			reqs[i].quantity += r.line.Quantity
		}
	}
	return reqs
}

// sessionTotal sums signed subtotals: returns subtract from the total.
func sessionTotal(session *model.Session) float64 {
	var total float64
	for _, item := range session.Items {
		total += signedSubtotal(item)
	}
	return total
}

func signedSubtotal(item model.LineItem) float64 {
	subtotal := item.UnitPrice * float64(item.Quantity)
	if item.IsReturn {
		return -subtotal
	}
	return subtotal
}

func (uc *saleUseCase) isElectronic(method model.PaymentMethod) bool {
	for _, m := range uc.cfg.ElectronicMethods {
		if string(method) == m {
			return true
		}
	}
	return false
}

func (uc *saleUseCase) requestInvoice(ctx context.Context, session *model.Session, total float64) (*model.InvoiceAuthorization, error) {
	req := &billing.InvoiceRequest{
		Total:         total,
		PaymentMethod: session.PaymentMethod,
		InvoiceType:   uc.cfg.DefaultInvoiceType,
	}
	if session.Customer != nil && session.Customer.DocNumber != "" {
		req.Customer = &billing.CustomerDoc{
			DocType:   session.Customer.DocType,
			DocNumber: session.Customer.DocNumber,
		}
	}

	invoice, err := uc.billing.RequestInvoice(ctx, req)
	if err != nil {
		uc.logger.Warn("invoice request failed, sale continues without authorization", zap.Error(err))
		return nil, &apperrors.BillingError{Err: err}
	}
	return invoice, nil
}

func distinctProductIDs(resolved []resolvedItem) []string {
	seen := map[string]bool{}
	ids := []string{}
	for _, r := range resolved {
		if r.product == nil || seen[r.product.ID] {
			continue
		}
		seen[r.product.ID] = true
		ids = append(ids, r.product.ID)
	}
	// Deterministic lock order so two finalizations touching the same
	// products cannot deadlock.
	sort.Strings(ids)
	return ids
}

func (uc *saleUseCase) lockProducts(ctx context.Context, productIDs []string) (func(), error) {
	if uc.locker == nil || len(productIDs) == 0 {
		return func() {}, nil
	}

	lockValue := uuid.New().String()
	held := []string{}
	release := func() {
		for _, id := range held {
			_ = uc.locker.ReleaseLock(context.Background(), "lock:stock:"+id, lockValue)
		}
	}

	for _, id := range productIDs {
		key := "lock:stock:" + id
		acquired := false
		for i := 0; i < 3; i++ {
			ok, err := uc.locker.AcquireLock(ctx, key, lockValue, 5*time.Second)
			if err != nil {
				uc.logger.Error("failed to acquire lock redis error", zap.Error(err))
			}
			if ok {
				acquired = true
				break
			}
			time.Sleep(100 * time.Millisecond)
		}
		if !acquired {
			release()
			return nil, errors.New("system busy, please try again later (lock)")
		}
		held = append(held, id)
	}

	return release, nil
}

func buildRecord(session *model.Session, resolved []resolvedItem, total float64, invoice *model.InvoiceAuthorization) *model.SaleRecord {
	record := &model.SaleRecord{
		ID:            uuid.New().String(),
		Total:         total,
		PaymentMethod: session.PaymentMethod,
		CreatedAt:     time.Now(),
	}

	if session.Customer != nil {
		if session.Customer.Name != "" {
			name := session.Customer.Name
			record.CustomerName = &name
		}
		if session.Customer.DocNumber != "" {
			doc := session.Customer.DocType + " " + session.Customer.DocNumber
			record.CustomerDoc = &doc
		}
	}

	if invoice != nil {
		code := invoice.Code
		expiry := invoice.Expiry
		invType := invoice.Type
		record.InvoiceCode = &code
		record.InvoiceExpiry = &expiry
		record.InvoiceType = &invType
	}

	for i, r := range resolved {
		item := model.SaleItem{
			ID:          uuid.New().String(),
			SaleID:      record.ID,
			Position:    i,
			Name:        r.line.Name,
			UnitPrice:   r.line.UnitPrice,
			Quantity:    r.line.Quantity,
			Subtotal:    signedSubtotal(r.line),
			IsReturn:    r.line.IsReturn,
			IsQuickItem: r.line.IsQuickItem,
		}
		if r.product != nil {
			id := r.product.ID
			item.ProductID = &id
			item.Name = r.product.Name
			item.SKU = r.product.SKU
			item.Size = r.line.Selection.Size
			item.Color = r.line.Selection.Color
		}
		record.Items = append(record.Items, item)
	}

	return record
}

// buildAdjustments emits one signed delta per catalog item, returns first.
// Applying returns ahead of sales keeps the database's per-step stock guard
// equivalent to the aggregate validation: within one cart a return can cover
// a sale of the same variant.
func buildAdjustments(resolved []resolvedItem) []sale.StockAdjustment {
	adjustments := []sale.StockAdjustment{}
	for _, r := range resolved {
		if r.product == nil || !r.line.IsReturn {
			continue
		}
		adjustments = append(adjustments, sale.StockAdjustment{
			ProductID:    r.product.ID,
			Selection:    *r.line.Selection,
			Delta:        r.line.Quantity,
			MovementType: "return",
		})
	}
	for _, r := range resolved {
		if r.product == nil || r.line.IsReturn {
			continue
		}
		adjustments = append(adjustments, sale.StockAdjustment{
			ProductID:    r.product.ID,
			Selection:    *r.line.Selection,
			Delta:        -r.line.Quantity,
			MovementType: "sale",
		})
	}
	return adjustments
}

// asStockError maps a repository stock-guard rejection back onto the
// taxonomy, re-reading each touched variant for an accurate availability
// figure. The re-check aggregates per variant the same way validation does.
func (uc *saleUseCase) asStockError(ctx context.Context, err error, resolved []resolvedItem) error {
	if !errors.Is(err, product.ErrStockConflict) && !errors.Is(err, product.ErrVariantMissing) {
		return nil
	}
	fresh := map[string]*model.Product{}
	for _, req := range aggregateRequirements(resolved) {
		if req.quantity <= 0 {
			continue
		}
		p, ok := fresh[req.productID]
		if !ok {
			var lookupErr error
			p, lookupErr = uc.products.FindByID(ctx, req.productID)
			if lookupErr != nil || p == nil {
				continue
			}
			fresh[req.productID] = p
		}
		v := p.ResolveVariant(req.selection)
		if v == nil {
			return &apperrors.VariantNotFoundError{ProductID: p.ID, Selection: req.selection}
		}
		if v.Stock < req.quantity {
			return &apperrors.InsufficientStockError{
				ProductID: p.ID,
				Selection: req.selection,
				Requested: req.quantity,
				Available: v.Stock,
			}
		}
	}
	return &apperrors.PersistenceError{Err: err}
}

// logOrphanedInvoice records an authorization that was issued for a sale
// that will never exist, so the operator can reconcile it with the tax
// authority manually.
func (uc *saleUseCase) logOrphanedInvoice(invoice *model.InvoiceAuthorization, total float64, cause error) {
	if invoice == nil {
		return
	}
	uc.logger.Error("finalization aborted after invoice authorization; manual reconciliation required",
		zap.String("authorization_code", invoice.Code),
		zap.Float64("total", total),
		zap.Error(cause),
	)
}

func (uc *saleUseCase) publishCompleted(record *model.SaleRecord) {
	if uc.publisher == nil {
		return
	}

	event := sale.SaleCompletedEvent{
		EventID:   uuid.New().String(),
		EventType: "SaleCompleted",
		Timestamp: time.Now().UTC(),
		Payload: sale.SalePayload{
			SaleID:        record.ID,
			Total:         record.Total,
			PaymentMethod: record.PaymentMethod,
			InvoiceCode:   record.InvoiceCode,
		},
	}
	for _, item := range record.Items {
		event.Payload.Items = append(event.Payload.Items, sale.SaleItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
			IsReturn:  item.IsReturn,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uc.publisher.PublishJSON(ctx, record.ID, event); err != nil {
		uc.logger.Error("failed to publish SaleCompleted event", zap.String("sale_id", record.ID), zap.Error(err))
	}
}

func (uc *saleUseCase) GetSale(ctx context.Context, id string) (*model.SaleRecord, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *saleUseCase) ListSales(ctx context.Context, filters *dto.SaleFilters) ([]model.SaleRecord, int, error) {
	return uc.repo.FindAll(ctx, filters)
}
