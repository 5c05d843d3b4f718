package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mvega/pos-checkout-service/config"
	"github.com/mvega/pos-checkout-service/internal/apperrors"
	"github.com/mvega/pos-checkout-service/internal/billing"
	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/product"
	"github.com/mvega/pos-checkout-service/internal/sale"
	"github.com/mvega/pos-checkout-service/internal/sale/dto"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	sessions map[string]*model.Session
	deleted  []string
}

func (f *fakeSessions) Get(id string) (*model.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessions) Delete(id string) {
	f.deleted = append(f.deleted, id)
	delete(f.sessions, id)
}

type fakeProducts struct {
	products map[string]*model.Product

	// After swapAfter lookups, later lookups of swap.ID return swap instead,
	// simulating stock changing underneath the finalization.
	swap      *model.Product
	swapAfter int
	calls     int
}

func (f *fakeProducts) FindByID(ctx context.Context, id string) (*model.Product, error) {
	f.calls++
	if f.swap != nil && f.calls > f.swapAfter && f.swap.ID == id {
		return f.swap, nil
	}
	return f.products[id], nil
}

type fakeLocker struct {
	acquired []string
	released []string
	attempts map[string]int
	deny     bool
}

func (f *fakeLocker) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if f.attempts == nil {
		f.attempts = map[string]int{}
	}
	f.attempts[key]++
	if f.deny {
		return false, nil
	}
	f.acquired = append(f.acquired, key)
	return true, nil
}

func (f *fakeLocker) ReleaseLock(ctx context.Context, key, value string) error {
	f.released = append(f.released, key)
	return nil
}

type fakeRepo struct {
	created     *model.SaleRecord
	adjustments []sale.StockAdjustment
	err         error
}

func (f *fakeRepo) CreateWithStock(ctx context.Context, record *model.SaleRecord, adjustments []sale.StockAdjustment) error {
	if f.err != nil {
		return f.err
	}
	f.created = record
	f.adjustments = adjustments
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id string) (*model.SaleRecord, error) {
	return nil, nil
}

func (f *fakeRepo) FindAll(ctx context.Context, filters *dto.SaleFilters) ([]model.SaleRecord, int, error) {
	return nil, 0, nil
}

type fakeBilling struct {
	calls int
	auth  *model.InvoiceAuthorization
	err   error
}

func (f *fakeBilling) RequestInvoice(ctx context.Context, req *billing.InvoiceRequest) (*model.InvoiceAuthorization, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.auth, nil
}

func billingConfig() *config.BillingConfig {
	return &config.BillingConfig{
		TaxRate:            21.0,
		DefaultInvoiceType: "C",
		ElectronicMethods:  []string{"credit_card", "debit_card", "qr"},
	}
}

func shirtProduct(stock int) *model.Product {
	p := &model.Product{
		SKU:  "SHIRT-01",
		Name: "Plain shirt",
		Variants: []model.Variant{
			{ID: "v1", ProductID: "p1", Size: "M", Color: "rojo", Stock: stock, Price: 50000},
			{ID: "v2", ProductID: "p1", Size: "unico", Color: "rojo", Stock: stock, Price: 50000},
		},
	}
	p.ID = "p1"
	return p
}

func newFixture(session *model.Session, products map[string]*model.Product) (*fakeSessions, *fakeProducts, *fakeRepo, *fakeBilling, sale.UseCase) {
	sessions := &fakeSessions{sessions: map[string]*model.Session{"s1": session}}
	reader := &fakeProducts{products: products}
	repo := &fakeRepo{}
	bill := &fakeBilling{auth: &model.InvoiceAuthorization{
		Code:   "CAE-123",
		Expiry: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Type:   "C",
	}}
	uc := NewSaleUseCase(sessions, reader, repo, bill, nil, nil, billingConfig(), logger.NewNop())
	return sessions, reader, repo, bill, uc
}

func catalogItem(quantity int, isReturn bool) model.LineItem {
	return model.LineItem{
		ProductID: "p1",
		Quantity:  quantity,
		UnitPrice: 50000,
		Selection: &model.VariantSelector{Size: "unico", Color: "rojo"},
		IsReturn:  isReturn,
	}
}

func TestFinalizeHappyPath(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{catalogItem(2, false)},
	}
	sessions, _, repo, bill, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(2)})

	result, err := uc.Finalize(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, result.Sale)
	assert.Nil(t, result.Warning)

	assert.Equal(t, 100000.0, result.Sale.Total)
	require.Len(t, repo.adjustments, 1)
	assert.Equal(t, -2, repo.adjustments[0].Delta)
	assert.Equal(t, "sale", repo.adjustments[0].MovementType)
	assert.Equal(t, model.VariantSelector{Size: "unico", Color: "rojo"}, repo.adjustments[0].Selection)

	assert.Equal(t, []string{"s1"}, sessions.deleted)
	assert.Equal(t, 0, bill.calls, "cash sales must not request invoices")
	assert.Nil(t, result.Sale.InvoiceCode)
}

func TestFinalizeEmptySession(t *testing.T) {
	session := &model.Session{ID: "s1", PaymentMethod: model.PaymentCash}
	_, _, repo, _, uc := newFixture(session, nil)

	_, err := uc.Finalize(context.Background(), "s1")
	var vErr *apperrors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items", vErr.Field)
	assert.Nil(t, repo.created)
}

func TestFinalizeUnknownSession(t *testing.T) {
	_, _, _, _, uc := newFixture(&model.Session{ID: "s1"}, nil)

	_, err := uc.Finalize(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestFinalizeUnknownProduct(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{catalogItem(1, false)},
	}
	_, _, repo, _, uc := newFixture(session, map[string]*model.Product{})

	_, err := uc.Finalize(context.Background(), "s1")
	assert.ErrorIs(t, err, apperrors.ErrProductNotFound)
	assert.Nil(t, repo.created)
}

func TestFinalizeVariantMismatchReportsSelection(t *testing.T) {
	item := catalogItem(1, false)
	item.Selection = &model.VariantSelector{Size: "XL", Color: "verde"}
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{item},
	}
	_, _, repo, _, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(5)})

	_, err := uc.Finalize(context.Background(), "s1")
	var variantErr *apperrors.VariantNotFoundError
	require.ErrorAs(t, err, &variantErr)
	assert.Equal(t, "p1", variantErr.ProductID)
	assert.Equal(t, "XL", variantErr.Selection.Size)
	assert.Equal(t, "verde", variantErr.Selection.Color)
	assert.Nil(t, repo.created)
}

func TestFinalizeInsufficientStock(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{catalogItem(3, false)},
	}
	sessions, _, repo, _, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(2)})

	_, err := uc.Finalize(context.Background(), "s1")
	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
	assert.Nil(t, repo.created, "no write may happen when any item fails validation")
	assert.Empty(t, sessions.deleted, "session survives a failed finalization")
}

func TestFinalizeAllOrNothing(t *testing.T) {
	good := catalogItem(1, false)
	bad := model.LineItem{
		ProductID: "p2",
		Quantity:  5,
		UnitPrice: 20000,
		Selection: &model.VariantSelector{Size: "M", Color: "azul"},
	}
	p2 := &model.Product{
		Name:     "Pants",
		Variants: []model.Variant{{ID: "v3", ProductID: "p2", Size: "M", Color: "azul", Stock: 1}},
	}
	p2.ID = "p2"
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{good, bad},
	}
	_, _, repo, _, uc := newFixture(session, map[string]*model.Product{
		"p1": shirtProduct(10),
		"p2": p2,
	})

	_, err := uc.Finalize(context.Background(), "s1")
	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p2", stockErr.ProductID)
	assert.Nil(t, repo.created, "the valid item must not be persisted either")
}

func TestFinalizeReturnsAreNeverStockBlocked(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items: []model.LineItem{
			catalogItem(1, false),
			catalogItem(2, true),
		},
	}
	_, _, repo, _, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(1)})

	result, err := uc.Finalize(context.Background(), "s1")
	require.NoError(t, err)

	// 1 sold at 50000 minus 2 returned at 50000.
	assert.Equal(t, -50000.0, result.Sale.Total)

	// Returns apply before sales.
	require.Len(t, repo.adjustments, 2)
	assert.Equal(t, 2, repo.adjustments[0].Delta)
	assert.Equal(t, "return", repo.adjustments[0].MovementType)
	assert.Equal(t, -1, repo.adjustments[1].Delta)
	assert.Equal(t, "sale", repo.adjustments[1].MovementType)

	// Items keep the cart's order.
	require.Len(t, result.Sale.Items, 2)
	assert.Equal(t, 0, result.Sale.Items[0].Position)
	assert.Equal(t, 1, result.Sale.Items[1].Position)
	assert.Equal(t, 50000.0, result.Sale.Items[0].Subtotal)
	assert.Equal(t, -100000.0, result.Sale.Items[1].Subtotal)
}

func TestFinalizeQuickItemSkipsCatalog(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items: []model.LineItem{
			{Name: "Gift wrap", Quantity: 1, UnitPrice: 1500, IsQuickItem: true},
		},
	}
	_, _, repo, _, uc := newFixture(session, map[string]*model.Product{})

	result, err := uc.Finalize(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, result.Sale.Total)
	assert.Empty(t, repo.adjustments, "quick items carry no stock")
	require.Len(t, result.Sale.Items, 1)
	assert.Nil(t, result.Sale.Items[0].ProductID)
	assert.Equal(t, "Gift wrap", result.Sale.Items[0].Name)
}

func TestFinalizeElectronicPaymentRequestsInvoice(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCreditCard,
		Items:         []model.LineItem{catalogItem(1, false)},
		Customer:      &model.CustomerInfo{Name: "Ana", DocType: "DNI", DocNumber: "30111222"},
	}
	_, _, repo, bill, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(5)})

	result, err := uc.Finalize(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, bill.calls)
	assert.Nil(t, result.Warning)
	require.NotNil(t, result.Sale.InvoiceCode)
	assert.Equal(t, "CAE-123", *result.Sale.InvoiceCode)
	require.NotNil(t, repo.created.InvoiceType)
	assert.Equal(t, "C", *repo.created.InvoiceType)
}

func TestFinalizeBillingFailureIsNonFatal(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentDebitCard,
		Items:         []model.LineItem{catalogItem(1, false)},
	}
	sessions, _, repo, bill, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(5)})
	bill.err = errors.New("authority unreachable")

	result, err := uc.Finalize(context.Background(), "s1")
	require.NoError(t, err, "a billing failure must not abort the sale")

	var bErr *apperrors.BillingError
	require.ErrorAs(t, result.Warning, &bErr)
	require.NotNil(t, repo.created, "the sale is persisted without an invoice")
	assert.Nil(t, repo.created.InvoiceCode)
	assert.Equal(t, []string{"s1"}, sessions.deleted)
}

func TestFinalizePersistenceFailureIsFatal(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{catalogItem(1, false)},
	}
	sessions, _, repo, _, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(5)})
	repo.err = errors.New("connection reset")

	_, err := uc.Finalize(context.Background(), "s1")
	var pErr *apperrors.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Empty(t, sessions.deleted, "session survives so the operator can retry")
}

func TestFinalizeExactStockDrainsToZero(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{catalogItem(2, false)},
	}
	_, _, repo, _, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(2)})

	result, err := uc.Finalize(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 100000.0, result.Sale.Total)
	require.Len(t, repo.adjustments, 1)
	assert.Equal(t, -2, repo.adjustments[0].Delta)
}

func TestFinalizeOneShortOfRequested(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{catalogItem(2, false)},
	}
	_, _, repo, _, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(1)})

	_, err := uc.Finalize(context.Background(), "s1")
	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)
	assert.Nil(t, repo.created)
}

func TestFinalizeInvalidPaymentMethod(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentMethod("barter"),
		Items:         []model.LineItem{catalogItem(1, false)},
	}
	_, _, _, _, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(5)})

	_, err := uc.Finalize(context.Background(), "s1")
	var vErr *apperrors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "payment_method", vErr.Field)
}

func TestFinalizeSameVariantTwiceValidatesCombinedQuantity(t *testing.T) {
	// Same shirt scanned as two separate lines: each fits stock 1 alone,
	// together they do not.
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{catalogItem(1, false), catalogItem(1, false)},
	}
	_, _, repo, _, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(1)})

	_, err := uc.Finalize(context.Background(), "s1")
	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)
	assert.Nil(t, repo.created)
}

func TestFinalizeSameVariantReturnCoversSale(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items: []model.LineItem{
			catalogItem(2, true),
			catalogItem(2, false),
		},
	}
	_, _, repo, _, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(0)})

	result, err := uc.Finalize(context.Background(), "s1")
	require.NoError(t, err, "the return replenishes what the sale draws")
	assert.Equal(t, 0.0, result.Sale.Total)
	require.Len(t, repo.adjustments, 2)
	assert.Equal(t, 2, repo.adjustments[0].Delta, "return delta applies first")
	assert.Equal(t, -2, repo.adjustments[1].Delta)
}

func TestFinalizeStockGuardRejectionMapsToInsufficientStock(t *testing.T) {
	// Both validation passes see stock 2; the write is rejected because
	// another register drained the variant in between. The guard rejection
	// must come back as InsufficientStock with the fresh availability.
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{catalogItem(2, false)},
	}
	_, reader, repo, _, uc := newFixture(session, map[string]*model.Product{"p1": shirtProduct(2)})
	reader.swap = shirtProduct(0)
	reader.swapAfter = 2
	repo.err = product.ErrStockConflict

	_, err := uc.Finalize(context.Background(), "s1")
	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 0, stockErr.Available)
}

func productWith(id string, stock int) *model.Product {
	p := &model.Product{
		Name: "Item " + id,
		Variants: []model.Variant{
			{ID: id + "-v", ProductID: id, Size: "unico", Color: "rojo", Stock: stock, Price: 1000},
		},
	}
	p.ID = id
	return p
}

func lineFor(productID string, quantity int) model.LineItem {
	return model.LineItem{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: 1000,
		Selection: &model.VariantSelector{Size: "unico", Color: "rojo"},
	}
}

func TestFinalizeLocksProductsInSortedOrder(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{lineFor("p9", 1), lineFor("p1", 1)},
	}
	sessions := &fakeSessions{sessions: map[string]*model.Session{"s1": session}}
	reader := &fakeProducts{products: map[string]*model.Product{
		"p1": productWith("p1", 5),
		"p9": productWith("p9", 5),
	}}
	repo := &fakeRepo{}
	locker := &fakeLocker{}
	uc := NewSaleUseCase(sessions, reader, repo, &fakeBilling{}, locker, nil, billingConfig(), logger.NewNop())

	_, err := uc.Finalize(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, []string{"lock:stock:p1", "lock:stock:p9"}, locker.acquired)
	assert.Equal(t, []string{"lock:stock:p1", "lock:stock:p9"}, locker.released)
}

func TestFinalizeReleasesLocksOnPersistenceFailure(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{lineFor("p1", 1)},
	}
	sessions := &fakeSessions{sessions: map[string]*model.Session{"s1": session}}
	reader := &fakeProducts{products: map[string]*model.Product{"p1": productWith("p1", 5)}}
	repo := &fakeRepo{err: errors.New("connection reset")}
	locker := &fakeLocker{}
	uc := NewSaleUseCase(sessions, reader, repo, &fakeBilling{}, locker, nil, billingConfig(), logger.NewNop())

	_, err := uc.Finalize(context.Background(), "s1")
	var pErr *apperrors.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, []string{"lock:stock:p1"}, locker.released)
}

func TestFinalizeAbortsWhenLockUnavailable(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{lineFor("p1", 1)},
	}
	sessions := &fakeSessions{sessions: map[string]*model.Session{"s1": session}}
	reader := &fakeProducts{products: map[string]*model.Product{"p1": productWith("p1", 5)}}
	repo := &fakeRepo{}
	locker := &fakeLocker{deny: true}
	uc := NewSaleUseCase(sessions, reader, repo, &fakeBilling{}, locker, nil, billingConfig(), logger.NewNop())

	_, err := uc.Finalize(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, 3, locker.attempts["lock:stock:p1"], "acquisition retries three times before giving up")
	assert.Nil(t, repo.created)
	assert.Empty(t, locker.released)
	assert.Empty(t, sessions.deleted)
}

func TestFinalizeRevalidatesStockUnderLock(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCash,
		Items:         []model.LineItem{lineFor("p1", 2)},
	}
	sessions := &fakeSessions{sessions: map[string]*model.Session{"s1": session}}
	reader := &fakeProducts{products: map[string]*model.Product{"p1": productWith("p1", 2)}}
	// Stock drops to 1 after the first validation pass, before the lock read.
	reader.swap = productWith("p1", 1)
	reader.swapAfter = 1
	repo := &fakeRepo{}
	locker := &fakeLocker{}
	uc := NewSaleUseCase(sessions, reader, repo, &fakeBilling{}, locker, nil, billingConfig(), logger.NewNop())

	_, err := uc.Finalize(context.Background(), "s1")
	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)
	assert.Nil(t, repo.created)
	assert.Equal(t, []string{"lock:stock:p1"}, locker.released)
}

func TestFinalizeLogsOrphanedAuthorizationWhenAborted(t *testing.T) {
	session := &model.Session{
		ID:            "s1",
		PaymentMethod: model.PaymentCreditCard,
		Items:         []model.LineItem{lineFor("p1", 1)},
	}
	sessions := &fakeSessions{sessions: map[string]*model.Session{"s1": session}}
	reader := &fakeProducts{products: map[string]*model.Product{"p1": productWith("p1", 5)}}
	bill := &fakeBilling{auth: &model.InvoiceAuthorization{Code: "CAE-777", Type: "C"}}
	locker := &fakeLocker{deny: true}
	log, logs := logger.NewObserved()
	uc := NewSaleUseCase(sessions, reader, &fakeRepo{}, bill, locker, nil, billingConfig(), log)

	_, err := uc.Finalize(context.Background(), "s1")
	require.Error(t, err)
	assert.Equal(t, 1, bill.calls)

	entries := logs.FilterMessage("finalization aborted after invoice authorization; manual reconciliation required").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "CAE-777", entries[0].ContextMap()["authorization_code"])
}
