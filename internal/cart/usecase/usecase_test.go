package usecase

import (
	"testing"

	"github.com/mvega/pos-checkout-service/internal/apperrors"
	"github.com/mvega/pos-checkout-service/internal/cart"
	"github.com/mvega/pos-checkout-service/internal/cart/dto"
	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCartUC() cart.UseCase {
	return NewCartUseCase(cart.NewSessionStore(), logger.NewNop())
}

func catalogInput() *dto.AddItemInput {
	return &dto.AddItemInput{
		ProductID: "p1",
		Quantity:  1,
		UnitPrice: 50000,
		Selection: &model.VariantSelector{Size: "M", Color: "rojo"},
	}
}

func TestCreateAndGetSession(t *testing.T) {
	uc := newCartUC()

	created := uc.CreateSession()
	require.NotEmpty(t, created.ID)
	assert.Equal(t, model.PaymentCash, created.PaymentMethod)

	fetched, err := uc.GetSession(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Empty(t, fetched.Items)

	_, err = uc.GetSession("nope")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestAddItemValidation(t *testing.T) {
	uc := newCartUC()
	session := uc.CreateSession()

	cases := []struct {
		name  string
		input *dto.AddItemInput
		field string
	}{
		{
			name:  "zero quantity",
			input: &dto.AddItemInput{ProductID: "p1", Quantity: 0, Selection: &model.VariantSelector{Size: "M", Color: "rojo"}},
			field: "quantity",
		},
		{
			name:  "negative price",
			input: &dto.AddItemInput{ProductID: "p1", Quantity: 1, UnitPrice: -1, Selection: &model.VariantSelector{Size: "M", Color: "rojo"}},
			field: "unit_price",
		},
		{
			name:  "catalog item without product",
			input: &dto.AddItemInput{Quantity: 1, UnitPrice: 10},
			field: "product_id",
		},
		{
			name:  "catalog item without selection",
			input: &dto.AddItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10},
			field: "selection",
		},
		{
			name:  "catalog item with partial selection",
			input: &dto.AddItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10, Selection: &model.VariantSelector{Size: "M"}},
			field: "selection",
		},
		{
			name:  "quick item without name",
			input: &dto.AddItemInput{Quantity: 1, UnitPrice: 10, IsQuickItem: true},
			field: "name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.AddItem(session.ID, tc.input)
			var vErr *apperrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestAddItemKeepsSelectionAsCaptured(t *testing.T) {
	uc := newCartUC()
	session := uc.CreateSession()

	input := catalogInput()
	updated, err := uc.AddItem(session.ID, input)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)

	// Mutating the caller's selector must not alter the stored item.
	input.Selection.Color = "azul"
	fetched, err := uc.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "rojo", fetched.Items[0].Selection.Color)
}

func TestAddQuickItem(t *testing.T) {
	uc := newCartUC()
	session := uc.CreateSession()

	updated, err := uc.AddItem(session.ID, &dto.AddItemInput{
		Name:        "Gift wrap",
		Quantity:    2,
		UnitPrice:   1500,
		IsQuickItem: true,
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.True(t, updated.Items[0].IsQuickItem)
	assert.Nil(t, updated.Items[0].Selection)
}

func TestRemoveItem(t *testing.T) {
	uc := newCartUC()
	session := uc.CreateSession()

	_, err := uc.AddItem(session.ID, catalogInput())
	require.NoError(t, err)
	second := catalogInput()
	second.Selection = &model.VariantSelector{Size: "L", Color: "rojo"}
	_, err = uc.AddItem(session.ID, second)
	require.NoError(t, err)

	updated, err := uc.RemoveItem(session.ID, 0)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "L", updated.Items[0].Selection.Size)

	_, err = uc.RemoveItem(session.ID, 5)
	assert.ErrorIs(t, err, apperrors.ErrItemNotFound)
	_, err = uc.RemoveItem(session.ID, -1)
	assert.ErrorIs(t, err, apperrors.ErrItemNotFound)
}

func TestClear(t *testing.T) {
	uc := newCartUC()
	session := uc.CreateSession()

	_, err := uc.AddItem(session.ID, catalogInput())
	require.NoError(t, err)

	updated, err := uc.Clear(session.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.Items)

	// Session itself survives a clear.
	_, err = uc.GetSession(session.ID)
	assert.NoError(t, err)
}

func TestSetCheckoutInfo(t *testing.T) {
	uc := newCartUC()
	session := uc.CreateSession()

	updated, err := uc.SetCheckoutInfo(session.ID, &dto.CheckoutInfoInput{
		PaymentMethod: model.PaymentCreditCard,
		Customer:      &model.CustomerInfo{Name: "Ana", DocType: "DNI", DocNumber: "30111222"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCreditCard, updated.PaymentMethod)
	require.NotNil(t, updated.Customer)
	assert.Equal(t, "Ana", updated.Customer.Name)

	_, err = uc.SetCheckoutInfo(session.ID, &dto.CheckoutInfoInput{PaymentMethod: "barter"})
	var vErr *apperrors.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "payment_method", vErr.Field)
}

func TestAbandon(t *testing.T) {
	uc := newCartUC()
	session := uc.CreateSession()

	uc.Abandon(session.ID)
	_, err := uc.GetSession(session.ID)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}
