package dto

import "github.com/mvega/pos-checkout-service/internal/model"

type AddItemInput struct {
	ProductID   string
	Name        string
	Selection   *model.VariantSelector
	Quantity    int
	UnitPrice   float64
	IsReturn    bool
	IsQuickItem bool
}

type CheckoutInfoInput struct {
	PaymentMethod model.PaymentMethod
	Customer      *model.CustomerInfo
}
