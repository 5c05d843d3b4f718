package usecase

import (
	"github.com/mvega/pos-checkout-service/internal/apperrors"
	"github.com/mvega/pos-checkout-service/internal/cart"
	"github.com/mvega/pos-checkout-service/internal/cart/dto"
	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/pkg/logger"
	"go.uber.org/zap"
)

type cartUseCase struct {
	store  *cart.SessionStore
	logger logger.ZapLogger
}

func NewCartUseCase(store *cart.SessionStore, log logger.ZapLogger) cart.UseCase {
	return &cartUseCase{
		store:  store,
		logger: log,
	}
}

func (uc *cartUseCase) CreateSession() *model.Session {
	session := uc.store.Create()
	uc.logger.Debug("checkout session created", zap.String("session_id", session.ID))
	return session
}

func (uc *cartUseCase) GetSession(id string) (*model.Session, error) {
	return uc.store.Get(id)
}

func validateItem(input *dto.AddItemInput) error {
	if input.Quantity <= 0 {
		return &apperrors.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	if input.UnitPrice < 0 {
		return &apperrors.ValidationError{Field: "unit_price", Reason: "must not be negative"}
	}
	if input.IsQuickItem {
		if input.Name == "" {
			return &apperrors.ValidationError{Field: "name", Reason: "quick items need a description"}
		}
		return nil
	}
	if input.ProductID == "" {
		return &apperrors.ValidationError{Field: "product_id", Reason: "required for catalog items"}
	}
	if input.Selection == nil || !input.Selection.IsComplete() {
		return &apperrors.ValidationError{Field: "selection", Reason: "size and color are required for catalog items"}
	}
	return nil
}

func (uc *cartUseCase) AddItem(sessionID string, input *dto.AddItemInput) (*model.Session, error) {
	if err := validateItem(input); err != nil {
		return nil, err
	}

	item := model.LineItem{
		ProductID:   input.ProductID,
		Name:        input.Name,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		IsReturn:    input.IsReturn,
		IsQuickItem: input.IsQuickItem,
	}
	if input.Selection != nil {
		// The selection is stored as captured. The same value is later used
		// for the variant lookup at finalization.
		sel := *input.Selection
		item.Selection = &sel
	}

	return uc.store.Update(sessionID, func(s *model.Session) error {
		s.Items = append(s.Items, item)
		return nil
	})
}

func (uc *cartUseCase) RemoveItem(sessionID string, index int) (*model.Session, error) {
	return uc.store.Update(sessionID, func(s *model.Session) error {
		if index < 0 || index >= len(s.Items) {
			return apperrors.ErrItemNotFound
		}
		s.Items = append(s.Items[:index], s.Items[index+1:]...)
		return nil
	})
}

func (uc *cartUseCase) Clear(sessionID string) (*model.Session, error) {
	return uc.store.Update(sessionID, func(s *model.Session) error {
		s.Items = nil
		return nil
	})
}

func (uc *cartUseCase) SetCheckoutInfo(sessionID string, input *dto.CheckoutInfoInput) (*model.Session, error) {
	if !input.PaymentMethod.Valid() {
		return nil, &apperrors.ValidationError{Field: "payment_method", Reason: "unknown method"}
	}
	return uc.store.Update(sessionID, func(s *model.Session) error {
		s.PaymentMethod = input.PaymentMethod
		s.Customer = input.Customer
		return nil
	})
}

func (uc *cartUseCase) Abandon(sessionID string) {
	uc.store.Delete(sessionID)
}
