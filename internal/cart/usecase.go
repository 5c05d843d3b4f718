package cart

import (
	"github.com/mvega/pos-checkout-service/internal/cart/dto"
	"github.com/mvega/pos-checkout-service/internal/model"
)

type UseCase interface {
	CreateSession() *model.Session
	GetSession(id string) (*model.Session, error)
	AddItem(sessionID string, input *dto.AddItemInput) (*model.Session, error)
	RemoveItem(sessionID string, index int) (*model.Session, error)
	Clear(sessionID string) (*model.Session, error)
	SetCheckoutInfo(sessionID string, input *dto.CheckoutInfoInput) (*model.Session, error)
	Abandon(sessionID string)
}
