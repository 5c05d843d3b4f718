package sale

import (
	"context"
	"time"

	"github.com/mvega/pos-checkout-service/internal/model"
	"github.com/mvega/pos-checkout-service/internal/sale/dto"
)

type UseCase interface {
	// Finalize turns the checkout session into a persisted SaleRecord,
	// enforcing the stock invariants. The session is destroyed on success.
	Finalize(ctx context.Context, sessionID string) (*dto.FinalizeResult, error)

	GetSale(ctx context.Context, id string) (*model.SaleRecord, error)
	ListSales(ctx context.Context, filters *dto.SaleFilters) ([]model.SaleRecord, int, error)
}

// Collaborator seams. The concrete types in pkg/cache, pkg/broker and
// internal/cart satisfy these; tests use fakes.

type ProductReader interface {
	FindByID(ctx context.Context, id string) (*model.Product, error)
}

type SessionSource interface {
	Get(id string) (*model.Session, error)
	Delete(id string)
}

type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, payload interface{}) error
}
