package order

import (
	"context"
	"time"

	"storefront/internal/domain"
)

// LineRequest asks for Quantity units of a product. Name, price and image are
// always taken from the locked product row.
type LineRequest struct {
	ProductID string
	Quantity  int
}

type CreateInput struct {
	UserID         string
	ShippingInfo   domain.ShippingInfo
	Lines          []LineRequest
	PaymentMethod  domain.PaymentMethod
	PaymentInfo    *domain.PaymentInfo
	PaidAt         *time.Time
	IdempotencyKey string
	// FromCart ignores Lines and orders the user's cart instead. The cart row
	// is locked for the whole transaction and emptied on success.
	FromCart bool
	// Price fills the order amounts once the items have been snapshotted.
	Price func(o *domain.Order)
}

// StatusFunc inspects the locked order and returns the status to store.
type StatusFunc func(o *domain.Order) (domain.OrderStatus, error)

type Repository interface {
	// Create reserves stock and stores the order atomically. When the
	// idempotency key was already used by the same user the stored order is
	// returned with replayed set and nothing is written.
	Create(ctx context.Context, in CreateInput) (order *domain.Order, replayed bool, err error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// ListAll returns every order, newest first, with the customer summary set.
	ListAll(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, fn StatusFunc) (*domain.Order, error)
}
