package cart

import (
	"context"

	"storefront/internal/domain"
)

// MutateFunc edits a locked cart in place. Returning an error aborts the write.
type MutateFunc func(c *domain.Cart) error

type Repository interface {
	// GetByUser returns the user's cart or domain.ErrNotFound.
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	// Mutate locks the user's cart row, applies fn and stores the result with
	// recalculated totals. When create is set a missing cart is created first;
	// otherwise a missing cart yields domain.ErrNotFound.
	Mutate(ctx context.Context, userID string, create bool, fn MutateFunc) (*domain.Cart, error)
}
