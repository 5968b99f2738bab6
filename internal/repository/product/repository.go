package product

import (
	"context"

	"storefront/internal/domain"
)

// ListFilter narrows List. Empty fields do not filter.
type ListFilter struct {
	Keyword    string
	CategoryID string
}

type CreateInput struct {
	Name        string
	Description string
	Price       int64
	Stock       int
	CategoryID  *string
}

// UpdateInput carries the fields to change; nil leaves a field untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	Price       *int64
	Stock       *int
	CategoryID  *string
}

type Repository interface {
	List(ctx context.Context, f ListFilter) ([]domain.Product, error)
	Top(ctx context.Context, limit int) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in CreateInput) (*domain.Product, error)
	Update(ctx context.Context, id string, in UpdateInput) (*domain.Product, error)
	// Delete removes the product and returns the images it owned.
	Delete(ctx context.Context, id string) ([]domain.ProductImage, error)
	AddImage(ctx context.Context, productID string, img domain.Image) (*domain.Product, error)
	RemoveImage(ctx context.Context, productID, imageID string) (*domain.ProductImage, error)
	// AddReview stores r and recomputes the product's rating aggregates.
	AddReview(ctx context.Context, r domain.Review) (*domain.Product, error)
	// UpsertByName updates the product with the same name or inserts a new one.
	UpsertByName(ctx context.Context, in CreateInput, imageURL string) (*domain.Product, error)
}
