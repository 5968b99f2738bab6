package user

import (
	"context"

	"storefront/internal/domain"
)

// UpdateProfileInput carries the fields to change; nil leaves a field untouched.
type UpdateProfileInput struct {
	Name    *string
	Email   *string
	Address *string
	City    *string
	Country *string
	Phone   *string
}

// Repository persists and fetches users.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfilePic(ctx context.Context, id string, pic domain.Image) (*domain.User, error)
}
