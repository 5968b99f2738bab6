package token

import (
	"context"
	"time"
)

// Revocation marks a signed token id as no longer valid before its expiry.
type Revocation struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repository interface {
	Revoke(ctx context.Context, r Revocation) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
