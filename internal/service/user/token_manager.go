package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	tokenrepo "storefront/internal/repository/token"
)

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Session is the verified content of an access token.
type Session struct {
	UserID    string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

type tokenManager struct {
	secret      []byte
	ttl         time.Duration
	revocations tokenrepo.Repository
	now         func() time.Time
}

func newTokenManager(secret string, ttl time.Duration, revocations tokenrepo.Repository) *tokenManager {
	return &tokenManager{
		secret:      []byte(secret),
		ttl:         ttl,
		revocations: revocations,
		now:         time.Now,
	}
}

func (m *tokenManager) Issue(userID, role string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (m *tokenManager) Validate(ctx context.Context, raw string) (Session, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || c.Subject == "" || c.ID == "" {
		return Session{}, ErrInvalidToken
	}

	if m.revocations != nil {
		revoked, err := m.revocations.IsRevoked(ctx, c.ID)
		if err != nil {
			return Session{}, err
		}
		if revoked {
			return Session{}, ErrInvalidToken
		}
	}

	return Session{
		UserID:    c.Subject,
		Role:      c.Role,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

func (m *tokenManager) Revoke(ctx context.Context, s Session) error {
	if m.revocations == nil {
		return errors.New("token revocation unavailable")
	}
	return m.revocations.Revoke(ctx, tokenrepo.Revocation{
		JTI:       s.TokenID,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
	})
}
