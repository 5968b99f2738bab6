package token

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/repository/pgutil"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

// Revoke is idempotent: revoking the same jti twice is not an error.
func (r *postgresRepo) Revoke(ctx context.Context, rev Revocation) error {
	const q = `
INSERT INTO revoked_tokens (jti, user_id, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (jti) DO NOTHING
`
	_, err := r.pool.Exec(ctx, q, rev.JTI, rev.UserID, rev.ExpiresAt)
	return pgutil.Translate(err)
}

func (r *postgresRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`
	var revoked bool
	if err := r.pool.QueryRow(ctx, q, jti).Scan(&revoked); err != nil {
		return false, err
	}
	return revoked, nil
}

func (r *postgresRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
