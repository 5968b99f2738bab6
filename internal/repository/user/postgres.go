package user

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/pgutil"
)

const userColumns = `id::text, name, email, password_hash, address, city, country, phone, role,
       profile_pic_public_id, profile_pic_url, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	role := u.Role
	if role == "" {
		role = domain.RoleUser
	}
	q := `
INSERT INTO users (name, email, password_hash, address, city, country, phone, role)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + userColumns
	created, err := scanUser(r.pool.QueryRow(ctx, q,
		u.Name,
		strings.ToLower(strings.TrimSpace(u.Email)),
		u.PasswordHash,
		u.Address,
		u.City,
		u.Country,
		u.Phone,
		string(role),
	))
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		r.logger.Error("user repo: create", zap.String("email", u.Email), zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	u, err := scanUser(r.pool.QueryRow(ctx, q, strings.TrimSpace(email)))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.logger.Error("user repo: get by email", zap.Error(err))
	}
	return u, err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.logger.Error("user repo: get by id", zap.String("id", id), zap.Error(err))
	}
	return u, err
}

func (r *postgresRepo) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*domain.User, error) {
	var email *string
	if in.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*in.Email))
		email = &normalized
	}
	q := `
UPDATE users
SET name = COALESCE($2, name),
    email = COALESCE($3, email),
    address = COALESCE($4, address),
    city = COALESCE($5, city),
    country = COALESCE($6, country),
    phone = COALESCE($7, phone),
    updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, id, in.Name, email, in.Address, in.City, in.Country, in.Phone))
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *postgresRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return pgutil.Translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) UpdateProfilePic(ctx context.Context, id string, pic domain.Image) (*domain.User, error) {
	q := `
UPDATE users
SET profile_pic_public_id = $2, profile_pic_url = $3, updated_at = NOW()
WHERE id = $1
RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, id, pic.PublicID, pic.URL))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u        domain.User
		role     string
		publicID *string
		url      *string
	)
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Address,
		&u.City,
		&u.Country,
		&u.Phone,
		&role,
		&publicID,
		&url,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, pgutil.Translate(err)
	}
	u.Role = domain.Role(role)
	if url != nil && *url != "" {
		pic := domain.Image{URL: *url}
		if publicID != nil {
			pic.PublicID = *publicID
		}
		u.ProfilePic = &pic
	}
	return &u, nil
}
