package cart

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/pgutil"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *postgresRepo) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	const q = `
SELECT id::text, user_id::text, created_at, updated_at
FROM carts
WHERE user_id = $1
`
	return fetchCart(ctx, r.pool, q, userID)
}

func (r *postgresRepo) Mutate(ctx context.Context, userID string, create bool, fn MutateFunc) (*domain.Cart, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if create {
		if _, err := tx.Exec(ctx, `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO NOTHING
`, userID); err != nil {
			return nil, pgutil.Translate(err)
		}
	}

	cart, err := fetchCart(ctx, tx, `
SELECT id::text, user_id::text, created_at, updated_at
FROM carts
WHERE user_id = $1
FOR UPDATE
`, userID)
	if err != nil {
		return nil, err
	}

	if err := fn(cart); err != nil {
		return nil, err
	}
	cart.Recalculate()

	if err := replaceItems(ctx, tx, cart); err != nil {
		r.logger.Error("cart repo: replace items", zap.String("user_id", userID), zap.Error(err))
		return nil, pgutil.Translate(err)
	}

	if err := tx.QueryRow(ctx, `
UPDATE carts
SET total_items = $2, total_amount = $3, updated_at = NOW()
WHERE id = $1
RETURNING updated_at
`, cart.ID, cart.TotalItems, cart.TotalAmount).Scan(&cart.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Debug("cart repo: mutated",
		zap.String("user_id", userID),
		zap.Int("total_items", cart.TotalItems),
		zap.Int64("total_amount", cart.TotalAmount),
	)
	return cart, nil
}

func replaceItems(ctx context.Context, tx pgx.Tx, cart *domain.Cart) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID); err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, it := range cart.Items {
		batch.Queue(`
INSERT INTO cart_items (cart_id, product_id, position, name, price, quantity, image)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, cart.ID, it.ProductID, i, it.Name, it.Price, it.Quantity, it.Image)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func fetchCart(ctx context.Context, q querier, cartQuery string, args ...any) (*domain.Cart, error) {
	var cart domain.Cart
	if err := q.QueryRow(ctx, cartQuery, args...).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	); err != nil {
		return nil, pgutil.Translate(err)
	}

	const itemsQuery = `
SELECT product_id::text, name, price, quantity, image
FROM cart_items
WHERE cart_id = $1
ORDER BY position ASC
`
	rows, err := q.Query(ctx, itemsQuery, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cart.Items = []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Price, &it.Quantity, &it.Image); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Lines may vanish through the product foreign key cascade, so totals are
	// always derived from the rows actually present.
	cart.Recalculate()
	return &cart, nil
}
