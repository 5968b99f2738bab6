package product

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

const productColumns = `id::text, name, description, price, stock, category_id::text, rating, num_reviews, created_at, updated_at`

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

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]domain.Product, error) {
	q := `
SELECT ` + productColumns + `
FROM products
WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\')
  AND ($2 = '' OR category_id::text = $2)
ORDER BY created_at DESC
`
	products, err := r.queryProducts(ctx, r.pool, q, escapeLike(strings.TrimSpace(f.Keyword)), strings.TrimSpace(f.CategoryID))
	if err != nil {
		r.logger.Error("product repo: list", zap.String("keyword", f.Keyword), zap.String("category", f.CategoryID), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("product repo: list", zap.Int("count", len(products)))
	return products, nil
}

func (r *postgresRepo) Top(ctx context.Context, limit int) ([]domain.Product, error) {
	q := `
SELECT ` + productColumns + `
FROM products
ORDER BY rating DESC, num_reviews DESC, created_at DESC
LIMIT $1
`
	return r.queryProducts(ctx, r.pool, q, limit)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.getByID(ctx, r.pool, id)
}

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Product, error) {
	q := `
INSERT INTO products (name, description, price, stock, category_id)
VALUES ($1, $2, $3, $4, $5::uuid)
RETURNING ` + productColumns
	p, err := scanProduct(r.pool.QueryRow(ctx, q, in.Name, in.Description, in.Price, in.Stock, in.CategoryID))
	if err != nil {
		r.logger.Error("product repo: create", zap.String("name", in.Name), zap.Error(err))
		return nil, err
	}
	p.Images = []domain.ProductImage{}
	return p, nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, in UpdateInput) (*domain.Product, error) {
	q := `
UPDATE products
SET name = COALESCE($2, name),
    description = COALESCE($3, description),
    price = COALESCE($4, price),
    stock = COALESCE($5, stock),
    category_id = COALESCE($6::uuid, category_id),
    updated_at = NOW()
WHERE id = $1
RETURNING ` + productColumns
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id, in.Name, in.Description, in.Price, in.Stock, in.CategoryID))
	if err != nil {
		return nil, err
	}
	if err := r.attachImages(ctx, r.pool, []*domain.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) ([]domain.ProductImage, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	images, err := loadImages(ctx, tx, []string{id})
	if err != nil {
		return nil, pgutil.Translate(err)
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return nil, pgutil.Translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("product repo: deleted", zap.String("id", id), zap.Int("images", len(images[id])))
	return images[id], nil
}

func (r *postgresRepo) AddImage(ctx context.Context, productID string, img domain.Image) (*domain.Product, error) {
	const q = `
INSERT INTO product_images (product_id, public_id, url)
VALUES ($1, $2, $3)
`
	if _, err := r.pool.Exec(ctx, q, productID, img.PublicID, img.URL); err != nil {
		return nil, pgutil.Translate(err)
	}
	if _, err := r.pool.Exec(ctx, `UPDATE products SET updated_at = NOW() WHERE id = $1`, productID); err != nil {
		return nil, pgutil.Translate(err)
	}
	return r.GetByID(ctx, productID)
}

func (r *postgresRepo) RemoveImage(ctx context.Context, productID, imageID string) (*domain.ProductImage, error) {
	const q = `
DELETE FROM product_images
WHERE product_id = $1 AND id = $2
RETURNING id::text, public_id, url
`
	var img domain.ProductImage
	if err := r.pool.QueryRow(ctx, q, productID, imageID).Scan(&img.ID, &img.PublicID, &img.URL); err != nil {
		return nil, pgutil.Translate(err)
	}
	return &img, nil
}

func (r *postgresRepo) AddReview(ctx context.Context, rev domain.Review) (*domain.Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const insert = `
INSERT INTO product_reviews (product_id, user_id, name, rating, comment)
VALUES ($1, $2, $3, $4, $5)
`
	if _, err := tx.Exec(ctx, insert, rev.ProductID, rev.UserID, rev.Name, rev.Rating, rev.Comment); err != nil {
		return nil, pgutil.Translate(err)
	}

	const aggregate = `
UPDATE products
SET rating = agg.avg_rating,
    num_reviews = agg.review_count,
    updated_at = NOW()
FROM (
    SELECT COALESCE(AVG(rating), 0) AS avg_rating, COUNT(*) AS review_count
    FROM product_reviews
    WHERE product_id = $1
) AS agg
WHERE products.id = $1
`
	if _, err := tx.Exec(ctx, aggregate, rev.ProductID); err != nil {
		return nil, err
	}

	p, err := r.getByID(ctx, tx, rev.ProductID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) UpsertByName(ctx context.Context, in CreateInput, imageURL string) (*domain.Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
UPDATE products
SET description = $2, price = $3, stock = $4, category_id = $5::uuid, updated_at = NOW()
WHERE LOWER(name) = LOWER($1)
RETURNING id::text
`, in.Name, in.Description, in.Price, in.Stock, in.CategoryID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = tx.QueryRow(ctx, `
INSERT INTO products (name, description, price, stock, category_id)
VALUES ($1, $2, $3, $4, $5::uuid)
RETURNING id::text
`, in.Name, in.Description, in.Price, in.Stock, in.CategoryID).Scan(&id)
	}
	if err != nil {
		return nil, pgutil.Translate(err)
	}

	if imageURL != "" {
		if _, err := tx.Exec(ctx, `
INSERT INTO product_images (product_id, public_id, url)
SELECT $1, '', $2
WHERE NOT EXISTS (SELECT 1 FROM product_images WHERE product_id = $1 AND url = $2)
`, id, imageURL); err != nil {
			return nil, err
		}
	}

	p, err := r.getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Debug("product repo: upserted", zap.String("name", in.Name), zap.String("id", id))
	return p, nil
}

func (r *postgresRepo) getByID(ctx context.Context, q querier, id string) (*domain.Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("product repo: get", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	if err := r.attachImages(ctx, q, []*domain.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) queryProducts(ctx context.Context, q querier, sql string, args ...any) ([]domain.Product, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	ptrs := make([]*domain.Product, len(result))
	for i := range result {
		ptrs[i] = &result[i]
	}
	if err := r.attachImages(ctx, q, ptrs); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) attachImages(ctx context.Context, q querier, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	images, err := loadImages(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, p := range products {
		p.Images = images[p.ID]
		if p.Images == nil {
			p.Images = []domain.ProductImage{}
		}
	}
	return nil
}

func loadImages(ctx context.Context, q querier, productIDs []string) (map[string][]domain.ProductImage, error) {
	const sql = `
SELECT id::text, product_id::text, public_id, url
FROM product_images
WHERE product_id = ANY($1::uuid[])
ORDER BY created_at ASC, id ASC
`
	rows, err := q.Query(ctx, sql, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.ProductImage, len(productIDs))
	for rows.Next() {
		var (
			img       domain.ProductImage
			productID string
		)
		if err := rows.Scan(&img.ID, &productID, &img.PublicID, &img.URL); err != nil {
			return nil, err
		}
		out[productID] = append(out[productID], img)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.CategoryID,
		&p.Rating,
		&p.NumReviews,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, pgutil.Translate(err)
	}
	return &p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
