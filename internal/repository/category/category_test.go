package category

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
	"storefront/internal/migrate"
)

func TestPostgres_CreateAndList(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool)
	cat, err := repo.Create(ctx, "Phones")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cat.ID == "" || cat.Name != "Phones" {
		t.Fatalf("unexpected category %+v", cat)
	}
	if _, err := repo.Create(ctx, "phones"); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for case-insensitive duplicate, got %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Phones" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestPostgres_EnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool)
	first, err := repo.Ensure(ctx, "Laptops")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := repo.Ensure(ctx, "LAPTOPS")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first.ID != second.ID || second.Name != "Laptops" {
		t.Fatalf("expected same category, got %+v and %+v", first, second)
	}
}

func TestPostgres_DeleteNullsProductCategory(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool)
	cat, err := repo.Create(ctx, "Tablets")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	var productID string
	if err := pool.QueryRow(ctx, `INSERT INTO products (name, price, stock, category_id) VALUES ('Tab', 100, 1, $1) RETURNING id::text`, cat.ID).Scan(&productID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	if err := repo.Delete(ctx, cat.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var categoryID *string
	if err := pool.QueryRow(ctx, `SELECT category_id::text FROM products WHERE id = $1`, productID).Scan(&categoryID); err != nil {
		t.Fatalf("select product: %v", err)
	}
	if categoryID != nil {
		t.Fatalf("expected null category, got %v", *categoryID)
	}
	if err := repo.Delete(ctx, cat.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE order_items, orders, cart_items, carts, product_reviews, product_images, products, categories, revoked_tokens, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
