package product

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
	"storefront/internal/migrate"
)

func TestPostgres_CreateListAndFilter(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	var catID string
	if err := pool.QueryRow(ctx, `INSERT INTO categories (name) VALUES ('Phones') RETURNING id::text`).Scan(&catID); err != nil {
		t.Fatalf("insert category: %v", err)
	}

	repo := NewPostgres(pool, nil)
	phone, err := repo.Create(ctx, CreateInput{Name: "Pixel 9", Description: "phone", Price: 700, Stock: 3, CategoryID: &catID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, CreateInput{Name: "100% Cotton Case", Price: 10, Stock: 5}); err != nil {
		t.Fatalf("create: %v", err)
	}

	byKeyword, err := repo.List(ctx, ListFilter{Keyword: "pixel"})
	if err != nil {
		t.Fatalf("list keyword: %v", err)
	}
	if len(byKeyword) != 1 || byKeyword[0].ID != phone.ID {
		t.Fatalf("unexpected keyword result %+v", byKeyword)
	}

	literal, err := repo.List(ctx, ListFilter{Keyword: "100%"})
	if err != nil {
		t.Fatalf("list literal: %v", err)
	}
	if len(literal) != 1 {
		t.Fatalf("expected %% to match literally, got %d", len(literal))
	}

	byCategory, err := repo.List(ctx, ListFilter{CategoryID: catID})
	if err != nil {
		t.Fatalf("list category: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].CategoryID == nil || *byCategory[0].CategoryID != catID {
		t.Fatalf("unexpected category result %+v", byCategory)
	}
}

func TestPostgres_ImagesAndDelete(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	p, err := repo.Create(ctx, CreateInput{Name: "Tablet", Price: 300, Stock: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	withImage, err := repo.AddImage(ctx, p.ID, domain.Image{PublicID: "products/a.png", URL: "http://img/products/a.png"})
	if err != nil {
		t.Fatalf("add image: %v", err)
	}
	if len(withImage.Images) != 1 || withImage.PrimaryImage() != "http://img/products/a.png" {
		t.Fatalf("unexpected images %+v", withImage.Images)
	}

	if _, err := repo.RemoveImage(ctx, p.ID, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown image, got %v", err)
	}

	removed, err := repo.Delete(ctx, p.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(removed) != 1 || removed[0].PublicID != "products/a.png" {
		t.Fatalf("expected deleted images to be returned, got %+v", removed)
	}
	if _, err := repo.GetByID(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostgres_ReviewsUpdateRating(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	var u1, u2 string
	if err := pool.QueryRow(ctx, `INSERT INTO users (name, email, password_hash) VALUES ('A', 'a@x.io', 'h') RETURNING id::text`).Scan(&u1); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (name, email, password_hash) VALUES ('B', 'b@x.io', 'h') RETURNING id::text`).Scan(&u2); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	repo := NewPostgres(pool, nil)
	p, err := repo.Create(ctx, CreateInput{Name: "Watch", Price: 50, Stock: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.AddReview(ctx, domain.Review{ProductID: p.ID, UserID: u1, Name: "A", Rating: 5}); err != nil {
		t.Fatalf("review 1: %v", err)
	}
	updated, err := repo.AddReview(ctx, domain.Review{ProductID: p.ID, UserID: u2, Name: "B", Rating: 2})
	if err != nil {
		t.Fatalf("review 2: %v", err)
	}
	if updated.NumReviews != 2 || updated.Rating != 3.5 {
		t.Fatalf("unexpected aggregates rating=%v count=%d", updated.Rating, updated.NumReviews)
	}
	if _, err := repo.AddReview(ctx, domain.Review{ProductID: p.ID, UserID: u1, Name: "A", Rating: 1}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for second review, got %v", err)
	}

	top, err := repo.Top(ctx, 3)
	if err != nil || len(top) != 1 || top[0].ID != p.ID {
		t.Fatalf("unexpected top %+v err=%v", top, err)
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
