package category

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront/internal/domain"
)

type memoryRepo struct {
	items map[string]domain.Category
}

func (r *memoryRepo) List(context.Context) ([]domain.Category, error) {
	out := []domain.Category{}
	for _, c := range r.items {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *memoryRepo) Create(_ context.Context, name string) (*domain.Category, error) {
	for _, c := range r.items {
		if strings.EqualFold(c.Name, name) {
			return nil, domain.ErrAlreadyExists
		}
	}
	c := domain.Category{ID: "cat-" + strings.ToLower(name), Name: name}
	r.items[c.ID] = c
	return &c, nil
}

func (r *memoryRepo) Rename(_ context.Context, id, name string) (*domain.Category, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c.Name = name
	r.items[id] = c
	return &c, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) Ensure(ctx context.Context, name string) (*domain.Category, error) {
	return r.Create(ctx, name)
}

func TestCreateRenameDelete(t *testing.T) {
	svc := New(&memoryRepo{items: map[string]domain.Category{}})
	changes := 0
	svc.OnChange(func(context.Context) { changes++ })
	ctx := context.Background()

	if _, err := svc.Create(ctx, "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	c, err := svc.Create(ctx, " Phones ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Name != "Phones" {
		t.Fatalf("expected trimmed name, got %q", c.Name)
	}
	if _, err := svc.Create(ctx, "phones"); err == nil || err.Error() != "category already exists" {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	if _, err := svc.Rename(ctx, c.ID, "Mobiles"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := svc.Rename(ctx, "missing", "X"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if changes != 3 {
		t.Fatalf("expected 3 change notifications, got %d", changes)
	}
}
