package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/cache"
	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
)

// stubRepo mimics the transactional repository: Mutate works on a copy and
// only stores it when fn succeeds.
type stubRepo struct {
	carts       map[string]*domain.Cart
	mutateCalls int
	getCalls    int
}

func newStubRepo() *stubRepo {
	return &stubRepo{carts: map[string]*domain.Cart{}}
}

func (s *stubRepo) GetByUser(_ context.Context, userID string) (*domain.Cart, error) {
	s.getCalls++
	c, ok := s.carts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(c), nil
}

func (s *stubRepo) Mutate(_ context.Context, userID string, create bool, fn cartrepo.MutateFunc) (*domain.Cart, error) {
	s.mutateCalls++
	c, ok := s.carts[userID]
	if !ok {
		if !create {
			return nil, domain.ErrNotFound
		}
		c = domain.EmptyCart(userID)
	}
	work := clone(c)
	if err := fn(work); err != nil {
		return nil, err
	}
	work.Recalculate()
	s.carts[userID] = work
	return clone(work), nil
}

func clone(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = append([]domain.CartItem{}, c.Items...)
	return &out
}

type stubProducts map[string]domain.Product

func (s stubProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func phone(stock int) domain.Product {
	return domain.Product{
		ID:     "p1",
		Name:   "Phone",
		Price:  200,
		Stock:  stock,
		Images: []domain.ProductImage{{ID: "i1", Image: domain.Image{URL: "http://img/p1.png"}}},
	}
}

func TestAdd_CreatesCartAndMergesLines(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, stubProducts{"p1": phone(5)}, Options{})
	ctx := context.Background()

	cart, err := svc.Add(ctx, "u1", "p1", 2)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if cart.TotalItems != 2 || cart.TotalAmount != 400 {
		t.Fatalf("unexpected totals %+v", cart)
	}
	if cart.Items[0].Image != "http://img/p1.png" || cart.Items[0].Name != "Phone" {
		t.Fatalf("expected product snapshot, got %+v", cart.Items[0])
	}

	cart, err = svc.Add(ctx, "u1", "p1", 3)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 5 || cart.TotalAmount != 1000 {
		t.Fatalf("expected merged line, got %+v", cart)
	}

	_, err = svc.Add(ctx, "u1", "p1", 1)
	if err == nil || err.Error() != "Cannot add more items. Only 5 available, you already have 5 in cart" {
		t.Fatalf("unexpected merge error %v", err)
	}
	if repo.carts["u1"].Items[0].Quantity != 5 {
		t.Fatalf("rejected add must not change the cart")
	}
}

func TestAdd_Validation(t *testing.T) {
	svc := New(newStubRepo(), stubProducts{"p1": phone(1)}, Options{})
	ctx := context.Background()

	cases := []struct {
		name      string
		productID string
		qty       int
		message   string
		target    error
	}{
		{"missing product id", " ", 1, "Product ID is required", domain.ErrInvalidInput},
		{"zero quantity", "p1", 0, "Quantity must be greater than 0", domain.ErrInvalidInput},
		{"unknown product", "p9", 1, "Product not found", domain.ErrNotFound},
		{"short stock", "p1", 2, "Only 1 items available in stock", domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		_, err := svc.Add(ctx, "u1", tc.productID, tc.qty)
		if !errors.Is(err, tc.target) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.target, err)
		}
		if err.Error() != tc.message {
			t.Fatalf("%s: expected message %q, got %q", tc.name, tc.message, err.Error())
		}
	}
}

func TestGet_EmptyWhenMissing(t *testing.T) {
	svc := New(newStubRepo(), stubProducts{}, Options{})
	cart, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cart.UserID != "u1" || len(cart.Items) != 0 || cart.TotalAmount != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
}

func TestGet_RepairsAndPersistsOnlyOnChange(t *testing.T) {
	repo := newStubRepo()
	repo.carts["u1"] = &domain.Cart{UserID: "u1", Items: []domain.CartItem{
		{ProductID: "p1", Name: "Phone", Price: 200, Quantity: 4},
		{ProductID: "gone", Name: "Gone", Price: 10, Quantity: 1},
		{ProductID: "soldout", Name: "Sold out", Price: 10, Quantity: 1},
	}}
	products := stubProducts{
		"p1":      phone(2),
		"soldout": {ID: "soldout", Stock: 0},
	}
	svc := New(repo, products, Options{})
	ctx := context.Background()

	cart, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 || cart.TotalItems != 2 || cart.TotalAmount != 400 {
		t.Fatalf("unexpected repaired cart %+v", cart)
	}
	if repo.mutateCalls != 1 {
		t.Fatalf("expected one persisted repair, got %d", repo.mutateCalls)
	}

	if _, err := svc.Get(ctx, "u1"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if repo.mutateCalls != 1 {
		t.Fatalf("clean cart must not be rewritten, got %d mutations", repo.mutateCalls)
	}
}

func TestGet_UsesCacheUntilWrite(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, stubProducts{"p1": phone(10)}, Options{Cache: cache.NewMemory(), CacheTTL: time.Minute})
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u1", "p1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Get(ctx, "u1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := svc.Get(ctx, "u1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if repo.getCalls != 1 {
		t.Fatalf("expected cached second read, got %d repo reads", repo.getCalls)
	}

	if _, err := svc.Add(ctx, "u1", "p1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	cart, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cart.TotalItems != 2 {
		t.Fatalf("write must invalidate cache, got %d items", cart.TotalItems)
	}
	count, err := svc.Count(ctx, "u1")
	if err != nil || count != 2 {
		t.Fatalf("expected count 2, got %d (%v)", count, err)
	}
}

// racingRepo runs a write after the cart has been read, before the reader
// gets to cache it.
type racingRepo struct {
	*stubRepo
	during func()
}

func (r *racingRepo) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	c, err := r.stubRepo.GetByUser(ctx, userID)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return c, err
}

func TestGet_WriteDuringReadIsNotCachedStale(t *testing.T) {
	repo := &racingRepo{stubRepo: newStubRepo()}
	svc := New(repo, stubProducts{"p1": phone(10)}, Options{Cache: cache.NewMemory(), CacheTTL: time.Minute})
	ctx := context.Background()

	if _, err := svc.Add(ctx, "u1", "p1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	repo.during = func() {
		if _, err := svc.Add(ctx, "u1", "p1", 2); err != nil {
			t.Errorf("concurrent add: %v", err)
		}
	}

	first, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if first.TotalItems != 1 {
		t.Fatalf("first read sees the snapshot it loaded, got %d", first.TotalItems)
	}

	second, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if second.TotalItems != 3 {
		t.Fatalf("expected the newer cart, got %d items", second.TotalItems)
	}
	count, err := svc.Count(ctx, "u1")
	if err != nil || count != 3 {
		t.Fatalf("expected count 3, got %d (%v)", count, err)
	}
}

func TestUpdate(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, stubProducts{"p1": phone(3), "p2": {ID: "p2", Stock: 3}}, Options{})
	ctx := context.Background()
	qty := func(n int) *int { return &n }

	if _, err := svc.Update(ctx, "u1", "p1", nil); err == nil || err.Error() != "Product ID and quantity are required" {
		t.Fatalf("unexpected error %v", err)
	}
	if _, err := svc.Update(ctx, "u1", "p1", qty(-1)); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.Update(ctx, "u1", "p1", qty(1)); err == nil || err.Error() != "Cart not found" {
		t.Fatalf("expected cart not found, got %v", err)
	}

	if _, err := svc.Add(ctx, "u1", "p1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Update(ctx, "u1", "p2", qty(1)); err == nil || err.Error() != "Product not found in cart" {
		t.Fatalf("expected line not found, got %v", err)
	}
	if _, err := svc.Update(ctx, "u1", "p1", qty(4)); err == nil || err.Error() != "Only 3 items available in stock" {
		t.Fatalf("expected stock error, got %v", err)
	}
	cart, err := svc.Update(ctx, "u1", "p1", qty(3))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if cart.TotalItems != 3 || cart.TotalAmount != 600 {
		t.Fatalf("unexpected totals %+v", cart)
	}
}

func TestRemoveAndClear(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo, stubProducts{"p1": phone(3)}, Options{})
	ctx := context.Background()

	if _, err := svc.Remove(ctx, "u1", "p1"); err == nil || err.Error() != "Cart not found" {
		t.Fatalf("expected cart not found, got %v", err)
	}
	if _, err := svc.Add(ctx, "u1", "p1", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Remove(ctx, "u1", "p9"); err == nil || err.Error() != "Product not found in cart" {
		t.Fatalf("expected line not found, got %v", err)
	}
	cart, err := svc.Remove(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalItems != 0 || cart.TotalAmount != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}

	cleared, err := svc.Clear(ctx, "u2")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cleared.UserID != "u2" || cleared.TotalItems != 0 {
		t.Fatalf("clear must upsert an empty cart, got %+v", cleared)
	}
}

func TestCheckout(t *testing.T) {
	repo := newStubRepo()
	products := stubProducts{"p1": phone(5)}
	svc := New(repo, products, Options{})
	ctx := context.Background()

	if _, err := svc.Checkout(ctx, "u1"); err == nil || err.Error() != "Cart is empty" {
		t.Fatalf("expected empty cart error, got %v", err)
	}
	if _, err := svc.Add(ctx, "u1", "p1", 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	p := products["p1"]
	p.Price = 300
	products["p1"] = p
	out, err := svc.Checkout(ctx, "u1")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if out.ItemPrice != 600 || out.Tax != 60 || out.ShippingCharges != 30000 || out.TotalAmount != 30660 {
		t.Fatalf("unexpected quote %+v", out.Quote)
	}
	if out.Items[0].Price != 300 {
		t.Fatalf("checkout must use current price, got %d", out.Items[0].Price)
	}

	p.Stock = 1
	products["p1"] = p
	_, err = svc.Checkout(ctx, "u1")
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) || stockErr.Name != "Phone" {
		t.Fatalf("expected stock error naming the product, got %v", err)
	}
}
