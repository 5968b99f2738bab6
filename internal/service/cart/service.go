package cart

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/pricing"
	cartrepo "storefront/internal/repository/cart"
)

const cacheName = "cart"

type Service struct {
	repo     cartRepo
	products productRepo
	cache    cache.Store
	ttl      time.Duration
	rules    pricing.Rules
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

type cartRepo interface {
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	Mutate(ctx context.Context, userID string, create bool, fn cartrepo.MutateFunc) (*domain.Cart, error)
}

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Options struct {
	Cache    cache.Store
	CacheTTL time.Duration
	Pricing  *pricing.Rules
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func New(repo cartRepo, products productRepo, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	rules := pricing.DefaultRules()
	if opts.Pricing != nil {
		rules = *opts.Pricing
	}
	return &Service{
		repo:     repo,
		products: products,
		cache:    opts.Cache,
		ttl:      opts.CacheTTL,
		rules:    rules,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// Add puts quantity units of productID in the user's cart, merging with an
// existing line. The cart is created on first use.
func (s *Service) Add(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.Invalid("Product ID is required")
	}
	if quantity <= 0 {
		return nil, domain.Invalid("Quantity must be greater than 0")
	}
	p, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Stock < quantity {
		s.metrics.StockRejected("cart")
		return nil, &domain.InsufficientStockError{ProductID: p.ID, Available: p.Stock, Requested: quantity}
	}

	cart, err := s.repo.Mutate(ctx, userID, true, func(c *domain.Cart) error {
		if idx := c.IndexOf(productID); idx >= 0 {
			have := c.Items[idx].Quantity
			if p.Stock < have+quantity {
				s.metrics.StockRejected("cart")
				return domain.Invalid("Cannot add more items. Only %d available, you already have %d in cart", p.Stock, have)
			}
			c.Items[idx].Quantity = have + quantity
			return nil
		}
		c.Items = append(c.Items, domain.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  quantity,
			Image:     p.PrimaryImage(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, userID)
	return cart, nil
}

// Get returns the user's cart after dropping lines whose product is gone or
// sold out and clamping quantities to stock. A missing cart is returned empty.
func (s *Service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	ver := s.version(ctx, userID)
	if cached, ok := s.cached(ctx, userID, ver); ok {
		return cached, nil
	}

	cart, err := s.repo.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.EmptyCart(userID), nil
	}
	if err != nil {
		return nil, err
	}

	stock, err := s.stockLevels(ctx, cart.Items)
	if err != nil {
		return nil, err
	}
	preview := *cart
	preview.Items = append([]domain.CartItem(nil), cart.Items...)
	if repair(&preview, stock) {
		cart, err = s.repo.Mutate(ctx, userID, false, func(c *domain.Cart) error {
			fresh, err := s.stockLevels(ctx, c.Items)
			if err != nil {
				return err
			}
			repair(c, fresh)
			return nil
		})
		if err != nil {
			return nil, cartMissing(err)
		}
		s.logger.Info("cart repaired", zap.String("user_id", userID), zap.Int("lines", len(cart.Items)))
	}
	s.store(ctx, cart, ver)
	return cart, nil
}

// Count returns the number of units in the cart, 0 when there is none.
func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	if cached, ok := s.cached(ctx, userID, s.version(ctx, userID)); ok {
		return cached.TotalItems, nil
	}
	cart, err := s.repo.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cart.TotalItems, nil
}

// Update sets the quantity of a line already in the cart. A nil quantity
// means the field was missing from the request.
func (s *Service) Update(ctx context.Context, userID, productID string, quantity *int) (*domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" || quantity == nil {
		return nil, domain.Invalid("Product ID and quantity are required")
	}
	qty := *quantity
	if qty <= 0 {
		return nil, domain.Invalid("Quantity must be greater than 0")
	}

	cart, err := s.repo.Mutate(ctx, userID, false, func(c *domain.Cart) error {
		idx := c.IndexOf(productID)
		if idx < 0 {
			return domain.NotFound("Product not found in cart")
		}
		p, err := s.product(ctx, productID)
		if err != nil {
			return err
		}
		if p.Stock < qty {
			s.metrics.StockRejected("cart")
			return &domain.InsufficientStockError{ProductID: p.ID, Available: p.Stock, Requested: qty}
		}
		c.Items[idx].Quantity = qty
		return nil
	})
	if err != nil {
		return nil, cartMissing(err)
	}
	s.Invalidate(ctx, userID)
	return cart, nil
}

// Remove drops the line for productID.
func (s *Service) Remove(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.Invalid("Product ID is required")
	}
	cart, err := s.repo.Mutate(ctx, userID, false, func(c *domain.Cart) error {
		if !c.Remove(productID) {
			return domain.NotFound("Product not found in cart")
		}
		return nil
	})
	if err != nil {
		return nil, cartMissing(err)
	}
	s.Invalidate(ctx, userID)
	return cart, nil
}

// Clear empties the cart, creating it when missing.
func (s *Service) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.Mutate(ctx, userID, true, func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, userID)
	return cart, nil
}

// Checkout is a priced preview of the cart at current product prices.
type Checkout struct {
	Items []domain.CartItem `json:"cartItems"`
	pricing.Quote
}

// Checkout re-validates every line against current stock and prices it.
func (s *Service) Checkout(ctx context.Context, userID string) (*Checkout, error) {
	cart, err := s.repo.GetByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && len(cart.Items) == 0) {
		return nil, domain.Invalid("Cart is empty")
	}
	if err != nil {
		return nil, err
	}

	out := &Checkout{Items: make([]domain.CartItem, 0, len(cart.Items))}
	var itemPrice int64
	for _, it := range cart.Items {
		p, err := s.products.GetByID(ctx, it.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Product " + it.Name + " is no longer available")
		}
		if err != nil {
			return nil, err
		}
		if p.Stock < it.Quantity {
			s.metrics.StockRejected("checkout")
			return nil, &domain.InsufficientStockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: it.Quantity}
		}
		line := domain.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Image:     p.PrimaryImage(),
		}
		itemPrice += line.Price * int64(line.Quantity)
		out.Items = append(out.Items, line)
	}
	out.Quote = s.rules.Quote(itemPrice)
	return out, nil
}

// Invalidate bumps the cart version of userID so cached snapshots, including
// one a concurrent read is about to store, are never served again.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if _, err := s.cache.Incr(ctx, versionKey(userID)); err != nil {
		s.logger.Warn("cart cache invalidate", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *Service) product(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("Product not found")
	}
	return p, err
}

// stockLevels maps product id to current stock. Missing products are absent.
func (s *Service) stockLevels(ctx context.Context, items []domain.CartItem) (map[string]int, error) {
	out := make(map[string]int, len(items))
	for _, it := range items {
		p, err := s.products.GetByID(ctx, it.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[p.ID] = p.Stock
	}
	return out, nil
}

// repair applies the stock levels to c and reports whether anything changed.
func repair(c *domain.Cart, stock map[string]int) bool {
	changed := false
	kept := make([]domain.CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		available, ok := stock[it.ProductID]
		if !ok || available <= 0 {
			changed = true
			continue
		}
		if it.Quantity > available {
			it.Quantity = available
			changed = true
		}
		kept = append(kept, it)
	}
	c.Items = kept
	c.Recalculate()
	return changed
}

// version is read before the cart is loaded. An empty version disables
// caching for the call.
func (s *Service) version(ctx context.Context, userID string) string {
	if s.ttl <= 0 {
		return ""
	}
	raw, err := s.cache.Get(ctx, versionKey(userID))
	if errors.Is(err, cache.ErrMiss) {
		return "0"
	}
	if err != nil {
		s.logger.Warn("cart cache version", zap.String("user_id", userID), zap.Error(err))
		return ""
	}
	if _, err := strconv.ParseInt(string(raw), 10, 64); err != nil {
		return ""
	}
	return string(raw)
}

func (s *Service) cached(ctx context.Context, userID, ver string) (*domain.Cart, bool) {
	if ver == "" {
		return nil, false
	}
	var c domain.Cart
	err := cache.GetJSON(ctx, s.cache, cacheKey(userID, ver), &c)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("cart cache read", zap.String("user_id", userID), zap.Error(err))
		}
		s.metrics.CacheLookup(cacheName, false)
		return nil, false
	}
	s.metrics.CacheLookup(cacheName, true)
	return &c, true
}

// store caches a cart read under version ver. A write that lands after ver
// was read has already moved the version on, so the entry is unreachable.
func (s *Service) store(ctx context.Context, c *domain.Cart, ver string) {
	if ver == "" {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, cacheKey(c.UserID, ver), c, s.ttl); err != nil {
		s.logger.Warn("cart cache write", zap.String("user_id", c.UserID), zap.Error(err))
	}
}

func cacheKey(userID, ver string) string {
	return "cart:" + userID + ":v" + ver
}

func versionKey(userID string) string {
	return "cart:ver:" + userID
}

// cartMissing turns the repository's bare not-found for the cart row into the
// client message, leaving line-level not-found errors untouched.
func cartMissing(err error) error {
	var nf *domain.NotFoundError
	if errors.Is(err, domain.ErrNotFound) && !errors.As(err, &nf) {
		return domain.NotFound("Cart not found")
	}
	return err
}
