package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	orderrepo "storefront/internal/repository/order"
)

const maxIdempotencyKeyLen = 255

// CacheInvalidator drops derived read caches after an order changes stock.
type CacheInvalidator interface {
	InvalidateCart(ctx context.Context, userID string)
	InvalidateProducts(ctx context.Context)
}

type Service struct {
	repo     orderrepo.Repository
	payments payment.Gateway
	currency string
	rules    pricing.Rules
	caches   CacheInvalidator
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

type Options struct {
	Payments payment.Gateway
	Currency string
	Pricing  *pricing.Rules
	Caches   CacheInvalidator
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

func New(repo orderrepo.Repository, opts Options) *Service {
	if opts.Payments == nil {
		opts.Payments = payment.Unconfigured{}
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
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
		payments: opts.Payments,
		currency: opts.Currency,
		rules:    rules,
		caches:   opts.Caches,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

type ItemInput struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

type CreateInput struct {
	ShippingInfo   domain.ShippingInfo `json:"shippingInfo"`
	OrderItems     []ItemInput         `json:"orderItems"`
	PaymentMethod  string              `json:"paymentMethod"`
	PaymentInfo    *domain.PaymentInfo `json:"paymentInfo"`
	FromCart       bool                `json:"fromCart"`
	IdempotencyKey string              `json:"-"`
}

// Create places an order for userID. Items come from the request or, when
// none are given or FromCart is set, from the user's cart which the
// repository reads and clears in the order transaction. The second return
// value reports an idempotent replay.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*domain.Order, bool, error) {
	shipping := domain.ShippingInfo{
		Address: strings.TrimSpace(in.ShippingInfo.Address),
		City:    strings.TrimSpace(in.ShippingInfo.City),
		Country: strings.TrimSpace(in.ShippingInfo.Country),
	}
	if shipping.Address == "" || shipping.City == "" || shipping.Country == "" {
		return nil, false, domain.Invalid("Please provide shipping address, city and country")
	}

	method, err := parsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, false, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return nil, false, domain.Invalid("Idempotency-Key is too long")
	}

	fromCart := in.FromCart || len(in.OrderItems) == 0
	var lines []orderrepo.LineRequest
	if !fromCart {
		lines, err = requestLines(in.OrderItems)
		if err != nil {
			return nil, false, err
		}
	}

	var (
		info   *domain.PaymentInfo
		paidAt *time.Time
	)
	if in.PaymentInfo != nil && (in.PaymentInfo.ID != "" || in.PaymentInfo.Status != "") {
		info = &domain.PaymentInfo{ID: strings.TrimSpace(in.PaymentInfo.ID), Status: strings.TrimSpace(in.PaymentInfo.Status)}
		if method == domain.PaymentOnline && isPaid(info.Status) {
			t := s.now().UTC()
			paidAt = &t
		}
	}

	order, replayed, err := s.repo.Create(ctx, orderrepo.CreateInput{
		UserID:         userID,
		ShippingInfo:   shipping,
		Lines:          lines,
		PaymentMethod:  method,
		PaymentInfo:    info,
		PaidAt:         paidAt,
		IdempotencyKey: key,
		FromCart:       fromCart,
		Price:          s.price,
	})
	if err != nil {
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) {
			s.metrics.StockRejected("order")
			s.logger.Info("order rejected for stock",
				zap.String("user_id", userID),
				zap.String("product_id", stockErr.ProductID),
				zap.Int("available", stockErr.Available),
				zap.Int("requested", stockErr.Requested),
			)
		}
		return nil, false, err
	}
	if replayed {
		s.logger.Info("order replayed", zap.String("order_id", order.ID), zap.String("user_id", userID))
		return order, true, nil
	}

	s.metrics.OrderPlaced(string(method))
	if s.caches != nil {
		s.caches.InvalidateProducts(ctx)
		if fromCart {
			s.caches.InvalidateCart(ctx, userID)
		}
	}
	return order, false, nil
}

func (s *Service) price(o *domain.Order) {
	q := s.rules.Quote(o.ItemPrice)
	o.ItemPrice = q.ItemPrice
	o.Tax = q.Tax
	o.ShippingCharges = q.ShippingCharges
	o.TotalAmount = q.TotalAmount
}

func (s *Service) MyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns the order when viewer owns it or is an admin.
func (s *Service) Get(ctx context.Context, viewer domain.User, id string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("no order found")
	}
	if err != nil {
		return nil, err
	}
	if o.UserID != viewer.ID && !viewer.IsAdmin() {
		return nil, domain.NotFound("no order found")
	}
	return o, nil
}

func (s *Service) AdminList(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListAll(ctx)
}

// StatusChange describes a completed status transition.
type StatusChange struct {
	OrderID     string             `json:"orderId"`
	OldStatus   domain.OrderStatus `json:"oldStatus"`
	NewStatus   domain.OrderStatus `json:"newStatus"`
	DeliveredAt *time.Time         `json:"deliveredAt,omitempty"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// ChangeStatus moves the order to target, or to the next status when target
// is empty. Statuses never move backwards.
func (s *Service) ChangeStatus(ctx context.Context, id, target string) (*StatusChange, error) {
	target = strings.TrimSpace(target)
	var old domain.OrderStatus
	o, err := s.repo.UpdateStatus(ctx, id, func(o *domain.Order) (domain.OrderStatus, error) {
		old = o.Status
		if target == "" {
			next, ok := o.Status.Next()
			if !ok {
				return "", domain.Invalid("Order already delivered - cannot advance further")
			}
			return next, nil
		}
		st, ok := domain.ParseOrderStatus(target)
		if !ok {
			return "", domain.Invalid("Invalid order status. Valid statuses are: %s", validStatuses())
		}
		if st == o.Status {
			return "", domain.Invalid("Order is already %s", st)
		}
		if !o.Status.CanMoveTo(st) {
			return "", domain.Invalid("Order cannot move from %s back to %s", o.Status, st)
		}
		return st, nil
	})
	if err != nil {
		var nf *domain.NotFoundError
		if errors.Is(err, domain.ErrNotFound) && !errors.As(err, &nf) {
			return nil, domain.NotFound("Order not found")
		}
		return nil, err
	}
	s.logger.Info("order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(old)),
		zap.String("to", string(o.Status)),
	)
	return &StatusChange{
		OrderID:     o.ID,
		OldStatus:   old,
		NewStatus:   o.Status,
		DeliveredAt: o.DeliveredAt,
		UpdatedAt:   o.UpdatedAt,
	}, nil
}

// CreatePayment starts a provider payment for amount whole currency units and
// returns the client secret.
func (s *Service) CreatePayment(ctx context.Context, amount int64) (string, error) {
	if amount <= 0 {
		return "", domain.Invalid("Total Amount is require")
	}
	intent, err := s.payments.CreateIntent(ctx, pricing.MinorUnits(amount), s.currency)
	if err != nil {
		if !errors.Is(err, payment.ErrNotConfigured) {
			s.logger.Error("create payment intent", zap.Int64("amount", amount), zap.Error(err))
		}
		return "", err
	}
	return intent.ClientSecret, nil
}

func requestLines(items []ItemInput) ([]orderrepo.LineRequest, error) {
	lines := make([]orderrepo.LineRequest, 0, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.ProductID)
		if id == "" {
			return nil, domain.Invalid("Product ID is required")
		}
		if it.Quantity <= 0 {
			return nil, domain.Invalid("Quantity must be greater than 0")
		}
		lines = append(lines, orderrepo.LineRequest{ProductID: id, Quantity: it.Quantity})
	}
	return lines, nil
}

func parsePaymentMethod(raw string) (domain.PaymentMethod, error) {
	switch domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", domain.PaymentCOD:
		return domain.PaymentCOD, nil
	case domain.PaymentOnline:
		return domain.PaymentOnline, nil
	}
	return "", domain.Invalid("payment method must be COD or ONLINE")
}

func isPaid(status string) bool {
	switch strings.ToLower(status) {
	case "paid", "succeeded":
		return true
	}
	return false
}

func validStatuses() string {
	names := make([]string, len(domain.OrderStatuses))
	for i, st := range domain.OrderStatuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}
