package order

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/repository/pgutil"
)

const idempotencyIndex = "orders_idempotency_idx"

const orderColumns = `o.id::text, o.user_id::text, o.shipping_address, o.shipping_city, o.shipping_country,
o.payment_method, o.payment_id, o.payment_status, o.item_price, o.tax, o.shipping_charges, o.total_amount,
o.status, o.paid_at, o.delivered_at, COALESCE(o.idempotency_key, ''), o.created_at, o.updated_at`

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

type lockedProduct struct {
	name  string
	price int64
	stock int
	image string
}

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Order, bool, error) {
	if !in.FromCart && len(mergeLines(in.Lines)) == 0 {
		return nil, false, domain.Invalid("Order must contain at least one item")
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	if in.IdempotencyKey != "" {
		existing, err := r.findByKey(ctx, tx, in.UserID, in.IdempotencyKey)
		switch {
		case err == nil:
			return existing, true, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, false, err
		}
	}

	lines := mergeLines(in.Lines)
	var cartID string
	if in.FromCart {
		cartID, lines, err = lockCartLines(ctx, tx, in.UserID)
		if err != nil {
			return nil, false, err
		}
	}

	// Rows are locked in id order so concurrent checkouts cannot deadlock.
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	sort.Strings(ids)

	locked := make(map[string]lockedProduct, len(ids))
	for _, id := range ids {
		var p lockedProduct
		err := tx.QueryRow(ctx, `
SELECT p.name, p.price, p.stock,
       COALESCE((SELECT url FROM product_images i WHERE i.product_id = p.id ORDER BY i.created_at ASC, i.id ASC LIMIT 1), '')
FROM products p
WHERE p.id = $1
FOR UPDATE OF p
`, id).Scan(&p.name, &p.price, &p.stock, &p.image)
		if err != nil {
			if errors.Is(pgutil.Translate(err), domain.ErrNotFound) {
				return nil, false, domain.NotFound("Product not found")
			}
			return nil, false, err
		}
		locked[id] = p
	}

	order := &domain.Order{
		UserID:         in.UserID,
		ShippingInfo:   in.ShippingInfo,
		PaymentMethod:  in.PaymentMethod,
		PaymentInfo:    in.PaymentInfo,
		PaidAt:         in.PaidAt,
		Status:         domain.StatusProcessing,
		IdempotencyKey: in.IdempotencyKey,
		Items:          make([]domain.OrderItem, 0, len(lines)),
	}
	for _, l := range lines {
		p := locked[l.ProductID]
		if p.stock < l.Quantity {
			return nil, false, &domain.InsufficientStockError{
				ProductID: l.ProductID,
				Name:      p.name,
				Available: p.stock,
				Requested: l.Quantity,
			}
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: l.ProductID,
			Name:      p.name,
			Price:     p.price,
			Quantity:  l.Quantity,
			Image:     p.image,
		})
		order.ItemPrice += p.price * int64(l.Quantity)
	}
	order.TotalAmount = order.ItemPrice
	if in.Price != nil {
		in.Price(order)
	}

	for _, it := range order.Items {
		if _, err := tx.Exec(ctx, `
UPDATE products
SET stock = stock - $2, updated_at = NOW()
WHERE id = $1
`, it.ProductID, it.Quantity); err != nil {
			return nil, false, err
		}
	}

	var paymentID, paymentStatus *string
	if order.PaymentInfo != nil {
		paymentID, paymentStatus = &order.PaymentInfo.ID, &order.PaymentInfo.Status
	}
	var key *string
	if order.IdempotencyKey != "" {
		key = &order.IdempotencyKey
	}
	err = tx.QueryRow(ctx, `
INSERT INTO orders (
    user_id, shipping_address, shipping_city, shipping_country, payment_method,
    payment_id, payment_status, item_price, tax, shipping_charges, total_amount,
    status, paid_at, idempotency_key
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id::text, created_at, updated_at
`,
		order.UserID, order.ShippingInfo.Address, order.ShippingInfo.City, order.ShippingInfo.Country,
		string(order.PaymentMethod), paymentID, paymentStatus,
		order.ItemPrice, order.Tax, order.ShippingCharges, order.TotalAmount,
		string(order.Status), order.PaidAt, key,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if pgutil.IsUniqueViolation(err, idempotencyIndex) {
			// A concurrent request with the same key committed first.
			_ = tx.Rollback(ctx)
			existing, ferr := r.findByKey(ctx, r.pool, in.UserID, in.IdempotencyKey)
			if ferr != nil {
				return nil, false, ferr
			}
			return existing, true, nil
		}
		return nil, false, pgutil.Translate(err)
	}

	batch := &pgx.Batch{}
	for i, it := range order.Items {
		batch.Queue(`
INSERT INTO order_items (order_id, line_no, product_id, name, price, quantity, image)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, order.ID, i, it.ProductID, it.Name, it.Price, it.Quantity, it.Image)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, false, err
	}

	if in.FromCart {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
			return nil, false, err
		}
		if _, err := tx.Exec(ctx, `
UPDATE carts
SET total_items = 0, total_amount = 0, updated_at = NOW()
WHERE id = $1
`, cartID); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	r.logger.Info("order repo: created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Int("lines", len(order.Items)),
		zap.Int64("total_amount", order.TotalAmount),
	)
	return order, false, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	orders, err := r.queryOrders(ctx, r.pool, `
SELECT `+orderColumns+`
FROM orders o
WHERE o.id = $1
`, id)
	if err != nil {
		return nil, pgutil.Translate(err)
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	return &orders[0], nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := r.queryOrders(ctx, r.pool, `
SELECT `+orderColumns+`
FROM orders o
WHERE o.user_id = $1
ORDER BY o.created_at DESC
`, userID)
	if err != nil {
		r.logger.Error("order repo: list by user", zap.String("user_id", userID), zap.Error(err))
		return nil, pgutil.Translate(err)
	}
	return orders, nil
}

func (r *postgresRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+orderColumns+`, u.name, u.email
FROM orders o
JOIN users u ON u.id = o.user_id
ORDER BY o.created_at DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Order{}
	for rows.Next() {
		var cust domain.OrderCustomer
		o, err := scanOrder(rows, &cust.Name, &cust.Email)
		if err != nil {
			return nil, err
		}
		o.Customer = &cust
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := attachItems(ctx, r.pool, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, fn StatusFunc) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	orders, err := r.queryOrders(ctx, tx, `
SELECT `+orderColumns+`
FROM orders o
WHERE o.id = $1
FOR UPDATE
`, id)
	if err != nil {
		return nil, pgutil.Translate(err)
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	order := &orders[0]

	next, err := fn(order)
	if err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx, `
UPDATE orders
SET status = $2,
    delivered_at = CASE WHEN $2 = 'delivered' THEN NOW() ELSE delivered_at END,
    updated_at = NOW()
WHERE id = $1
RETURNING delivered_at, updated_at
`, id, string(next)).Scan(&order.DeliveredAt, &order.UpdatedAt); err != nil {
		return nil, pgutil.Translate(err)
	}
	order.Status = next

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("order repo: status changed", zap.String("order_id", id), zap.String("status", string(next)))
	return order, nil
}

func (r *postgresRepo) findByKey(ctx context.Context, q querier, userID, key string) (*domain.Order, error) {
	orders, err := r.queryOrders(ctx, q, `
SELECT `+orderColumns+`
FROM orders o
WHERE o.user_id = $1 AND o.idempotency_key = $2
`, userID, key)
	if err != nil {
		return nil, pgutil.Translate(err)
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	return &orders[0], nil
}

func (r *postgresRepo) queryOrders(ctx context.Context, q querier, sql string, args ...any) ([]domain.Order, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := attachItems(ctx, q, result); err != nil {
		return nil, err
	}
	return result, nil
}

func attachItems(ctx context.Context, q querier, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []domain.OrderItem{}
	}

	rows, err := q.Query(ctx, `
SELECT order_id::text, product_id::text, name, price, quantity, image
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, line_no ASC
`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      domain.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Price, &it.Quantity, &it.Image); err != nil {
			return err
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row, extra ...any) (*domain.Order, error) {
	var (
		o                        domain.Order
		method, status           string
		paymentID, paymentStatus *string
	)
	dest := []any{
		&o.ID,
		&o.UserID,
		&o.ShippingInfo.Address,
		&o.ShippingInfo.City,
		&o.ShippingInfo.Country,
		&method,
		&paymentID,
		&paymentStatus,
		&o.ItemPrice,
		&o.Tax,
		&o.ShippingCharges,
		&o.TotalAmount,
		&status,
		&o.PaidAt,
		&o.DeliveredAt,
		&o.IdempotencyKey,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.Status = domain.OrderStatus(status)
	if paymentID != nil || paymentStatus != nil {
		o.PaymentInfo = &domain.PaymentInfo{}
		if paymentID != nil {
			o.PaymentInfo.ID = *paymentID
		}
		if paymentStatus != nil {
			o.PaymentInfo.Status = *paymentStatus
		}
	}
	return &o, nil
}

// mergeLines sums repeated products and drops non-positive quantities while
// keeping first-seen order.
// lockCartLines locks the user's cart row, which cart mutations also lock, and
// reads its lines so the order covers exactly what gets cleared.
func lockCartLines(ctx context.Context, tx pgx.Tx, userID string) (string, []LineRequest, error) {
	var cartID string
	err := tx.QueryRow(ctx, `
SELECT id::text
FROM carts
WHERE user_id = $1
FOR UPDATE
`, userID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, domain.Invalid("Cart is empty")
	}
	if err != nil {
		return "", nil, pgutil.Translate(err)
	}

	rows, err := tx.Query(ctx, `
SELECT product_id::text, quantity
FROM cart_items
WHERE cart_id = $1
ORDER BY position ASC
`, cartID)
	if err != nil {
		return "", nil, err
	}
	defer rows.Close()

	var lines []LineRequest
	for rows.Next() {
		var l LineRequest
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return "", nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return "", nil, err
	}
	lines = mergeLines(lines)
	if len(lines) == 0 {
		return "", nil, domain.Invalid("Cart is empty")
	}
	return cartID, lines, nil
}

func mergeLines(lines []LineRequest) []LineRequest {
	out := make([]LineRequest, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 || l.ProductID == "" {
			continue
		}
		if i, ok := pos[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}
