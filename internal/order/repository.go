package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"florashop-be/internal/apperr"
	"florashop-be/internal/cart"
	"florashop-be/internal/db"
	"florashop-be/internal/logger"
	"florashop-be/internal/payment"
	"florashop-be/internal/product"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// CreateOrderTx commits the order in one transaction: decrement stock for
	// every line, insert the order and its items, then take the ordered
	// quantities off the cart.
	CreateOrderTx(ctx context.Context, o *Order, cartID string) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Order, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Order, int, error)
	// UpdateStatus only applies when the stored status still equals from.
	UpdateStatus(ctx context.Context, id string, from, to Status) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, from, to payment.Status) (*Order, error)
}

type repository struct {
	conn     *sql.DB
	products product.Repository
	carts    cart.Repository
}

func NewRepository(conn *sql.DB, products product.Repository, carts cart.Repository) Repository {
	return &repository{conn: conn, products: products, carts: carts}
}

func (r *repository) CreateOrderTx(ctx context.Context, o *Order, cartID string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrderTx"),
		zap.String("order_id", o.ID),
	)

	err := db.InTx(ctx, r.conn, func(tx *sql.Tx) error {
		products := r.products.WithTx(tx)
		// Row locks are always taken in product id order so two checkouts
		// over the same products cannot deadlock.
		for _, it := range byProduct(o.Items) {
			if _, err := products.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}

		if err := insertOrder(ctx, tx, o); err != nil {
			return err
		}

		for i, it := range o.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, it.ID, o.ID, it.ProductID, it.ProductName, it.Quantity, it.Price, i); err != nil {
				return apperr.FromInfra("order.insertItem", err)
			}
		}

		if cartID != "" {
			if err := r.carts.WithTx(tx).RemoveOrdered(ctx, cartID, orderedLines(o.Items)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Info("order commit rolled back", zap.Error(err))
		return err
	}
	return nil
}

func byProduct(items []OrderItem) []OrderItem {
	sorted := append([]OrderItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	return sorted
}

// orderedLines lists the cart lines the order consumed and how much of each.
func orderedLines(items []OrderItem) []cart.CartItem {
	lines := make([]cart.CartItem, 0, len(items))
	for _, it := range items {
		if it.cartLineID == "" {
			continue
		}
		lines = append(lines, cart.CartItem{ID: it.cartLineID, ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

func insertOrder(ctx context.Context, tx *sql.Tx, o *Order) error {
	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}
	cust, err := json.Marshal(o.Customer)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, total, status,
			payment_method, payment_status, payment_reference,
			shipping_address, customer, idempotency_key, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		o.ID, o.OrderNumber, o.UserID, o.Total, string(o.Status),
		string(o.PaymentMethod), string(o.PaymentStatus), o.PaymentReference,
		addr, cust, nullString(o.IdempotencyKey), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			switch pqErr.Constraint {
			case idempotencyConstraint:
				return ErrDuplicateIdempotencyKey
			case orderNumberConstraint:
				return ErrOrderNumberTaken
			}
		}
		return apperr.FromInfra("order.insert", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const orderColumns = `id, order_number, user_id, total, status, payment_method, payment_status, ` +
	`payment_reference, shipping_address, customer, COALESCE(idempotency_key, ''), created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*Order, error) {
	var (
		o                             Order
		status, method, paymentStatus string
		addr, cust                    []byte
	)
	if err := s.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Total, &status, &method, &paymentStatus,
		&o.PaymentReference, &addr, &cust, &o.IdempotencyKey, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	o.PaymentMethod = payment.Method(method)
	o.PaymentStatus = payment.Status(paymentStatus)
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if err := json.Unmarshal(cust, &o.Customer); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}
	o.Items = []OrderItem{}
	return &o, nil
}

func (r *repository) getOne(ctx context.Context, op, where string, args ...any) (*Order, error) {
	o, err := scanOrder(r.conn.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, apperr.FromInfra(op, err)
	}
	if err := r.attachItems(ctx, []*Order{o}); err != nil {
		return nil, apperr.FromInfra(op, err)
	}
	return o, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	return r.getOne(ctx, "order.GetByID", `id = $1`, id)
}

func (r *repository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*Order, error) {
	return r.getOne(ctx, "order.GetByIdempotencyKey", `user_id = $1 AND idempotency_key = $2`, userID, key)
}

func (r *repository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Order, int, error) {
	return r.list(ctx, "order.ListByUser", `WHERE user_id = $1`, []any{userID}, limit, offset)
}

func (r *repository) ListAll(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	return r.list(ctx, "order.ListAll", ``, nil, limit, offset)
}

func (r *repository) list(ctx context.Context, op, where string, args []any, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.FromInfra(op, err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		orderColumns, where, n+1, n+2)
	rows, err := r.conn.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, apperr.FromInfra(op, err)
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, apperr.FromInfra(op, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.FromInfra(op, err)
	}
	rows.Close()

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, apperr.FromInfra(op, err)
	}
	return orders, total, nil
}

func (r *repository) attachItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.conn.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it      OrderItem
			orderID string
		)
		if err := rows.Scan(&it.ID, &orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id string, from, to Status) (*Order, error) {
	return r.compareAndSet(ctx, "order.UpdateStatus", "status", id, string(from), string(to))
}

func (r *repository) UpdatePaymentStatus(ctx context.Context, id string, from, to payment.Status) (*Order, error) {
	return r.compareAndSet(ctx, "order.UpdatePaymentStatus", "payment_status", id, string(from), string(to))
}

func (r *repository) compareAndSet(ctx context.Context, op, column, id, from, to string) (*Order, error) {
	res, err := r.conn.ExecContext(ctx, fmt.Sprintf(`
		UPDATE orders
		SET %[1]s = $3, updated_at = NOW()
		WHERE id = $1 AND %[1]s = $2
	`, column), id, from, to)
	if err != nil {
		return nil, apperr.FromInfra(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, apperr.FromInfra(op, err)
	}
	if n == 0 {
		// Either gone or someone else moved it first.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrStatusChanged
	}
	return r.GetByID(ctx, id)
}
