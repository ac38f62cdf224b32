package cart

import (
	"context"
	"database/sql"
	"errors"

	"florashop-be/internal/apperr"
	"florashop-be/internal/db"
	"florashop-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// GetByUser returns nil, nil when the user has no cart yet.
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	// Create returns the user's cart, inserting it if needed.
	Create(ctx context.Context, userID string) (*Cart, error)
	// SaveItem writes the whole line and returns the id it is stored under,
	// which is the existing line's id when the product was already in the
	// cart. Concurrent writes to the same product resolve last-write-wins.
	SaveItem(ctx context.Context, cartID string, item CartItem) (string, error)
	DeleteItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) error
	// RemoveOrdered takes each line's Quantity off the line with the same ID.
	// Lines with nothing left are deleted; lines raised or added since the
	// order was taken keep the rest.
	RemoveOrdered(ctx context.Context, cartID string, lines []CartItem) error
	WithTx(tx db.DBTX) Repository
}

type repository struct {
	db db.DBTX
}

func NewRepository(conn db.DBTX) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx db.DBTX) Repository {
	return &repository{db: tx}
}

func (r *repository) GetByUser(ctx context.Context, userID string) (*Cart, error) {
	c := &Cart{UserID: userID, Items: []CartItem{}}

	err := r.db.QueryRowContext(ctx, `
	SELECT id, created_at, updated_at
	FROM carts
	WHERE user_id = $1
	`, userID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.FromInfra("cart.GetByUser", err)
	}

	rows, err := r.db.QueryContext(ctx, `
	SELECT id, product_id, product_name, quantity, price, created_at, updated_at
	FROM cart_items
	WHERE cart_id = $1
	ORDER BY created_at, id
	`, c.ID)
	if err != nil {
		return nil, apperr.FromInfra("cart.GetByUser", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it CartItem
		if err := rows.Scan(
			&it.ID,
			&it.ProductID,
			&it.ProductName,
			&it.Quantity,
			&it.Price,
			&it.CreatedAt,
			&it.UpdatedAt,
		); err != nil {
			return nil, apperr.FromInfra("cart.GetByUser", err)
		}
		if it.UpdatedAt.After(c.UpdatedAt) {
			c.UpdatedAt = it.UpdatedAt
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromInfra("cart.GetByUser", err)
	}

	return c, nil
}

func (r *repository) Create(ctx context.Context, userID string) (*Cart, error) {
	c := &Cart{UserID: userID, Items: []CartItem{}}

	// The no-op update makes RETURNING yield the existing row on conflict.
	err := r.db.QueryRowContext(ctx, `
	INSERT INTO carts (id, user_id)
	VALUES ($1, $2)
	ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
	RETURNING id, created_at, updated_at
	`, uuid.NewString(), userID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to create cart",
			zap.String("layer", "repository"),
			zap.Error(err),
		)
		return nil, apperr.FromInfra("cart.Create", err)
	}
	return c, nil
}

func (r *repository) SaveItem(ctx context.Context, cartID string, item CartItem) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
	INSERT INTO cart_items (id, cart_id, product_id, product_name, quantity, price, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (cart_id, product_id)
	DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	RETURNING id
	`,
		item.ID,
		cartID,
		item.ProductID,
		item.ProductName,
		item.Quantity,
		item.Price,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", apperr.FromInfra("cart.SaveItem", err)
	}
	return id, nil
}

// DeleteItem succeeds whether or not the line exists.
func (r *repository) DeleteItem(ctx context.Context, cartID, itemID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`, cartID, itemID)
	if err != nil {
		return apperr.FromInfra("cart.DeleteItem", err)
	}
	return nil
}

func (r *repository) Clear(ctx context.Context, cartID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return apperr.FromInfra("cart.Clear", err)
	}
	return nil
}

func (r *repository) RemoveOrdered(ctx context.Context, cartID string, lines []CartItem) error {
	if len(lines) == 0 {
		return nil
	}
	ids := make([]string, 0, len(lines))
	qtys := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ID)
		qtys = append(qtys, int64(l.Quantity))
	}

	// Delete first: after the update a reduced line could match the delete.
	if _, err := r.db.ExecContext(ctx, `
	DELETE FROM cart_items ci
	USING unnest($2::uuid[], $3::int[]) AS o(id, qty)
	WHERE ci.cart_id = $1 AND ci.id = o.id AND ci.quantity <= o.qty
	`, cartID, pq.Array(ids), pq.Array(qtys)); err != nil {
		return apperr.FromInfra("cart.RemoveOrdered", err)
	}

	if _, err := r.db.ExecContext(ctx, `
	UPDATE cart_items ci
	SET quantity = ci.quantity - o.qty, updated_at = NOW()
	FROM unnest($2::uuid[], $3::int[]) AS o(id, qty)
	WHERE ci.cart_id = $1 AND ci.id = o.id AND ci.quantity > o.qty
	`, cartID, pq.Array(ids), pq.Array(qtys)); err != nil {
		return apperr.FromInfra("cart.RemoveOrdered", err)
	}
	return nil
}
