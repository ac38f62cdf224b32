package order

import (
	"errors"
	"fmt"

	"florashop-be/internal/apperr"
)

var (
	ErrOrderNotFound = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrEmptyCart     = apperr.Validation("cart is empty")
	ErrStatusChanged = fmt.Errorf("order was modified concurrently: %w", apperr.ErrInvalidTransition)

	// ErrDuplicateIdempotencyKey means another request with the same key
	// already committed an order.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrOrderNumberTaken means the generated order number collided. Nothing
	// was written, so the checkout can simply be retried.
	ErrOrderNumberTaken = apperr.Unavailable("order.insert", errors.New("order number already taken"))
)

const (
	pgUniqueViolation     = "23505"
	idempotencyConstraint = "orders_user_idempotency_key"
	orderNumberConstraint = "orders_order_number_key"
)
