package cart

import (
	"fmt"

	"florashop-be/internal/apperr"
)

var (
	ErrInvalidQuantity    = apperr.Validation("quantity must be greater than zero")
	ErrCartItemNotFound   = fmt.Errorf("cart item %w", apperr.ErrNotFound)
	ErrProductUnavailable = fmt.Errorf("product %w or no longer available", apperr.ErrNotFound)
	ErrMissingUser        = apperr.ErrUnauthorized
)
