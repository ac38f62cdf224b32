package product

import (
	"fmt"

	"florashop-be/internal/apperr"
)

var (
	ErrProductNotFound = fmt.Errorf("product %w", apperr.ErrNotFound)
	ErrInvalidName     = apperr.Validation("product name is required")
	ErrInvalidPrice    = apperr.Validation("price must be greater than zero")
	ErrNegativeStock   = apperr.Validation("stock cannot be negative")
	ErrInvalidQuantity = apperr.Validation("quantity must be greater than zero")
)
