// Package stock re-checks a cart against current catalog stock right before
// an order is committed.
package stock

import (
	"context"
	"fmt"

	"florashop-be/internal/apperr"
	"florashop-be/internal/cart"
	"florashop-be/internal/logger"
	"florashop-be/internal/product"

	"go.uber.org/zap"
)

type Catalog interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]*product.Product, error)
}

// Result lists every line that cannot be fulfilled. Valid is true only when
// Errors is empty.
type Result struct {
	Valid  bool                   `json:"valid"`
	Errors []apperr.StockShortage `json:"errors"`
}

// Err returns a *apperr.StockError for an invalid result and nil otherwise.
func (r *Result) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	return apperr.NewStockError(r.Errors...)
}

type Validator struct {
	catalog Catalog
}

func NewValidator(catalog Catalog) *Validator {
	return &Validator{catalog: catalog}
}

// Validate always reads the catalog fresh. Business problems are reported in
// the result; the error is reserved for infrastructure failures.
func (v *Validator) Validate(ctx context.Context, c *cart.Cart) (*Result, error) {
	res := &Result{Valid: true, Errors: []apperr.StockShortage{}}
	if c.IsEmpty() {
		return res, nil
	}

	// Lines for the same product are summed so a duplicate can't slip past.
	requested := make(map[string]int, len(c.Items))
	names := make(map[string]string, len(c.Items))
	order := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if _, seen := requested[it.ProductID]; !seen {
			order = append(order, it.ProductID)
			names[it.ProductID] = it.ProductName
		}
		requested[it.ProductID] += it.Quantity
	}

	products, err := v.catalog.GetByIDs(ctx, order)
	if err != nil {
		return nil, apperr.FromInfra("stock.Validate", err)
	}

	for _, id := range order {
		want := requested[id]
		p, ok := products[id]
		switch {
		case !ok || !p.IsActive:
			res.Errors = append(res.Errors, apperr.StockShortage{
				ProductID:   id,
				ProductName: names[id],
				Requested:   want,
				Available:   0,
				Message:     fmt.Sprintf("%s is no longer available", names[id]),
			})
		case p.Stock < want:
			res.Errors = append(res.Errors, apperr.StockShortage{
				ProductID:   id,
				ProductName: p.Name,
				Requested:   want,
				Available:   p.Stock,
				Message:     fmt.Sprintf("only %d of %s left in stock", p.Stock, p.Name),
			})
		}
	}

	res.Valid = len(res.Errors) == 0
	if !res.Valid {
		logger.FromCtx(ctx).Info("stock validation failed",
			zap.String("cart_id", c.ID),
			zap.Int("failing_lines", len(res.Errors)),
		)
	}
	return res, nil
}
