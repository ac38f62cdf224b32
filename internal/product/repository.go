package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"florashop-be/internal/apperr"
	"florashop-be/internal/db"
	"florashop-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*Product, error)
	List(ctx context.Context, opts ListOptions) ([]*Product, int, error)
	Create(ctx context.Context, p *Product) (*Product, error)
	Update(ctx context.Context, p *Product) (*Product, error)
	Deactivate(ctx context.Context, id string) error
	SetStock(ctx context.Context, id string, stock int) (*Product, error)
	// DecrementStock removes qty units and returns the remaining stock. It
	// never lets stock go negative.
	DecrementStock(ctx context.Context, id string, qty int) (int, error)
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

const productColumns = `id, name, description, price, stock, category, image_url, is_active, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*Product, error) {
	var p Product
	if err := s.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.Category, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, apperr.FromInfra("product.GetByID", err)
	}
	return p, nil
}

// GetByIDs returns the products found, keyed by id. Missing ids are simply
// absent from the map.
func (r *repository) GetByIDs(ctx context.Context, ids []string) (map[string]*Product, error) {
	out := make(map[string]*Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, apperr.FromInfra("product.GetByIDs", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.FromInfra("product.GetByIDs", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.FromInfra("product.GetByIDs", err)
	}
	return out, nil
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]*Product, int, error) {
	var (
		where []string
		args  []any
	)
	if !opts.IncludeInactive {
		where = append(where, "is_active = TRUE")
	}
	if opts.Category != "" {
		args = append(args, opts.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+clause, args...).Scan(&total); err != nil {
		return nil, 0, apperr.FromInfra("product.List", err)
	}

	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)
	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		productColumns, clause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.FromInfra("product.List", err)
	}
	defer rows.Close()

	products := make([]*Product, 0, opts.Limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, apperr.FromInfra("product.List", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.FromInfra("product.List", err)
	}
	return products, total, nil
}

func (r *repository) Create(ctx context.Context, p *Product) (*Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO products (id, name, description, price, stock, category, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL, p.IsActive,
	)
	created, err := scanProduct(row)
	if err != nil {
		return nil, apperr.FromInfra("product.Create", err)
	}
	return created, nil
}

// Update writes the descriptive fields. Stock is managed separately.
func (r *repository) Update(ctx context.Context, p *Product) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5, image_url = $6,
		    is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.ImageURL, p.IsActive,
	)
	updated, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, apperr.FromInfra("product.Update", err)
	}
	return updated, nil
}

func (r *repository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return apperr.FromInfra("product.Deactivate", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.FromInfra("product.Deactivate", err)
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) SetStock(ctx context.Context, id string, stock int) (*Product, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1 RETURNING `+productColumns,
		id, stock)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, apperr.FromInfra("product.SetStock", err)
	}
	return p, nil
}

func (r *repository) DecrementStock(ctx context.Context, id string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "DecrementStock"),
		zap.String("product_id", id),
	)

	var remaining int
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
		RETURNING stock`,
		qty, id,
	).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.FromInfra("product.DecrementStock", err)
	}

	// Nothing updated: either the product is gone or the floor guard held.
	var (
		name      string
		available int
	)
	err = r.db.QueryRowContext(ctx,
		`SELECT name, stock FROM products WHERE id = $1`, id,
	).Scan(&name, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, apperr.FromInfra("product.DecrementStock", err)
	}

	log.Info("stock decrement rejected",
		zap.Int("requested", qty),
		zap.Int("available", available),
	)
	return 0, apperr.NewStockError(apperr.StockShortage{
		ProductID:   id,
		ProductName: name,
		Requested:   qty,
		Available:   available,
		Message:     fmt.Sprintf("only %d of %s left in stock", available, name),
	})
}
