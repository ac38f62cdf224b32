package product

import (
	"context"
	"strings"
	"time"

	"florashop-be/internal/logger"
	"florashop-be/internal/utils"

	"go.uber.org/zap"
)

// Service is the staff back-office over the catalog.
type Service interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, opts ListOptions) ([]*Product, utils.Pagination, error)
	CreateProduct(ctx context.Context, input CreateInput) (*Product, error)
	UpdateProduct(ctx context.Context, id string, input UpdateInput) (*Product, error)
	DeactivateProduct(ctx context.Context, id string) error
	SetStock(ctx context.Context, id string, stock int) (*Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, opts ListOptions) ([]*Product, utils.Pagination, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListProducts"),
	)
	start := time.Now()

	opts.Page, opts.Limit = utils.NormalizePage(opts.Page, opts.Limit)

	products, total, err := s.repo.List(ctx, opts)
	if err != nil {
		log.Error("failed to list products", zap.Error(err))
		return nil, utils.Pagination{}, err
	}

	log.Debug("list products success",
		zap.Int("count", len(products)),
		zap.Int("total", total),
		zap.Duration("duration", time.Since(start)),
	)
	return products, utils.NewPagination(opts.Page, opts.Limit, total), nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateInput) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateProduct"),
	)

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrInvalidName
	}
	if input.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	if input.Stock < 0 {
		return nil, ErrNegativeStock
	}

	p, err := s.repo.Create(ctx, &Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		IsActive:    true,
	})
	if err != nil {
		log.Error("failed to create product", zap.Error(err))
		return nil, err
	}

	log.Info("product created", zap.String("product_id", p.ID))
	return p, nil
}

func (s *service) UpdateProduct(ctx context.Context, id string, input UpdateInput) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidName
		}
		p.Name = name
	}
	if input.Price != nil {
		if *input.Price <= 0 {
			return nil, ErrInvalidPrice
		}
		p.Price = *input.Price
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Category != nil {
		p.Category = *input.Category
	}
	if input.ImageURL != nil {
		p.ImageURL = *input.ImageURL
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}

	updated, err := s.repo.Update(ctx, p)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update product",
			zap.String("product_id", id),
			zap.Error(err),
		)
		return nil, err
	}
	return updated, nil
}

// DeactivateProduct hides the product from sale. Rows are never deleted so
// existing order lines keep a valid reference.
func (s *service) DeactivateProduct(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("product deactivated", zap.String("product_id", id))
	return nil
}

func (s *service) SetStock(ctx context.Context, id string, stock int) (*Product, error) {
	if stock < 0 {
		return nil, ErrNegativeStock
	}
	p, err := s.repo.SetStock(ctx, id, stock)
	if err != nil {
		return nil, err
	}
	logger.FromCtx(ctx).Info("stock set",
		zap.String("product_id", id),
		zap.Int("stock", stock),
	)
	return p, nil
}
