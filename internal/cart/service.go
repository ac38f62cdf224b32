package cart

import (
	"context"
	"errors"
	"time"

	"florashop-be/internal/logger"
	"florashop-be/internal/metrics"
	"florashop-be/internal/product"

	"go.uber.org/zap"
)

// Catalog is the slice of the product repository the cart needs.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

type Service interface {
	GetCart(ctx context.Context, userID string) (*Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error)
	UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, userID, itemID string) (*Cart, error)
	Clear(ctx context.Context, userID string) (*Cart, error)
	GetTotal(ctx context.Context, userID string) (int64, error)
	GetItemCount(ctx context.Context, userID string) (int, error)
	GetQuantityFor(ctx context.Context, userID, productID string) (int, error)
}

type service struct {
	repo    Repository
	catalog Catalog
	cache   Cache
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, catalog Catalog, cache Cache, m *metrics.Metrics) Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &service{
		repo:    repo,
		catalog: catalog,
		cache:   cache,
		metrics: m,
		now:     time.Now,
	}
}

// load reads the cart from the database. A user without a cart gets an
// empty, unsaved one.
func (s *service) load(ctx context.Context, userID string) (*Cart, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	c, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return NewCart(userID), nil
	}
	return c, nil
}

func (s *service) GetCart(ctx context.Context, userID string) (*Cart, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}

	cached, err := s.cache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logger.FromCtx(ctx).Warn("cart cache read failed", zap.Error(err))
	}

	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, c); err != nil {
		logger.FromCtx(ctx).Warn("cart cache write failed", zap.Error(err))
	}
	return c, nil
}

func (s *service) AddItem(ctx context.Context, userID, productID string, quantity int) (c *Cart, err error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddItem"),
		zap.String("product_id", productID),
	)
	defer func() { s.metrics.CartMutation("add", err) }()

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err = s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Validate before creating the cart row so a rejected add leaves nothing behind.
	trial := *c
	trial.Items = append([]CartItem(nil), c.Items...)
	if _, err = trial.AddProduct(p, quantity, s.now()); err != nil {
		log.Info("add to cart rejected", zap.Error(err))
		return nil, err
	}

	if c.ID == "" {
		created, err := s.repo.Create(ctx, userID)
		if err != nil {
			return nil, err
		}
		c.ID, c.CreatedAt = created.ID, created.CreatedAt
	}

	item, err := c.AddProduct(p, quantity, s.now())
	if err != nil {
		return nil, err
	}
	storedID, err := s.repo.SaveItem(ctx, c.ID, item)
	if err != nil {
		log.Error("failed to save cart item", zap.Error(err))
		return nil, err
	}
	if storedID != item.ID {
		// Another device added the same product first; its line id wins.
		c.rekey(item.ProductID, storedID)
		item.ID = storedID
	}

	log.Info("item added to cart",
		zap.String("cart_item_id", item.ID),
		zap.Int("quantity", item.Quantity),
	)
	s.invalidate(ctx, c.UserID)
	return c, nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (c *Cart, err error) {
	defer func() { s.metrics.CartMutation("update", err) }()

	c, err = s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, ok := c.FindItem(itemID)
	if !ok {
		return nil, ErrCartItemNotFound
	}

	if quantity <= 0 {
		return s.removeLine(ctx, c, itemID)
	}

	p, err := s.catalog.GetByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	updated, err := c.SetQuantity(itemID, quantity, p, s.now())
	if err != nil {
		logger.FromCtx(ctx).Info("cart quantity update rejected",
			zap.String("cart_item_id", itemID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		return nil, err
	}
	if _, err = s.repo.SaveItem(ctx, c.ID, updated); err != nil {
		return nil, err
	}

	s.invalidate(ctx, c.UserID)
	return c, nil
}

// RemoveItem is idempotent: removing an absent line succeeds.
func (s *service) RemoveItem(ctx context.Context, userID, itemID string) (c *Cart, err error) {
	defer func() { s.metrics.CartMutation("remove", err) }()

	c, err = s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.removeLine(ctx, c, itemID)
}

func (s *service) removeLine(ctx context.Context, c *Cart, itemID string) (*Cart, error) {
	if c.ID == "" {
		return c, nil
	}
	if err := s.repo.DeleteItem(ctx, c.ID, itemID); err != nil {
		return nil, err
	}
	if c.Remove(itemID) {
		c.UpdatedAt = s.now()
	}
	s.invalidate(ctx, c.UserID)
	return c, nil
}

func (s *service) Clear(ctx context.Context, userID string) (c *Cart, err error) {
	defer func() { s.metrics.CartMutation("clear", err) }()

	c, err = s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.ID == "" {
		return c, nil
	}
	if err = s.repo.Clear(ctx, c.ID); err != nil {
		return nil, err
	}
	c.Clear()
	c.UpdatedAt = s.now()
	s.invalidate(ctx, c.UserID)
	return c, nil
}

// The derived reads always go to the database so they never see a cached
// cart that a concurrent mutation has moved past.
func (s *service) GetTotal(ctx context.Context, userID string) (int64, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.Total(), nil
}

func (s *service) GetItemCount(ctx context.Context, userID string) (int, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.ItemCount(), nil
}

func (s *service) GetQuantityFor(ctx context.Context, userID, productID string) (int, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.QuantityFor(productID), nil
}

// invalidate drops the cached cart after a write. Writing the mutated cart
// instead would let a slower concurrent mutation overwrite a newer one.
func (s *service) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		logger.FromCtx(ctx).Warn("cart cache invalidation failed", zap.Error(err))
	}
}
