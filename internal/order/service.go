package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"florashop-be/internal/apperr"
	"florashop-be/internal/cart"
	"florashop-be/internal/logger"
	"florashop-be/internal/metrics"
	"florashop-be/internal/payment"
	"florashop-be/internal/stock"
	"florashop-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartSource loads the authoritative, database-backed cart.
type CartSource interface {
	GetByUser(ctx context.Context, userID string) (*cart.Cart, error)
}

type StockValidator interface {
	Validate(ctx context.Context, c *cart.Cart) (*stock.Result, error)
}

type Reconciler interface {
	Record(ctx context.Context, rec *payment.Reconciliation) error
}

type CartInvalidator interface {
	Delete(ctx context.Context, userID string) error
}

type Service interface {
	ValidateStock(ctx context.Context, c *cart.Cart) (*stock.Result, error)
	CreateOrder(ctx context.Context, userID string, data CheckoutData) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrdersForUser(ctx context.Context, userID string, page, limit int) ([]*Order, utils.Pagination, error)
	ListAllOrders(ctx context.Context, page, limit int) ([]*Order, utils.Pagination, error)
	UpdateOrderStatus(ctx context.Context, id string, status Status) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, status payment.Status) (*Order, error)
}

type Deps struct {
	Orders     Repository
	Carts      CartSource
	Validator  StockValidator
	Gateway    payment.Gateway
	Reconciler Reconciler
	CartCache  CartInvalidator
	Metrics    *metrics.Metrics
}

type service struct {
	orders     Repository
	carts      CartSource
	validator  StockValidator
	gateway    payment.Gateway
	reconciler Reconciler
	cartCache  CartInvalidator
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewService(d Deps) Service {
	cache := d.CartCache
	if cache == nil {
		cache = cart.NoopCache{}
	}
	return &service{
		orders:     d.Orders,
		carts:      d.Carts,
		validator:  d.Validator,
		gateway:    d.Gateway,
		reconciler: d.Reconciler,
		cartCache:  cache,
		metrics:    d.Metrics,
		now:        time.Now,
	}
}

func (s *service) ValidateStock(ctx context.Context, c *cart.Cart) (*stock.Result, error) {
	if c == nil {
		c = &cart.Cart{}
	}
	return s.validator.Validate(ctx, c)
}

func (s *service) CreateOrder(ctx context.Context, userID string, data CheckoutData) (o *Order, err error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
	)
	timer := metrics.StartTimer()
	outcome := metrics.OutcomeError
	defer func() {
		if err == nil && outcome == metrics.OutcomeError {
			outcome = metrics.OutcomeSuccess
		}
		s.metrics.ObserveCheckout(outcome, timer.Duration())
	}()

	if userID == "" {
		return nil, apperr.ErrUnauthorized
	}
	data.Normalize()
	if err := data.Validate(); err != nil {
		return nil, err
	}

	if data.IdempotencyKey != "" {
		existing, err := s.orders.GetByIdempotencyKey(ctx, userID, data.IdempotencyKey)
		switch {
		case err == nil:
			log.Info("checkout replayed", zap.String("order_id", existing.ID))
			outcome = metrics.OutcomeReplay
			return existing, nil
		case !errors.Is(err, ErrOrderNotFound):
			return nil, err
		}
	}

	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil || c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	res, err := s.validator.Validate(ctx, c)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		log.Info("checkout rejected by stock check", zap.Int("lines", len(res.Errors)))
		outcome = metrics.OutcomeStock
		return nil, res.Err()
	}

	o = s.snapshot(userID, c, data)
	log = log.With(zap.String("order_id", o.ID))

	charged := false
	if o.PaymentMethod.ChargesAtCheckout() {
		result, err := s.gateway.Charge(ctx, payment.ChargeRequest{
			OrderID:        o.ID,
			UserID:         userID,
			Email:          o.Customer.Email,
			Amount:         o.Total,
			Method:         o.PaymentMethod,
			IdempotencyKey: chargeKey(o),
		})
		if err != nil {
			log.Warn("payment charge failed", zap.Error(err))
			return nil, apperr.FromInfra("payment.Charge", err)
		}

		switch {
		case result.Approved:
			o.PaymentStatus = payment.StatusCompleted
			o.PaymentReference = result.Reference
			charged = true
		case o.PaymentMethod == payment.MethodCard:
			log.Info("card declined", zap.String("reason", result.DeclineReason))
			outcome = metrics.OutcomeDeclined
			return nil, apperr.ErrPaymentDeclined
		default:
			// A declined transfer still becomes an order the shopper can settle later.
			log.Info("transfer declined, order kept with failed payment", zap.String("reason", result.DeclineReason))
			o.PaymentStatus = payment.StatusFailed
			o.PaymentReference = result.Reference
		}
	}

	if err := s.orders.CreateOrderTx(ctx, o, c.ID); err != nil {
		return s.handleCommitFailure(ctx, log, o, charged, err, &outcome)
	}

	if err := s.cartCache.Delete(ctx, userID); err != nil {
		log.Warn("failed to invalidate cart cache", zap.Error(err))
	}

	log.Info("order created",
		zap.String("order_number", o.OrderNumber),
		zap.Int64("total", o.Total),
		zap.String("payment_status", string(o.PaymentStatus)),
	)
	return o, nil
}

func (s *service) snapshot(userID string, c *cart.Cart, data CheckoutData) *Order {
	now := s.now().UTC()
	o := &Order{
		ID:              uuid.NewString(),
		OrderNumber:     utils.GenerateOrderNumber(now),
		UserID:          userID,
		Items:           make([]OrderItem, 0, len(c.Items)),
		Status:          StatusPending,
		PaymentMethod:   data.PaymentMethod,
		PaymentStatus:   payment.StatusPending,
		ShippingAddress: data.ShippingAddress,
		Customer:        data.Customer,
		IdempotencyKey:  data.IdempotencyKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, it := range c.Items {
		line := OrderItem{
			ID:          uuid.NewString(),
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			cartLineID:  it.ID,
		}
		o.Items = append(o.Items, line)
		o.Total += line.Subtotal()
	}
	return o
}

// chargeKey is unique per order attempt. Reusing the shopper's key would let
// the provider hand back a charge that an earlier attempt already refunded.
func chargeKey(o *Order) string {
	return "order-" + o.ID
}

// handleCommitFailure runs when the order transaction rolled back. Without a
// charge the commit error is returned as is. With one, the money is either
// refunded or handed to reconciliation.
func (s *service) handleCommitFailure(ctx context.Context, log *zap.Logger, o *Order, charged bool, cause error, outcome *string) (*Order, error) {
	duplicate := errors.Is(cause, ErrDuplicateIdempotencyKey)
	shortage := errors.Is(cause, apperr.ErrInsufficientStock)
	// Both rejections happen before anything is written, so the charge is
	// known to have bought nothing.
	rolledBack := shortage || errors.Is(cause, ErrOrderNumberTaken)

	if shortage {
		*outcome = metrics.OutcomeStock
	}

	if !charged {
		if duplicate {
			return s.replayWinner(ctx, o, outcome)
		}
		log.Info("order commit failed", zap.Error(cause))
		return nil, cause
	}

	// The shopper may have gone away; settling the charge must not be cut short.
	bg := context.WithoutCancel(ctx)

	if !duplicate && !rolledBack {
		return nil, s.reconcile(bg, o, cause, "order commit failed after charge", outcome)
	}

	var winner *Order
	if duplicate {
		w, err := s.orders.GetByIdempotencyKey(ctx, o.UserID, o.IdempotencyKey)
		if err == nil && w.PaymentReference != "" && w.PaymentReference == o.PaymentReference {
			// The provider returned the winner's charge to us; it is not ours to refund.
			*outcome = metrics.OutcomeReplay
			return w, nil
		}
		winner = w
	}

	if err := s.gateway.Refund(bg, o.PaymentReference, o.Total); err != nil {
		log.Error("refund after failed commit did not go through", zap.Error(err))
		return nil, s.reconcile(bg, o, cause, "refund failed after commit error: "+err.Error(), outcome)
	}
	log.Info("charge refunded after failed commit", zap.Error(cause))

	if duplicate {
		if winner == nil {
			return s.replayWinner(ctx, o, outcome)
		}
		*outcome = metrics.OutcomeReplay
		return winner, nil
	}
	return nil, cause
}

func (s *service) replayWinner(ctx context.Context, o *Order, outcome *string) (*Order, error) {
	winner, err := s.orders.GetByIdempotencyKey(ctx, o.UserID, o.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	*outcome = metrics.OutcomeReplay
	return winner, nil
}

func (s *service) reconcile(ctx context.Context, o *Order, cause error, reason string, outcome *string) error {
	*outcome = metrics.OutcomeReconciliation
	rec := &payment.Reconciliation{
		OrderID:          o.ID,
		UserID:           o.UserID,
		PaymentReference: o.PaymentReference,
		Amount:           o.Total,
		Method:           o.PaymentMethod,
		Reason:           reason,
	}
	if s.reconciler != nil {
		// Record logs on failure; the caller still gets the reconciliation error.
		_ = s.reconciler.Record(ctx, rec)
	}
	return &apperr.ReconciliationError{
		OrderID:          o.ID,
		PaymentReference: o.PaymentReference,
		Cause:            cause,
	}
}

// GetOrder returns the order to its owner or to staff. Anyone else gets
// not found so order IDs can't be enumerated.
func (s *service) GetOrder(ctx context.Context, id string) (*Order, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrUnauthorized
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID && !utils.IsStaffContext(ctx) {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) ListOrdersForUser(ctx context.Context, userID string, page, limit int) ([]*Order, utils.Pagination, error) {
	if userID == "" {
		return nil, utils.Pagination{}, apperr.ErrUnauthorized
	}
	page, limit = utils.NormalizePage(page, limit)
	orders, total, err := s.orders.ListByUser(ctx, userID, limit, utils.Offset(page, limit))
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return orders, utils.NewPagination(page, limit, total), nil
}

func (s *service) ListAllOrders(ctx context.Context, page, limit int) ([]*Order, utils.Pagination, error) {
	if !utils.IsStaffContext(ctx) {
		return nil, utils.Pagination{}, apperr.ErrForbidden
	}
	page, limit = utils.NormalizePage(page, limit)
	orders, total, err := s.orders.ListAll(ctx, limit, utils.Offset(page, limit))
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return orders, utils.NewPagination(page, limit, total), nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, id string, status Status) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateOrderStatus"),
		zap.String("order_id", id),
	)
	if !utils.IsStaffContext(ctx) {
		return nil, apperr.ErrForbidden
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	current, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, status) {
		return nil, transitionError(current.Status, status)
	}

	updated, err := s.orders.UpdateStatus(ctx, id, current.Status, status)
	if err != nil {
		log.Info("status update lost", zap.Error(err))
		return nil, err
	}
	log.Info("order status updated",
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)),
	)
	return updated, nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, id string, status payment.Status) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdatePaymentStatus"),
		zap.String("order_id", id),
	)
	if !utils.IsStaffContext(ctx) {
		return nil, apperr.ErrForbidden
	}
	if _, err := payment.ParseStatus(string(status)); err != nil {
		return nil, err
	}

	current, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !payment.CanTransition(current.PaymentStatus, status) {
		return nil, fmt.Errorf("%w: payment %s -> %s", apperr.ErrInvalidTransition, current.PaymentStatus, status)
	}

	updated, err := s.orders.UpdatePaymentStatus(ctx, id, current.PaymentStatus, status)
	if err != nil {
		return nil, err
	}
	log.Info("payment status updated",
		zap.String("from", string(current.PaymentStatus)),
		zap.String("to", string(status)),
	)
	return updated, nil
}
