package httpapi

import (
	"context"

	"florashop-be/internal/cart"
	"florashop-be/internal/order"
	"florashop-be/internal/payment"
	"florashop-be/internal/product"
	"florashop-be/internal/stock"
	"florashop-be/internal/utils"

	"github.com/stretchr/testify/mock"
)

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) cartResult(args mock.Arguments) (*cart.Cart, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, userID string) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID))
}

func (m *MockCartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID, productID, quantity))
}

func (m *MockCartService) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID, itemID, quantity))
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, itemID string) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID, itemID))
}

func (m *MockCartService) Clear(ctx context.Context, userID string) (*cart.Cart, error) {
	return m.cartResult(m.Called(ctx, userID))
}

func (m *MockCartService) GetTotal(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCartService) GetItemCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockCartService) GetQuantityFor(ctx context.Context, userID, productID string) (int, error) {
	args := m.Called(ctx, userID, productID)
	return args.Int(0), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) orderResult(args mock.Arguments) (*order.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) listResult(args mock.Arguments) ([]*order.Order, utils.Pagination, error) {
	if args.Get(0) == nil {
		return nil, utils.Pagination{}, args.Error(2)
	}
	return args.Get(0).([]*order.Order), args.Get(1).(utils.Pagination), args.Error(2)
}

func (m *MockOrderService) ValidateStock(ctx context.Context, c *cart.Cart) (*stock.Result, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stock.Result), args.Error(1)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, userID string, data order.CheckoutData) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, userID, data))
}

func (m *MockOrderService) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, id))
}

func (m *MockOrderService) ListOrdersForUser(ctx context.Context, userID string, page, limit int) ([]*order.Order, utils.Pagination, error) {
	return m.listResult(m.Called(ctx, userID, page, limit))
}

func (m *MockOrderService) ListAllOrders(ctx context.Context, page, limit int) ([]*order.Order, utils.Pagination, error) {
	return m.listResult(m.Called(ctx, page, limit))
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, id, status))
}

func (m *MockOrderService) UpdatePaymentStatus(ctx context.Context, id string, status payment.Status) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, id, status))
}

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) productResult(args mock.Arguments) (*product.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	return m.productResult(m.Called(ctx, id))
}

func (m *MockProductService) ListProducts(ctx context.Context, opts product.ListOptions) ([]*product.Product, utils.Pagination, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, utils.Pagination{}, args.Error(2)
	}
	return args.Get(0).([]*product.Product), args.Get(1).(utils.Pagination), args.Error(2)
}

func (m *MockProductService) CreateProduct(ctx context.Context, input product.CreateInput) (*product.Product, error) {
	return m.productResult(m.Called(ctx, input))
}

func (m *MockProductService) UpdateProduct(ctx context.Context, id string, input product.UpdateInput) (*product.Product, error) {
	return m.productResult(m.Called(ctx, id, input))
}

func (m *MockProductService) DeactivateProduct(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductService) SetStock(ctx context.Context, id string, stock int) (*product.Product, error) {
	return m.productResult(m.Called(ctx, id, stock))
}

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) Record(ctx context.Context, rec *payment.Reconciliation) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockReconciliationService) ListOpen(ctx context.Context, page, limit int) ([]*payment.Reconciliation, utils.Pagination, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, utils.Pagination{}, args.Error(2)
	}
	return args.Get(0).([]*payment.Reconciliation), args.Get(1).(utils.Pagination), args.Error(2)
}

func (m *MockReconciliationService) Resolve(ctx context.Context, id, resolvedBy string) error {
	return m.Called(ctx, id, resolvedBy).Error(0)
}
