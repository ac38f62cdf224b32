package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"florashop-be/internal/apperr"
	"florashop-be/internal/breaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChargeResult), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, reference string, amount int64) error {
	return m.Called(ctx, reference, amount).Error(0)
}

func TestMethodAndStatus(t *testing.T) {
	m, err := ParseMethod("cash_on_delivery")
	require.NoError(t, err)
	assert.False(t, m.ChargesAtCheckout())
	assert.True(t, MethodCard.ChargesAtCheckout())
	assert.True(t, MethodTransfer.ChargesAtCheckout())

	_, err = ParseMethod("bitcoin")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = ParseStatus("refunded")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	assert.True(t, CanTransition(StatusPending, StatusCompleted))
	assert.True(t, CanTransition(StatusPending, StatusFailed))
	assert.False(t, CanTransition(StatusCompleted, StatusFailed))
	assert.False(t, CanTransition(StatusFailed, StatusCompleted))
	assert.False(t, CanTransition(StatusPending, StatusPending))
}

func TestSimulatedGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("Approves and refunds", func(t *testing.T) {
		gw := NewSimulatedGateway(0)
		res, err := gw.Charge(ctx, ChargeRequest{OrderID: "o1", Amount: 5000, Method: MethodCard})
		require.NoError(t, err)
		assert.True(t, res.Approved)
		assert.NotEmpty(t, res.Reference)
		assert.Equal(t, int64(5000), gw.Charged(res.Reference))

		require.NoError(t, gw.Refund(ctx, res.Reference, 5000))
		assert.Equal(t, int64(0), gw.Charged(res.Reference))
		assert.Error(t, gw.Refund(ctx, res.Reference, 1))
	})

	t.Run("Declines above limit", func(t *testing.T) {
		gw := NewSimulatedGateway(10000)
		res, err := gw.Charge(ctx, ChargeRequest{Amount: 10001})
		require.NoError(t, err)
		assert.False(t, res.Approved)
		assert.Empty(t, res.Reference)
	})

	t.Run("Repeated key returns the original charge", func(t *testing.T) {
		gw := NewSimulatedGateway(0)
		first, err := gw.Charge(ctx, ChargeRequest{Amount: 5000, IdempotencyKey: "order-o1"})
		require.NoError(t, err)
		again, err := gw.Charge(ctx, ChargeRequest{Amount: 5000, IdempotencyKey: "order-o1"})
		require.NoError(t, err)
		assert.Equal(t, first.Reference, again.Reference)

		other, err := gw.Charge(ctx, ChargeRequest{Amount: 5000, IdempotencyKey: "order-o2"})
		require.NoError(t, err)
		assert.NotEqual(t, first.Reference, other.Reference)
	})

	t.Run("Unknown refund", func(t *testing.T) {
		assert.Error(t, NewSimulatedGateway(0).Refund(ctx, "nope", 1))
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewSimulatedGateway(0).Charge(cctx, ChargeRequest{Amount: 1})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGuardedGateway(t *testing.T) {
	ctx := context.Background()
	req := ChargeRequest{OrderID: "o1", Amount: 100, Method: MethodCard}

	t.Run("Outages open the circuit", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("Charge", mock.Anything, req).
			Return(nil, apperr.Unavailable("payment.Charge", errors.New("timeout"))).Times(3)

		guarded := WithBreaker(gw, breaker.Settings{FailureThreshold: 3, Timeout: time.Minute})
		for i := 0; i < 3; i++ {
			_, err := guarded.Charge(ctx, req)
			assert.ErrorIs(t, err, apperr.ErrUnavailable)
		}

		_, err := guarded.Charge(ctx, req)
		assert.ErrorIs(t, err, apperr.ErrUnavailable)
		gw.AssertNumberOfCalls(t, "Charge", 3)
	})

	t.Run("Declines keep it closed", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("Charge", mock.Anything, req).Return(&ChargeResult{Approved: false}, nil)

		guarded := WithBreaker(gw, breaker.Settings{FailureThreshold: 1})
		for i := 0; i < 3; i++ {
			res, err := guarded.Charge(ctx, req)
			require.NoError(t, err)
			assert.False(t, res.Approved)
		}
	})

	t.Run("Refund passes through", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("Refund", mock.Anything, "ref-1", int64(100)).Return(nil)

		assert.NoError(t, WithBreaker(gw, breaker.Settings{}).Refund(ctx, "ref-1", 100))
		gw.AssertExpectations(t)
	})
}
