package payment

import (
	"context"
	"errors"
	"testing"

	"florashop-be/internal/logger"
	"florashop-be/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockReconciliationRepository struct {
	mock.Mock
}

func (m *MockReconciliationRepository) Create(ctx context.Context, rec *Reconciliation) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockReconciliationRepository) ListUnresolved(ctx context.Context, limit, offset int) ([]*Reconciliation, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Reconciliation), args.Int(1), args.Error(2)
}

func (m *MockReconciliationRepository) Resolve(ctx context.Context, id, resolvedBy string) error {
	return m.Called(ctx, id, resolvedBy).Error(0)
}

func TestReconciliationService_Record(t *testing.T) {
	core, observed := observer.New(zapcore.ErrorLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	t.Run("Persists and logs at error level", func(t *testing.T) {
		repo := new(MockReconciliationRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		svc := NewReconciliationService(repo, m)
		err := svc.Record(context.Background(), &Reconciliation{OrderID: "o1", PaymentReference: "ch_1"})
		require.NoError(t, err)

		logs := observed.TakeAll()
		require.Len(t, logs, 1)
		assert.Equal(t, "ch_1", logs[0].ContextMap()["payment_reference"])
	})

	t.Run("Still logs when the write fails", func(t *testing.T) {
		repo := new(MockReconciliationRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

		err := NewReconciliationService(repo, m).Record(context.Background(), &Reconciliation{OrderID: "o2"})
		assert.Error(t, err)
		assert.Len(t, observed.TakeAll(), 1)
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reconciliations))
}

func TestReconciliationService_ListOpen(t *testing.T) {
	repo := new(MockReconciliationRepository)
	repo.On("ListUnresolved", mock.Anything, 10, 10).Return([]*Reconciliation{{ID: "r1"}}, 11, nil)

	recs, page, err := NewReconciliationService(repo, nil).ListOpen(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 2, page.TotalPages)
}

func TestReconciliationService_Resolve(t *testing.T) {
	repo := new(MockReconciliationRepository)
	repo.On("Resolve", mock.Anything, "r1", "admin-1").Return(ErrReconciliationNotFound)

	err := NewReconciliationService(repo, nil).Resolve(context.Background(), "r1", "admin-1")
	assert.ErrorIs(t, err, ErrReconciliationNotFound)
}
