package order

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"florashop-be/internal/apperr"
	"florashop-be/internal/cart"
	"florashop-be/internal/payment"
	"florashop-be/internal/product"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderCols = []string{
	"id", "order_number", "user_id", "total", "status", "payment_method", "payment_status",
	"payment_reference", "shipping_address", "customer", "idempotency_key", "created_at", "updated_at",
}

var itemCols = []string{"id", "order_id", "product_id", "product_name", "quantity", "price"}

var fixedTime = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func orderRow(rows *sqlmock.Rows, id, userID string, status Status) *sqlmock.Rows {
	return rows.AddRow(
		id, "ORD-1", userID, int64(20000), string(status), "card", "completed", "pay_1",
		[]byte(`{"street":"Jl. Melati 5","city":"Bandung","state":"Jawa Barat","zipCode":"40115","country":"ID"}`),
		[]byte(`{"firstName":"Ana","lastName":"Lima","email":"ana@example.com","phone":"+6281234567"}`),
		"", fixedTime, fixedTime,
	)
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewRepository(conn, product.NewRepository(conn), cart.NewRepository(conn)), mock
}

// expectRemoveOrdered matches the two statements that take ordered
// quantities off the cart.
func expectRemoveOrdered(mock sqlmock.Sqlmock, ids []string, qtys []int64) {
	mock.ExpectExec(`(?s)DELETE FROM cart_items ci\s+USING unnest`).
		WithArgs("c1", pq.Array(ids), pq.Array(qtys)).
		WillReturnResult(sqlmock.NewResult(0, int64(len(ids))))
	mock.ExpectExec(`(?s)UPDATE cart_items ci\s+SET quantity = ci.quantity - o.qty`).
		WithArgs("c1", pq.Array(ids), pq.Array(qtys)).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func sampleOrder() *Order {
	return &Order{
		ID:            "o1",
		OrderNumber:   "ORD-1",
		UserID:        "u1",
		Total:         22500,
		Status:        StatusPending,
		PaymentMethod: payment.MethodCard,
		PaymentStatus: payment.StatusCompleted,
		Items: []OrderItem{
			{ID: "oi1", ProductID: "p1", ProductName: "Rose Bouquet", Quantity: 2, Price: 10000, cartLineID: "ci1"},
			{ID: "oi2", ProductID: "p2", ProductName: "Tulip", Quantity: 1, Price: 2500, cartLineID: "ci2"},
		},
		CreatedAt: fixedTime,
		UpdatedAt: fixedTime,
	}
}

func TestRepository_CreateOrderTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commits everything", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE products\s+SET stock = stock - \$1`).
			WithArgs(2, "p1").WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(3))
		mock.ExpectQuery(`UPDATE products\s+SET stock = stock - \$1`).
			WithArgs(1, "p2").WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(9))
		mock.ExpectExec(`INSERT INTO orders`).
			WithArgs("o1", "ORD-1", "u1", int64(22500), "pending", "card", "completed", "",
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), fixedTime, fixedTime).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs("oi1", "o1", "p1", "Rose Bouquet", 2, int64(10000), 0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs("oi2", "o1", "p2", "Tulip", 1, int64(2500), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectRemoveOrdered(mock, []string{"ci1", "ci2"}, []int64{2, 1})
		mock.ExpectCommit()

		require.NoError(t, repo.CreateOrderTx(ctx, sampleOrder(), "c1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Locks products in id order", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		o := sampleOrder()
		o.Items[0], o.Items[1] = o.Items[1], o.Items[0]

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE products`).
			WithArgs(2, "p1").WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(3))
		mock.ExpectQuery(`UPDATE products`).
			WithArgs(1, "p2").WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(9))
		mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs("oi2", "o1", "p2", "Tulip", 1, int64(2500), 0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs("oi1", "o1", "p1", "Rose Bouquet", 2, int64(10000), 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectRemoveOrdered(mock, []string{"ci2", "ci1"}, []int64{1, 2})
		mock.ExpectCommit()

		require.NoError(t, repo.CreateOrderTx(ctx, o, "c1"))
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, "p2", o.Items[0].ProductID, "stored item order is untouched")
	})

	t.Run("Floor guard rolls back", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE products`).
			WithArgs(2, "p1").WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(3))
		mock.ExpectQuery(`UPDATE products`).
			WithArgs(1, "p2").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT name, stock FROM products WHERE id = \$1`).
			WithArgs("p2").WillReturnRows(sqlmock.NewRows([]string{"name", "stock"}).AddRow("Tulip", 0))
		mock.ExpectRollback()

		err := repo.CreateOrderTx(ctx, sampleOrder(), "c1")
		assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

		var se *apperr.StockError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "p2", se.Items[0].ProductID)
		assert.Equal(t, 0, se.Items[0].Available)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Duplicate idempotency key", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		o := sampleOrder()
		o.Items = o.Items[:1]
		o.IdempotencyKey = "k1"

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE products`).WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(3))
		mock.ExpectExec(`INSERT INTO orders`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_user_idempotency_key"})
		mock.ExpectRollback()

		err := repo.CreateOrderTx(ctx, o, "c1")
		assert.ErrorIs(t, err, ErrDuplicateIdempotencyKey)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Order number collision is not a replay", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		o := sampleOrder()
		o.Items = o.Items[:1]
		o.IdempotencyKey = "k1"

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE products`).WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(3))
		mock.ExpectExec(`INSERT INTO orders`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_order_number_key"})
		mock.ExpectRollback()

		err := repo.CreateOrderTx(ctx, o, "c1")
		assert.NotErrorIs(t, err, ErrDuplicateIdempotencyKey)
		assert.ErrorIs(t, err, ErrOrderNumberTaken)
		assert.True(t, apperr.IsRetryable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Found with items", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT .* FROM orders WHERE id = \$1`).
			WithArgs("o1").
			WillReturnRows(orderRow(sqlmock.NewRows(orderCols), "o1", "u1", StatusPending))
		mock.ExpectQuery(`FROM order_items\s+WHERE order_id = ANY\(\$1\)`).
			WillReturnRows(sqlmock.NewRows(itemCols).
				AddRow("oi1", "o1", "p1", "Rose Bouquet", 2, int64(10000)))

		o, err := repo.GetByID(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, payment.MethodCard, o.PaymentMethod)
		assert.Equal(t, "Bandung", o.ShippingAddress.City)
		assert.Equal(t, "ana@example.com", o.Customer.Email)
		require.Len(t, o.Items, 1)
		assert.Equal(t, int64(20000), o.Items[0].Subtotal())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT .* FROM orders`).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrOrderNotFound)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("By idempotency key", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`FROM orders WHERE user_id = \$1 AND idempotency_key = \$2`).
			WithArgs("u1", "k1").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByIdempotencyKey(ctx, "u1", "k1")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestRepository_ListByUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders WHERE user_id = \$1`).
		WithArgs("u1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	rows := sqlmock.NewRows(orderCols)
	orderRow(rows, "o2", "u1", StatusShipped)
	orderRow(rows, "o1", "u1", StatusPending)
	mock.ExpectQuery(`FROM orders WHERE user_id = \$1 ORDER BY created_at DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs("u1", 10, 10).WillReturnRows(rows)
	mock.ExpectQuery(`FROM order_items`).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow("oi1", "o1", "p1", "Rose Bouquet", 1, int64(10000)).
			AddRow("oi2", "o2", "p2", "Tulip", 4, int64(2500)))

	orders, total, err := repo.ListByUser(context.Background(), "u1", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "o2", orders[0].ID)
	assert.Equal(t, "p2", orders[0].Items[0].ProductID)
	assert.Equal(t, "p1", orders[1].Items[0].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListAll_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM orders\s+ORDER BY created_at DESC, id LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).WillReturnRows(sqlmock.NewRows(orderCols))

	orders, total, err := repo.ListAll(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, orders)
	assert.NotNil(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Applied", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE orders\s+SET status = \$3, updated_at = NOW\(\)\s+WHERE id = \$1 AND status = \$2`).
			WithArgs("o1", "pending", "processing").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM orders WHERE id = \$1`).
			WillReturnRows(orderRow(sqlmock.NewRows(orderCols), "o1", "u1", StatusProcessing))
		mock.ExpectQuery(`FROM order_items`).WillReturnRows(sqlmock.NewRows(itemCols))

		o, err := repo.UpdateStatus(ctx, "o1", StatusPending, StatusProcessing)
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, o.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Lost race", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE orders`).
			WithArgs("o1", "pending", "cancelled").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM orders WHERE id = \$1`).
			WillReturnRows(orderRow(sqlmock.NewRows(orderCols), "o1", "u1", StatusProcessing))
		mock.ExpectQuery(`FROM order_items`).WillReturnRows(sqlmock.NewRows(itemCols))

		_, err := repo.UpdateStatus(ctx, "o1", StatusPending, StatusCancelled)
		assert.ErrorIs(t, err, ErrStatusChanged)
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	t.Run("Missing order", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE orders`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`FROM orders WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

		_, err := repo.UpdateStatus(ctx, "nope", StatusPending, StatusProcessing)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("Payment status", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE orders\s+SET payment_status = \$3, updated_at = NOW\(\)\s+WHERE id = \$1 AND payment_status = \$2`).
			WithArgs("o1", "pending", "completed").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM orders WHERE id = \$1`).
			WillReturnRows(orderRow(sqlmock.NewRows(orderCols), "o1", "u1", StatusPending))
		mock.ExpectQuery(`FROM order_items`).WillReturnRows(sqlmock.NewRows(itemCols))

		o, err := repo.UpdatePaymentStatus(ctx, "o1", payment.StatusPending, payment.StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, payment.StatusCompleted, o.PaymentStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
