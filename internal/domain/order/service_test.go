package order

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeGate struct {
	status payment.Status
	err    error
	calls  int
}

func (f *fakeGate) Confirm(ctx context.Context, paymentIntentID string) (payment.Status, error) {
	f.calls++
	return f.status, f.err
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return db, mock
}

func newTestService(db *gorm.DB, gate payment.Gate) *Service {
	return NewService(db, &config.Config{}, gate)
}

func shippingAddress() Address {
	return Address{
		FirstName:  "Jane",
		LastName:   "Smith",
		Email:      "jane@example.com",
		Phone:      "555-0100",
		Street:     "1 Main St",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "US",
	}
}

func cartRows(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mock.NewRows([]string{"id", "user_id", "product_id", "quantity", "price"})
}

func productRows(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mock.NewRows([]string{"id", "sku", "name", "slug", "price", "stock", "is_active", "category_id"})
}

func idRow(mock sqlmock.Sqlmock, id int64) *sqlmock.Rows {
	return mock.NewRows([]string{"id"}).AddRow(id)
}

func TestFinalizeOrder_Success(t *testing.T) {
	db, mock := newMockDB(t)
	gate := &fakeGate{status: payment.StatusSucceeded}
	svc := newTestService(db, gate)

	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(cartRows(mock).
			AddRow(1, 7, 1, 2, "29.99").
			AddRow(2, 7, 2, 1, "79.99"))

	mock.ExpectBegin()

	mock.ExpectQuery(`SELECT \* FROM "products".*FOR UPDATE`).
		WillReturnRows(productRows(mock).AddRow(1, "TS-001", "Classic Cotton T-Shirt", "classic-cotton-t-shirt", "29.99", 50, true, 1))
	mock.ExpectQuery(`SELECT \* FROM "products".*FOR UPDATE`).
		WillReturnRows(productRows(mock).AddRow(2, "JN-001", "Slim Fit Blue Jeans", "slim-fit-blue-jeans", "79.99", 25, true, 2))

	mock.ExpectExec(`SAVEPOINT order_insert`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "orders"`).WillReturnRows(idRow(mock, 10))

	// First line item: order item, stock decrement, movement record
	mock.ExpectQuery(`INSERT INTO "order_items"`).WillReturnRows(idRow(mock, 100))
	mock.ExpectExec(`UPDATE "products" SET "stock"=`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "stock_movements"`).WillReturnRows(idRow(mock, 200))

	// Second line item
	mock.ExpectQuery(`INSERT INTO "order_items"`).WillReturnRows(idRow(mock, 101))
	mock.ExpectExec(`UPDATE "products" SET "stock"=`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "stock_movements"`).WillReturnRows(idRow(mock, 201))

	mock.ExpectQuery(`INSERT INTO "order_status_history"`).WillReturnRows(idRow(mock, 300))
	mock.ExpectExec(`DELETE FROM "cart_items"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	o, err := svc.FinalizeOrder(context.Background(), 7, &FinalizeOrderRequest{
		ShippingAddress: shippingAddress(),
		PaymentIntentID: "pi_123",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Equal(t, 1, gate.calls)
	require.Equal(t, OrderStatusConfirmed, o.Status)
	require.Equal(t, PaymentStatusPaid, o.PaymentStatus)
	require.Equal(t, "pi_123", o.PaymentIntentID)
	require.Regexp(t, `^ORD-\d{8}-[0-9A-F]{10}$`, o.OrderNumber)

	require.True(t, o.Subtotal.Equal(decimal.RequireFromString("139.97")), "subtotal was %s", o.Subtotal)
	require.True(t, o.Shipping.IsZero(), "shipping was %s", o.Shipping)
	require.True(t, o.Tax.Equal(decimal.RequireFromString("11.20")), "tax was %s", o.Tax)
	require.True(t, o.Total.Equal(decimal.RequireFromString("151.17")), "total was %s", o.Total)

	require.Len(t, o.Items, 2)
	require.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("29.99")))
	require.Equal(t, 2, o.Items[0].Quantity)
	require.Equal(t, "TS-001", o.Items[0].SKU)
	require.True(t, o.Items[1].UnitPrice.Equal(decimal.RequireFromString("79.99")))
}

func TestFinalizeOrder_PaymentNotConfirmed(t *testing.T) {
	statuses := []payment.Status{
		payment.StatusProcessing,
		payment.StatusRequiresAction,
		payment.StatusCanceled,
		payment.StatusFailed,
	}

	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			db, mock := newMockDB(t)
			svc := newTestService(db, &fakeGate{status: status})

			mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
				WillReturnRows(cartRows(mock).AddRow(1, 7, 1, 1, "29.99"))

			_, err := svc.FinalizeOrder(context.Background(), 7, &FinalizeOrderRequest{
				ShippingAddress: shippingAddress(),
				PaymentIntentID: "pi_bad",
			})
			require.ErrorIs(t, err, ErrPaymentNotConfirmed)

			// No transaction was opened, nothing was written.
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFinalizeOrder_GatewayError(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db, &fakeGate{err: payment.ErrGatewayUnavailable})

	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(cartRows(mock).AddRow(1, 7, 1, 1, "29.99"))

	_, err := svc.FinalizeOrder(context.Background(), 7, &FinalizeOrderRequest{
		ShippingAddress: shippingAddress(),
		PaymentIntentID: "pi_123",
	})
	require.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeOrder_EmptyCart(t *testing.T) {
	db, mock := newMockDB(t)
	gate := &fakeGate{status: payment.StatusSucceeded}
	svc := newTestService(db, gate)

	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).WillReturnRows(cartRows(mock))

	_, err := svc.FinalizeOrder(context.Background(), 7, &FinalizeOrderRequest{
		ShippingAddress: shippingAddress(),
		PaymentIntentID: "pi_123",
	})
	require.ErrorIs(t, err, ErrCartEmpty)
	require.Zero(t, gate.calls, "payment gate must not be consulted for an empty cart")
}

func TestFinalizeOrder_InsufficientStock(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db, &fakeGate{status: payment.StatusSucceeded})

	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(cartRows(mock).AddRow(1, 7, 1, 5, "29.99"))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "products".*FOR UPDATE`).
		WillReturnRows(productRows(mock).AddRow(1, "TS-001", "Classic Cotton T-Shirt", "classic-cotton-t-shirt", "29.99", 3, true, 1))
	mock.ExpectRollback()

	_, err := svc.FinalizeOrder(context.Background(), 7, &FinalizeOrderRequest{
		ShippingAddress: shippingAddress(),
		PaymentIntentID: "pi_123",
	})
	require.ErrorIs(t, err, product.ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeOrder_InactiveProduct(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db, &fakeGate{status: payment.StatusSucceeded})

	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(cartRows(mock).AddRow(1, 7, 1, 1, "29.99"))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "products".*FOR UPDATE`).
		WillReturnRows(productRows(mock).AddRow(1, "TS-001", "Classic Cotton T-Shirt", "classic-cotton-t-shirt", "29.99", 3, false, 1))
	mock.ExpectRollback()

	_, err := svc.FinalizeOrder(context.Background(), 7, &FinalizeOrderRequest{
		ShippingAddress: shippingAddress(),
		PaymentIntentID: "pi_123",
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeOrder_RollsBackOnOrderItemFailure(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db, &fakeGate{status: payment.StatusSucceeded})

	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(cartRows(mock).AddRow(1, 7, 1, 1, "29.99"))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "products".*FOR UPDATE`).
		WillReturnRows(productRows(mock).AddRow(1, "TS-001", "Classic Cotton T-Shirt", "classic-cotton-t-shirt", "29.99", 3, true, 1))
	mock.ExpectExec(`SAVEPOINT order_insert`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "orders"`).WillReturnRows(idRow(mock, 10))
	mock.ExpectQuery(`INSERT INTO "order_items"`).
		WillReturnError(errors.New("write failed"))
	mock.ExpectRollback()

	_, err := svc.FinalizeOrder(context.Background(), 7, &FinalizeOrderRequest{
		ShippingAddress: shippingAddress(),
		PaymentIntentID: "pi_123",
	})
	require.ErrorIs(t, err, ErrOrderCreationFailed)

	// Rollback was issued: no order, stock decrement, or cart clear survives.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFinalizeOrder_RetriesOrderNumberCollision(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db, &fakeGate{status: payment.StatusSucceeded})

	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(cartRows(mock).AddRow(1, 7, 1, 1, "29.99"))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "products".*FOR UPDATE`).
		WillReturnRows(productRows(mock).AddRow(1, "TS-001", "Classic Cotton T-Shirt", "classic-cotton-t-shirt", "29.99", 3, true, 1))

	mock.ExpectExec(`SAVEPOINT order_insert`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "orders"`).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "idx_orders_order_number"`))
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT order_insert`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`SAVEPOINT order_insert`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "orders"`).WillReturnRows(idRow(mock, 10))

	mock.ExpectQuery(`INSERT INTO "order_items"`).WillReturnRows(idRow(mock, 100))
	mock.ExpectExec(`UPDATE "products" SET "stock"=`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "stock_movements"`).WillReturnRows(idRow(mock, 200))
	mock.ExpectQuery(`INSERT INTO "order_status_history"`).WillReturnRows(idRow(mock, 300))
	mock.ExpectExec(`DELETE FROM "cart_items"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	o, err := svc.FinalizeOrder(context.Background(), 7, &FinalizeOrderRequest{
		ShippingAddress: shippingAddress(),
		PaymentIntentID: "pi_123",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.NotEmpty(t, o.OrderNumber)
}

func TestFinalizeOrder_InvalidAddress(t *testing.T) {
	db, _ := newMockDB(t)
	gate := &fakeGate{status: payment.StatusSucceeded}
	svc := newTestService(db, gate)

	addr := shippingAddress()
	addr.Email = "not-an-email"

	_, err := svc.FinalizeOrder(context.Background(), 7, &FinalizeOrderRequest{
		ShippingAddress: addr,
		PaymentIntentID: "pi_123",
	})
	require.Error(t, err)
	require.Zero(t, gate.calls)
}
