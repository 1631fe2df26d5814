package cart

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

func newTestService(db *gorm.DB) *Service {
	return NewService(db, nil, &config.Config{})
}

func productRow(mock sqlmock.Sqlmock, id uint, price string, stock int) *sqlmock.Rows {
	return mock.NewRows([]string{"id", "sku", "name", "slug", "price", "stock", "is_active", "category_id"}).
		AddRow(id, "TS-001", "Classic Cotton T-Shirt", "classic-cotton-t-shirt", price, stock, true, 1)
}

func cartItemColumns(mock sqlmock.Sqlmock) *sqlmock.Rows {
	return mock.NewRows([]string{"id", "user_id", "product_id", "quantity", "price"})
}

// expectCartReload covers the GetCart call that every mutation returns through:
// the cart line read plus the catalog lookup for each line item.
func expectCartReload(mock sqlmock.Sqlmock, rows *sqlmock.Rows, productIDs ...uint) {
	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).WillReturnRows(rows)
	for _, id := range productIDs {
		mock.ExpectQuery(`SELECT \* FROM "products"`).
			WillReturnRows(productRow(mock, id, "29.99", 50))
		mock.ExpectQuery(`SELECT \* FROM "categories"`).
			WillReturnRows(mock.NewRows([]string{"id", "name", "slug"}).AddRow(1, "T-Shirts", "t-shirts"))
	}
}

func TestAddToCart_MergesExistingLineItem(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db)
	userID := uint(7)

	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WillReturnRows(productRow(mock, 1, "29.99", 50))
	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(cartItemColumns(mock).AddRow(3, 7, 1, 1, "29.99"))
	// Merge is an update of the existing row with the summed quantity,
	// never a second row for the same product.
	mock.ExpectExec(`UPDATE "cart_items" SET`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 3, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	expectCartReload(mock, cartItemColumns(mock).AddRow(3, 7, 1, 3, "29.99"), 1)

	resp, err := svc.AddToCart(&userID, "", &AddToCartRequest{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, resp.Items, 1)
	require.Equal(t, 3, resp.Items[0].Quantity)
	require.Equal(t, 3, resp.Totals.TotalQuantity)
}

func TestAddToCart_NewLineItem(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db)
	userID := uint(7)

	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WillReturnRows(productRow(mock, 1, "29.99", 50))
	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(cartItemColumns(mock))
	mock.ExpectQuery(`INSERT INTO "cart_items"`).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(3))

	expectCartReload(mock, cartItemColumns(mock).AddRow(3, 7, 1, 2, "29.99"), 1)

	resp, err := svc.AddToCart(&userID, "", &AddToCartRequest{ProductID: 1, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, resp.Items, 1)
}

func TestAddToCart_RejectsMergedQuantityBeyondStock(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db)
	userID := uint(7)

	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WillReturnRows(productRow(mock, 1, "29.99", 3))
	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(cartItemColumns(mock).AddRow(3, 7, 1, 2, "29.99"))

	_, err := svc.AddToCart(&userID, "", &AddToCartRequest{ProductID: 1, Quantity: 2})
	require.ErrorIs(t, err, product.ErrInsufficientStock)

	// The existing line item stays untouched.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db)
	userID := uint(7)

	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WillReturnRows(mock.NewRows([]string{"id"}))

	_, err := svc.AddToCart(&userID, "", &AddToCartRequest{ProductID: 99, Quantity: 1})
	require.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestUpdateItemQuantity_ZeroRemovesItem(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db)
	userID := uint(7)

	// No catalog or stock lookup happens: zero quantity goes straight to removal.
	mock.ExpectExec(`DELETE FROM "cart_items"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectCartReload(mock, cartItemColumns(mock))

	resp, err := svc.UpdateItemQuantity(&userID, "", 1, 0)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Empty(t, resp.Items)
}

func TestUpdateItemQuantity_NegativeRemovesItem(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db)
	userID := uint(7)

	mock.ExpectExec(`DELETE FROM "cart_items"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectCartReload(mock, cartItemColumns(mock))

	_, err := svc.UpdateItemQuantity(&userID, "", 1, -4)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItemQuantity_ItemNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db)
	userID := uint(7)

	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WillReturnRows(productRow(mock, 1, "29.99", 50))
	mock.ExpectExec(`UPDATE "cart_items" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.UpdateItemQuantity(&userID, "", 1, 2)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestGetCart_TotalsFromSnapshotPrices(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(db)
	userID := uint(7)

	// Cart lines carry a price of 29.99 even though the catalog now says 39.99;
	// totals must come from the snapshot.
	mock.ExpectQuery(`SELECT \* FROM "cart_items"`).
		WillReturnRows(cartItemColumns(mock).AddRow(3, 7, 1, 2, "29.99"))
	mock.ExpectQuery(`SELECT \* FROM "products"`).
		WillReturnRows(productRow(mock, 1, "39.99", 50))
	mock.ExpectQuery(`SELECT \* FROM "categories"`).
		WillReturnRows(mock.NewRows([]string{"id", "name", "slug"}).AddRow(1, "T-Shirts", "t-shirts"))

	resp, err := svc.GetCart(&userID, "")
	require.NoError(t, err)
	require.Equal(t, "59.98", resp.Totals.Pricing.Subtotal.String())
	require.Equal(t, "39.99", resp.Items[0].Product.Price.String())
}
