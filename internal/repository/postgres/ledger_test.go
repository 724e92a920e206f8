package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/storefront/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestLedgerStore_WithTx_CommitsPurchase(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLedgerStore(db)

	productID := uuid.New()
	clientID := uuid.New()
	purchase := &domain.Purchase{
		ID:        uuid.New(),
		ClientID:  &clientID,
		Count:     2,
		CreatedAt: time.Now(),
		Items: []domain.LineItem{
			{ProductID: productID, UnitPrice: decimal.NewFromInt(15), Quantity: 2},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").
		WithArgs(2, productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE clients").
		WithArgs(decimal.NewFromInt(30), clientID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO purchases").
		WithArgs(purchase.ID, sqlmock.AnyArg(), 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO purchase_items").
		WithArgs(purchase.ID, productID, sqlmock.AnyArg(), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx domain.LedgerTx) error {
		ctx := context.Background()
		if err := tx.DebitStock(ctx, productID, 2); err != nil {
			return err
		}
		if err := tx.DebitWallet(ctx, clientID, purchase.Total()); err != nil {
			return err
		}
		return tx.CreatePurchase(ctx, purchase)
	})

	require.NoError(t, err)
	assert.Equal(t, purchase.ID, purchase.Items[0].PurchaseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_WithTx_RollsBackWhenStockGuardFails(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLedgerStore(db)
	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").
		WithArgs(5, productID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx domain.LedgerTx) error {
		return tx.DebitStock(context.Background(), productID, 5)
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTx_DebitStock_MissingProduct(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLedgerStore(db)
	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx domain.LedgerTx) error {
		return tx.DebitStock(context.Background(), productID, 1)
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, domain.IsNotFoundEntity(err, domain.EntityProduct))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTx_DebitWallet_InsufficientFunds(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLedgerStore(db)
	clientID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE clients").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx domain.LedgerTx) error {
		return tx.DebitWallet(context.Background(), clientID, decimal.NewFromInt(20000))
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTx_CreateReturn_PendingConflict(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLedgerStore(db)

	ret := &domain.Return{ID: uuid.New(), PurchaseID: uuid.New(), CreatedAt: time.Now()}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO returns").
		WithArgs(ret.ID, ret.PurchaseID, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(tx domain.LedgerTx) error {
		return tx.CreateReturn(context.Background(), ret)
	})

	assert.ErrorIs(t, err, domain.ErrReturnPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerTx_DeleteReturn(t *testing.T) {
	t.Run("returns the claimed record", func(t *testing.T) {
		db, mock := newMockDB(t)
		store := NewLedgerStore(db)

		returnID := uuid.New()
		purchaseID := uuid.New()
		ownerID := uuid.New()
		createdAt := time.Now().UTC()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT p.id FROM returns r JOIN purchases p .* FOR UPDATE OF p`).
			WithArgs(returnID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(purchaseID.String()))
		mock.ExpectQuery("DELETE FROM returns").
			WithArgs(returnID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "purchase_id", "created_at", "owner_id"}).
				AddRow(returnID.String(), purchaseID.String(), createdAt, ownerID.String()))
		mock.ExpectCommit()

		var claimed *domain.Return
		err := store.WithTx(context.Background(), func(tx domain.LedgerTx) error {
			var err error
			claimed, err = tx.DeleteReturn(context.Background(), returnID)
			return err
		})

		require.NoError(t, err)
		assert.Equal(t, purchaseID, claimed.PurchaseID)
		require.NotNil(t, claimed.OwnerID)
		assert.Equal(t, ownerID, *claimed.OwnerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown return takes no locks beyond the lookup", func(t *testing.T) {
		db, mock := newMockDB(t)
		store := NewLedgerStore(db)
		returnID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE OF p").
			WithArgs(returnID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		err := store.WithTx(context.Background(), func(tx domain.LedgerTx) error {
			_, err := tx.DeleteReturn(context.Background(), returnID)
			return err
		})

		assert.True(t, domain.IsNotFoundEntity(err, domain.EntityReturn))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already claimed", func(t *testing.T) {
		db, mock := newMockDB(t)
		store := NewLedgerStore(db)
		returnID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE OF p").
			WithArgs(returnID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
		mock.ExpectQuery("DELETE FROM returns").
			WithArgs(returnID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "purchase_id", "created_at", "owner_id"}))
		mock.ExpectRollback()

		err := store.WithTx(context.Background(), func(tx domain.LedgerTx) error {
			_, err := tx.DeleteReturn(context.Background(), returnID)
			return err
		})

		assert.True(t, domain.IsNotFoundEntity(err, domain.EntityReturn))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerTx_GetPurchase_LoadsItems(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLedgerStore(db)

	purchaseID := uuid.New()
	productID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, client_id, count, created_at").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "count", "created_at"}).
			AddRow(purchaseID.String(), nil, 3, time.Now()))
	mock.ExpectQuery("FROM purchase_items").
		WithArgs(purchaseID).
		WillReturnRows(sqlmock.NewRows([]string{"purchase_id", "product_id", "unit_price", "quantity"}).
			AddRow(purchaseID.String(), productID.String(), "25.00", 3))
	mock.ExpectCommit()

	var purchase *domain.Purchase
	err := store.WithTx(context.Background(), func(tx domain.LedgerTx) error {
		var err error
		purchase, err = tx.GetPurchase(context.Background(), purchaseID)
		return err
	})

	require.NoError(t, err)
	assert.Nil(t, purchase.ClientID)
	require.Len(t, purchase.Items, 1)
	assert.True(t, decimal.NewFromInt(75).Equal(purchase.Total()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_ListPurchases_AttachesItems(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLedgerStore(db)

	clientID := uuid.New()
	first, second := uuid.New(), uuid.New()
	productID := uuid.New()
	scope := domain.OwnerScope{ClientID: clientID}

	mock.ExpectQuery("FROM purchases").
		WithArgs(false, clientID, 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "client_id", "count", "created_at"}).
			AddRow(first.String(), clientID.String(), 1, time.Now()).
			AddRow(second.String(), clientID.String(), 2, time.Now().Add(-time.Minute)))
	mock.ExpectQuery("FROM purchase_items").
		WillReturnRows(sqlmock.NewRows([]string{"purchase_id", "product_id", "unit_price", "quantity"}).
			AddRow(first.String(), productID.String(), "15.00", 1).
			AddRow(second.String(), productID.String(), "15.00", 2))

	purchases, err := store.ListPurchases(context.Background(), scope, 20, 0)

	require.NoError(t, err)
	require.Len(t, purchases, 2)
	assert.Len(t, purchases[0].Items, 1)
	assert.Equal(t, 2, purchases[1].Items[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerStore_WithTx_BeginFails(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLedgerStore(db)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	called := false
	err := store.WithTx(context.Background(), func(tx domain.LedgerTx) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}
