package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/storefront/internal/domain"
)

// Postgres error codes the ledger maps to domain errors
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
)

// ledgerTx implements domain.LedgerTx on top of a single sqlx transaction
type ledgerTx struct {
	tx *sqlx.Tx
}

var _ domain.LedgerTx = (*ledgerTx)(nil)

// GetProduct retrieves a product by ID
func (t *ledgerTx) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, text, price, count_in_storage
		FROM products
		WHERE id = $1
	`

	var product domain.Product
	if err := t.tx.GetContext(ctx, &product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound(domain.EntityProduct, id)
		}
		return nil, err
	}

	return &product, nil
}

// GetClientByUser retrieves the client account of a user
func (t *ledgerTx) GetClientByUser(ctx context.Context, userID uuid.UUID) (*domain.Client, error) {
	query := `SELECT id, user_id, wallet FROM clients WHERE user_id = $1`

	var client domain.Client
	if err := t.tx.GetContext(ctx, &client, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound(domain.EntityClient, nil)
		}
		return nil, err
	}

	return &client, nil
}

// DebitStock decrements a product's stock if enough units remain
func (t *ledgerTx) DebitStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET count_in_storage = count_in_storage - $1
		WHERE id = $2 AND count_in_storage >= $1
	`

	affected, err := t.exec(ctx, query, quantity, productID)
	if err != nil {
		return err
	}

	if affected == 0 {
		return t.missingOr(ctx, "products", domain.EntityProduct, productID, domain.ErrInsufficientStock)
	}

	return nil
}

// CreditStock puts units back into storage
func (t *ledgerTx) CreditStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET count_in_storage = count_in_storage + $1
		WHERE id = $2
	`

	affected, err := t.exec(ctx, query, quantity, productID)
	if err != nil {
		return err
	}

	if affected == 0 {
		return domain.NewNotFound(domain.EntityProduct, productID)
	}

	return nil
}

// DebitWallet withdraws amount from a client's wallet if the balance covers it
func (t *ledgerTx) DebitWallet(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE clients
		SET wallet = wallet - $1
		WHERE id = $2 AND wallet >= $1
	`

	affected, err := t.exec(ctx, query, amount, clientID)
	if err != nil {
		return err
	}

	if affected == 0 {
		return t.missingOr(ctx, "clients", domain.EntityClient, clientID, domain.ErrInsufficientFunds)
	}

	return nil
}

// CreditWallet deposits amount into a client's wallet
func (t *ledgerTx) CreditWallet(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal) error {
	query := `UPDATE clients SET wallet = wallet + $1 WHERE id = $2`

	affected, err := t.exec(ctx, query, amount, clientID)
	if err != nil {
		return err
	}

	if affected == 0 {
		return domain.NewNotFound(domain.EntityClient, clientID)
	}

	return nil
}

// CreatePurchase inserts a purchase together with its line items
func (t *ledgerTx) CreatePurchase(ctx context.Context, purchase *domain.Purchase) error {
	query := `
		INSERT INTO purchases (id, client_id, count, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := t.tx.ExecContext(ctx, query, purchase.ID, purchase.ClientID, purchase.Count, purchase.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}

	itemQuery := `
		INSERT INTO purchase_items (purchase_id, product_id, unit_price, quantity)
		VALUES ($1, $2, $3, $4)
	`

	for i := range purchase.Items {
		item := &purchase.Items[i]
		item.PurchaseID = purchase.ID
		if _, err := t.tx.ExecContext(ctx, itemQuery, item.PurchaseID, item.ProductID, item.UnitPrice, item.Quantity); err != nil {
			return fmt.Errorf("failed to insert purchase item: %w", err)
		}
	}

	return nil
}

// GetPurchase loads a purchase and its line items, locking the purchase row
// so a concurrent confirmation cannot delete it underneath the caller
func (t *ledgerTx) GetPurchase(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	query := `
		SELECT id, client_id, count, created_at
		FROM purchases
		WHERE id = $1
		FOR UPDATE
	`

	var purchase domain.Purchase
	if err := t.tx.GetContext(ctx, &purchase, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound(domain.EntityPurchase, id)
		}
		return nil, err
	}

	itemsQuery := `
		SELECT purchase_id, product_id, unit_price, quantity
		FROM purchase_items
		WHERE purchase_id = $1
		ORDER BY product_id
	`

	if err := t.tx.SelectContext(ctx, &purchase.Items, itemsQuery, id); err != nil {
		return nil, err
	}

	return &purchase, nil
}

// DeletePurchase removes a purchase; its line items go with it
func (t *ledgerTx) DeletePurchase(ctx context.Context, id uuid.UUID) error {
	affected, err := t.exec(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if affected == 0 {
		return domain.NewNotFound(domain.EntityPurchase, id)
	}

	return nil
}

// CreateReturn inserts a pending return for a purchase
func (t *ledgerTx) CreateReturn(ctx context.Context, ret *domain.Return) error {
	query := `
		INSERT INTO returns (id, purchase_id, created_at)
		VALUES ($1, $2, $3)
	`

	if _, err := t.tx.ExecContext(ctx, query, ret.ID, ret.PurchaseID, ret.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch string(pqErr.Code) {
			case pqUniqueViolation:
				return fmt.Errorf("purchase %s: %w", ret.PurchaseID, domain.ErrReturnPending)
			case pqForeignKeyViolation:
				return domain.NewNotFound(domain.EntityPurchase, ret.PurchaseID)
			}
		}
		return fmt.Errorf("failed to insert return: %w", err)
	}

	return nil
}

// DeleteReturn removes a pending return and reports what was removed.
// The purchase row is locked before the return row, the same order
// CreateReturn callers use. DELETE ... RETURNING then decides concurrent
// confirm/reject calls: only one of them gets a row back.
func (t *ledgerTx) DeleteReturn(ctx context.Context, id uuid.UUID) (*domain.Return, error) {
	lock := `
		SELECT p.id
		FROM returns r
		JOIN purchases p ON p.id = r.purchase_id
		WHERE r.id = $1
		FOR UPDATE OF p
	`

	var purchaseID uuid.UUID
	if err := t.tx.GetContext(ctx, &purchaseID, lock, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound(domain.EntityReturn, id)
		}
		return nil, fmt.Errorf("failed to lock purchase of return %s: %w", id, err)
	}

	query := `
		DELETE FROM returns r
		USING purchases p
		WHERE r.id = $1 AND p.id = r.purchase_id
		RETURNING r.id, r.purchase_id, r.created_at, p.client_id AS owner_id
	`

	var ret domain.Return
	if err := t.tx.GetContext(ctx, &ret, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound(domain.EntityReturn, id)
		}
		return nil, err
	}

	return &ret, nil
}

// DeleteAllReturns removes every pending return
func (t *ledgerTx) DeleteAllReturns(ctx context.Context) (int, error) {
	affected, err := t.exec(ctx, `DELETE FROM returns`)
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}

func (t *ledgerTx) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqCheckViolation {
			return 0, fmt.Errorf("constraint %s rejected update: %w", pqErr.Constraint, domain.ErrConflict)
		}
		return 0, err
	}

	return result.RowsAffected()
}

// missingOr distinguishes "row does not exist" from a failed guard condition
func (t *ledgerTx) missingOr(ctx context.Context, table, entity string, id uuid.UUID, guardErr error) error {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := t.tx.GetContext(ctx, &exists, query, id); err != nil {
		return err
	}

	if !exists {
		return domain.NewNotFound(entity, id)
	}

	return guardErr
}
