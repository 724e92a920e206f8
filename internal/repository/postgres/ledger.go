package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Pesokrava/storefront/internal/domain"
)

// LedgerStore implements domain.LedgerStore for PostgreSQL.
// Counter updates are conditional UPDATEs, so row locks taken by Postgres
// are what serialises concurrent purchases of the same product or client.
type LedgerStore struct {
	db *sqlx.DB
}

// NewLedgerStore creates a new PostgreSQL ledger store
func NewLedgerStore(db *sqlx.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

var _ domain.LedgerStore = (*LedgerStore)(nil)

// WithTx runs fn inside a database transaction, committing only if fn succeeds
func (s *LedgerStore) WithTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&ledgerTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListPurchases retrieves purchases inside scope with their line items
func (s *LedgerStore) ListPurchases(ctx context.Context, scope domain.OwnerScope, limit, offset int) ([]*domain.Purchase, error) {
	query := `
		SELECT id, client_id, count, created_at
		FROM purchases
		WHERE ($1 OR client_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	var purchases []*domain.Purchase
	if err := s.db.SelectContext(ctx, &purchases, query, scope.All, scope.ClientID, limit, offset); err != nil {
		return nil, err
	}

	if len(purchases) == 0 {
		return purchases, nil
	}

	ids := make([]string, len(purchases))
	byID := make(map[uuid.UUID]*domain.Purchase, len(purchases))
	for i, p := range purchases {
		ids[i] = p.ID.String()
		byID[p.ID] = p
	}

	itemsQuery := `
		SELECT purchase_id, product_id, unit_price, quantity
		FROM purchase_items
		WHERE purchase_id = ANY($1::uuid[])
		ORDER BY purchase_id, product_id
	`

	var items []domain.LineItem
	if err := s.db.SelectContext(ctx, &items, itemsQuery, pq.Array(ids)); err != nil {
		return nil, err
	}

	for _, item := range items {
		if p, ok := byID[item.PurchaseID]; ok {
			p.Items = append(p.Items, item)
		}
	}

	return purchases, nil
}

// CountPurchases returns the number of purchases inside scope
func (s *LedgerStore) CountPurchases(ctx context.Context, scope domain.OwnerScope) (int, error) {
	query := `SELECT COUNT(*) FROM purchases WHERE ($1 OR client_id = $2)`

	var count int
	if err := s.db.GetContext(ctx, &count, query, scope.All, scope.ClientID); err != nil {
		return 0, err
	}

	return count, nil
}

// ListReturns retrieves pending returns inside scope
func (s *LedgerStore) ListReturns(ctx context.Context, scope domain.OwnerScope, limit, offset int) ([]*domain.Return, error) {
	query := `
		SELECT r.id, r.purchase_id, r.created_at, p.client_id AS owner_id
		FROM returns r
		JOIN purchases p ON p.id = r.purchase_id
		WHERE ($1 OR p.client_id = $2)
		ORDER BY r.created_at DESC
		LIMIT $3 OFFSET $4
	`

	var returns []*domain.Return
	if err := s.db.SelectContext(ctx, &returns, query, scope.All, scope.ClientID, limit, offset); err != nil {
		return nil, err
	}

	return returns, nil
}

// CountReturns returns the number of pending returns inside scope
func (s *LedgerStore) CountReturns(ctx context.Context, scope domain.OwnerScope) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM returns r
		JOIN purchases p ON p.id = r.purchase_id
		WHERE ($1 OR p.client_id = $2)
	`

	var count int
	if err := s.db.GetContext(ctx, &count, query, scope.All, scope.ClientID); err != nil {
		return 0, err
	}

	return count, nil
}
