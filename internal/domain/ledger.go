package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerStore persists wallets, stock counters, purchases and returns.
// Every mutation happens inside WithTx; if fn returns an error nothing
// it did is kept.
type LedgerStore interface {
	// WithTx runs fn inside a single atomic transaction
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error

	// ListPurchases retrieves purchases inside scope, newest first
	ListPurchases(ctx context.Context, scope OwnerScope, limit, offset int) ([]*Purchase, error)

	// CountPurchases returns the number of purchases inside scope
	CountPurchases(ctx context.Context, scope OwnerScope) (int, error)

	// ListReturns retrieves pending returns inside scope, newest first
	ListReturns(ctx context.Context, scope OwnerScope, limit, offset int) ([]*Return, error)

	// CountReturns returns the number of pending returns inside scope
	CountReturns(ctx context.Context, scope OwnerScope) (int, error)
}

// LedgerTx is the set of operations available inside a ledger transaction.
// Debits are conditional: they fail with ErrInsufficientStock or
// ErrInsufficientFunds instead of driving a counter below zero.
type LedgerTx interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetClientByUser(ctx context.Context, userID uuid.UUID) (*Client, error)

	DebitStock(ctx context.Context, productID uuid.UUID, quantity int) error
	CreditStock(ctx context.Context, productID uuid.UUID, quantity int) error
	DebitWallet(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal) error
	CreditWallet(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal) error

	// CreatePurchase inserts the purchase and its line items
	CreatePurchase(ctx context.Context, purchase *Purchase) error
	// GetPurchase loads a purchase with its line items
	GetPurchase(ctx context.Context, id uuid.UUID) (*Purchase, error)
	// DeletePurchase removes a purchase and its line items
	DeletePurchase(ctx context.Context, id uuid.UUID) error

	// CreateReturn inserts a pending return; ErrReturnPending if the purchase already has one
	CreateReturn(ctx context.Context, ret *Return) error
	// DeleteReturn removes a pending return and hands back what was removed.
	// Only one of several concurrent callers gets the record.
	DeleteReturn(ctx context.Context, id uuid.UUID) (*Return, error)
	// DeleteAllReturns removes every pending return
	DeleteAllReturns(ctx context.Context) (int, error)
}
