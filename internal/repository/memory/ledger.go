// Package memory provides an in-process LedgerStore. Transactions run
// one at a time against a copy of the state that replaces the original
// only when the transaction function succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/storefront/internal/domain"
)

type state struct {
	products  map[uuid.UUID]domain.Product
	clients   map[uuid.UUID]domain.Client
	purchases map[uuid.UUID]domain.Purchase
	returns   map[uuid.UUID]domain.Return
}

func newState() *state {
	return &state{
		products:  make(map[uuid.UUID]domain.Product),
		clients:   make(map[uuid.UUID]domain.Client),
		purchases: make(map[uuid.UUID]domain.Purchase),
		returns:   make(map[uuid.UUID]domain.Return),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	for k, v := range s.returns {
		c.returns[k] = v
	}
	return c
}

// LedgerStore implements domain.LedgerStore in memory
type LedgerStore struct {
	mu    sync.Mutex
	state *state
}

// NewLedgerStore creates an empty in-memory ledger store
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{state: newState()}
}

var _ domain.LedgerStore = (*LedgerStore)(nil)

// AddProduct seeds a product
func (s *LedgerStore) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = p
}

// AddClient seeds a client account
func (s *LedgerStore) AddClient(c domain.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.clients[c.ID] = c
}

// AddPurchase seeds a purchase, e.g. one made in the past
func (s *LedgerStore) AddPurchase(p domain.Purchase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.purchases[p.ID] = clonePurchase(p)
}

// Product returns the current state of a product
func (s *LedgerStore) Product(id uuid.UUID) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.products[id]
	return p, ok
}

// Client returns the current state of a client
func (s *LedgerStore) Client(id uuid.UUID) (domain.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.clients[id]
	return c, ok
}

// HasPurchase reports whether a purchase still exists
func (s *LedgerStore) HasPurchase(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.purchases[id]
	return ok
}

// WithTx runs fn against a private copy of the state and publishes the copy
// if fn succeeds
func (s *LedgerStore) WithTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	if err := fn(&ledgerTx{state: working}); err != nil {
		return err
	}

	s.state = working
	return nil
}

// ListPurchases retrieves purchases inside scope, newest first
func (s *LedgerStore) ListPurchases(ctx context.Context, scope domain.OwnerScope, limit, offset int) ([]*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purchases []*domain.Purchase
	for _, p := range s.state.purchases {
		if scope.Allows(p.ClientID) {
			cp := clonePurchase(p)
			purchases = append(purchases, &cp)
		}
	}

	sort.Slice(purchases, func(i, j int) bool {
		return purchases[i].CreatedAt.After(purchases[j].CreatedAt)
	})

	return page(purchases, limit, offset), nil
}

// CountPurchases returns the number of purchases inside scope
func (s *LedgerStore) CountPurchases(ctx context.Context, scope domain.OwnerScope) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, p := range s.state.purchases {
		if scope.Allows(p.ClientID) {
			count++
		}
	}
	return count, nil
}

// ListReturns retrieves pending returns inside scope, newest first
func (s *LedgerStore) ListReturns(ctx context.Context, scope domain.OwnerScope, limit, offset int) ([]*domain.Return, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var returns []*domain.Return
	for _, r := range s.state.returns {
		r.OwnerID = s.state.ownerOf(r.PurchaseID)
		if scope.Allows(r.OwnerID) {
			r := r
			returns = append(returns, &r)
		}
	}

	sort.Slice(returns, func(i, j int) bool {
		return returns[i].CreatedAt.After(returns[j].CreatedAt)
	})

	return page(returns, limit, offset), nil
}

// CountReturns returns the number of pending returns inside scope
func (s *LedgerStore) CountReturns(ctx context.Context, scope domain.OwnerScope) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, r := range s.state.returns {
		if scope.Allows(s.state.ownerOf(r.PurchaseID)) {
			count++
		}
	}
	return count, nil
}

func (s *state) ownerOf(purchaseID uuid.UUID) *uuid.UUID {
	p, ok := s.purchases[purchaseID]
	if !ok || p.ClientID == nil {
		return nil
	}
	owner := *p.ClientID
	return &owner
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func clonePurchase(p domain.Purchase) domain.Purchase {
	p.Items = append([]domain.LineItem(nil), p.Items...)
	if p.ClientID != nil {
		owner := *p.ClientID
		p.ClientID = &owner
	}
	return p
}

type ledgerTx struct {
	state *state
}

func (t *ledgerTx) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := t.state.products[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityProduct, id)
	}
	return &p, nil
}

func (t *ledgerTx) GetClientByUser(ctx context.Context, userID uuid.UUID) (*domain.Client, error) {
	for _, c := range t.state.clients {
		if c.UserID == userID {
			c := c
			return &c, nil
		}
	}
	return nil, domain.NewNotFound(domain.EntityClient, nil)
}

func (t *ledgerTx) DebitStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	p, ok := t.state.products[productID]
	if !ok {
		return domain.NewNotFound(domain.EntityProduct, productID)
	}
	if p.CountInStorage < quantity {
		return domain.ErrInsufficientStock
	}
	p.CountInStorage -= quantity
	t.state.products[productID] = p
	return nil
}

func (t *ledgerTx) CreditStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	p, ok := t.state.products[productID]
	if !ok {
		return domain.NewNotFound(domain.EntityProduct, productID)
	}
	p.CountInStorage += quantity
	t.state.products[productID] = p
	return nil
}

func (t *ledgerTx) DebitWallet(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal) error {
	c, ok := t.state.clients[clientID]
	if !ok {
		return domain.NewNotFound(domain.EntityClient, clientID)
	}
	if !c.CanAfford(amount) {
		return domain.ErrInsufficientFunds
	}
	c.Wallet = c.Wallet.Sub(amount)
	t.state.clients[clientID] = c
	return nil
}

func (t *ledgerTx) CreditWallet(ctx context.Context, clientID uuid.UUID, amount decimal.Decimal) error {
	c, ok := t.state.clients[clientID]
	if !ok {
		return domain.NewNotFound(domain.EntityClient, clientID)
	}
	c.Wallet = c.Wallet.Add(amount)
	t.state.clients[clientID] = c
	return nil
}

func (t *ledgerTx) CreatePurchase(ctx context.Context, purchase *domain.Purchase) error {
	if _, exists := t.state.purchases[purchase.ID]; exists {
		return fmt.Errorf("purchase %s already exists: %w", purchase.ID, domain.ErrConflict)
	}
	for i := range purchase.Items {
		purchase.Items[i].PurchaseID = purchase.ID
	}
	t.state.purchases[purchase.ID] = clonePurchase(*purchase)
	return nil
}

func (t *ledgerTx) GetPurchase(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	p, ok := t.state.purchases[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityPurchase, id)
	}
	cp := clonePurchase(p)
	return &cp, nil
}

// DeletePurchase cascades to a pending return, as the database does
func (t *ledgerTx) DeletePurchase(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.state.purchases[id]; !ok {
		return domain.NewNotFound(domain.EntityPurchase, id)
	}
	delete(t.state.purchases, id)
	for rid, r := range t.state.returns {
		if r.PurchaseID == id {
			delete(t.state.returns, rid)
		}
	}
	return nil
}

func (t *ledgerTx) CreateReturn(ctx context.Context, ret *domain.Return) error {
	if _, ok := t.state.purchases[ret.PurchaseID]; !ok {
		return domain.NewNotFound(domain.EntityPurchase, ret.PurchaseID)
	}
	for _, r := range t.state.returns {
		if r.PurchaseID == ret.PurchaseID {
			return fmt.Errorf("purchase %s: %w", ret.PurchaseID, domain.ErrReturnPending)
		}
	}
	stored := *ret
	stored.OwnerID = nil
	t.state.returns[ret.ID] = stored
	return nil
}

func (t *ledgerTx) DeleteReturn(ctx context.Context, id uuid.UUID) (*domain.Return, error) {
	r, ok := t.state.returns[id]
	if !ok {
		return nil, domain.NewNotFound(domain.EntityReturn, id)
	}
	delete(t.state.returns, id)
	r.OwnerID = t.state.ownerOf(r.PurchaseID)
	return &r, nil
}

func (t *ledgerTx) DeleteAllReturns(ctx context.Context) (int, error) {
	n := len(t.state.returns)
	t.state.returns = make(map[uuid.UUID]domain.Return)
	return n, nil
}
