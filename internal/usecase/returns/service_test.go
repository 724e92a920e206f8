package returns

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/repository/memory"
)

// MockEventPublisher is a mock implementation of domain.EventPublisher
type MockEventPublisher struct {
	mock.Mock
	published chan domain.CommerceEvent
}

func newMockEventPublisher() *MockEventPublisher {
	p := &MockEventPublisher{published: make(chan domain.CommerceEvent, 64)}
	p.On("Publish", mock.Anything, domain.CommerceEventsSubject, mock.Anything).Return(nil)
	return p
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	var event domain.CommerceEvent
	if err := json.Unmarshal(data, &event); err == nil {
		m.published <- event
	}
	return args.Error(0)
}

func (m *MockEventPublisher) next(t *testing.T) domain.CommerceEvent {
	t.Helper()
	select {
	case e := <-m.published:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.CommerceEvent{}
	}
}

var (
	admin = domain.Identity{UserID: uuid.New(), Username: "admin", IsSuperuser: true}
	t0    = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	store     *memory.LedgerStore
	publisher *MockEventPublisher
	service   *Service
	product   domain.Product
	client    domain.Client
	owner     domain.Identity
	purchase  domain.Purchase
	clock     time.Time
}

// newFixture seeds a client who bought quantity units of a product at t0
func newFixture(price int64, stockLeft, quantity int, walletLeft int64) *fixture {
	store := memory.NewLedgerStore()
	publisher := newMockEventPublisher()

	product := domain.Product{ID: uuid.New(), Name: "Coffee", Price: decimal.NewFromInt(price), CountInStorage: stockLeft}
	client := domain.Client{ID: uuid.New(), UserID: uuid.New(), Wallet: decimal.NewFromInt(walletLeft)}
	clientID := client.ID
	purchase := domain.Purchase{
		ID:        uuid.New(),
		ClientID:  &clientID,
		Count:     quantity,
		CreatedAt: t0,
		Items: []domain.LineItem{
			{ProductID: product.ID, UnitPrice: product.Price, Quantity: quantity},
		},
	}
	store.AddProduct(product)
	store.AddClient(client)
	store.AddPurchase(purchase)

	f := &fixture{
		store:     store,
		publisher: publisher,
		product:   product,
		client:    client,
		owner:     domain.Identity{UserID: client.UserID, ClientID: client.ID},
		purchase:  purchase,
		clock:     t0,
	}
	f.service = NewService(store, publisher, DefaultWindow, logger.New("test"))
	f.service.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) at(d time.Duration) {
	f.clock = t0.Add(d)
}

func (f *fixture) stock() int {
	p, _ := f.store.Product(f.product.ID)
	return p.CountInStorage
}

func (f *fixture) wallet() decimal.Decimal {
	c, _ := f.store.Client(f.client.ID)
	return c.Wallet
}

func (f *fixture) pendingReturns(t *testing.T) int {
	t.Helper()
	n, err := f.store.CountReturns(context.Background(), domain.OwnerScope{All: true})
	require.NoError(t, err)
	return n
}

func (f *fixture) request(t *testing.T) *domain.Return {
	t.Helper()
	ret, err := f.service.Request(context.Background(), f.owner, RequestInput{PurchaseID: f.purchase.ID})
	require.NoError(t, err)
	f.publisher.next(t)
	return ret
}

func TestService_Request_InsideWindow(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	f.at(100 * time.Second)

	ret, err := f.service.Request(context.Background(), f.owner, RequestInput{PurchaseID: f.purchase.ID})

	require.NoError(t, err)
	assert.Equal(t, f.purchase.ID, ret.PurchaseID)
	assert.Equal(t, t0.Add(100*time.Second), ret.CreatedAt)
	assert.Equal(t, 1, f.pendingReturns(t))

	event := f.publisher.next(t)
	assert.Equal(t, domain.EventReturnRequested, event.EventType)
	require.NotNil(t, event.ReturnID)
	assert.Equal(t, ret.ID, *event.ReturnID)
}

func TestService_Request_WindowBoundaryIsInclusive(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	f.at(180 * time.Second)

	_, err := f.service.Request(context.Background(), f.owner, RequestInput{PurchaseID: f.purchase.ID})

	assert.NoError(t, err)
}

func TestService_Request_Expired(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	f.at(200 * time.Second)

	ret, err := f.service.Request(context.Background(), f.owner, RequestInput{PurchaseID: f.purchase.ID})

	assert.Nil(t, ret)
	assert.ErrorIs(t, err, domain.ErrReturnExpired)
	assert.Equal(t, "return is no longer possible", err.Error())
	assert.Equal(t, 0, f.pendingReturns(t))
	assert.True(t, f.store.HasPurchase(f.purchase.ID))
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Request_ConfiguredWindow(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	f.service.window = 72 * time.Hour
	f.at(48 * time.Hour)

	_, err := f.service.Request(context.Background(), f.owner, RequestInput{PurchaseID: f.purchase.ID})

	assert.NoError(t, err)
}

func TestService_Request_PurchaseNotFound(t *testing.T) {
	f := newFixture(10, 9, 1, 90)

	_, err := f.service.Request(context.Background(), f.owner, RequestInput{PurchaseID: uuid.New()})

	assert.True(t, domain.IsNotFoundEntity(err, domain.EntityPurchase))
}

func TestService_Request_OtherClientsPurchaseIsHidden(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	intruder := domain.Identity{UserID: uuid.New(), ClientID: uuid.New()}

	_, err := f.service.Request(context.Background(), intruder, RequestInput{PurchaseID: f.purchase.ID})

	assert.True(t, domain.IsNotFoundEntity(err, domain.EntityPurchase))
	assert.Equal(t, 0, f.pendingReturns(t))
}

func TestService_Request_AdminMayRequestForAnyPurchase(t *testing.T) {
	f := newFixture(10, 9, 1, 90)

	_, err := f.service.Request(context.Background(), admin, RequestInput{PurchaseID: f.purchase.ID})

	assert.NoError(t, err)
}

func TestService_Request_SecondPendingReturnConflicts(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	f.request(t)

	_, err := f.service.Request(context.Background(), f.owner, RequestInput{PurchaseID: f.purchase.ID})

	assert.ErrorIs(t, err, domain.ErrReturnPending)
	assert.Equal(t, 1, f.pendingReturns(t))
}

func TestService_Request_MissingPurchaseID(t *testing.T) {
	f := newFixture(10, 9, 1, 90)

	_, err := f.service.Request(context.Background(), f.owner, RequestInput{})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "purchase_id", verr.Field)
}

func TestService_Confirm_ReversesPurchase(t *testing.T) {
	f := newFixture(10, 7, 3, 70)
	ret := f.request(t)

	// A later price change must not affect the refund
	repriced := f.product
	repriced.Price = decimal.NewFromInt(99)
	repriced.CountInStorage = f.stock()
	f.store.AddProduct(repriced)

	// Confirmation is not subject to the window
	f.at(time.Hour)
	err := f.service.Confirm(context.Background(), admin, ret.ID)

	require.NoError(t, err)
	assert.Equal(t, 10, f.stock())
	assert.True(t, decimal.NewFromInt(100).Equal(f.wallet()))
	assert.False(t, f.store.HasPurchase(f.purchase.ID))
	assert.Equal(t, 0, f.pendingReturns(t))

	event := f.publisher.next(t)
	assert.Equal(t, domain.EventReturnConfirmed, event.EventType)
	assert.True(t, decimal.NewFromInt(30).Equal(event.Amount))
	assert.Equal(t, []uuid.UUID{f.product.ID}, event.ProductIDs)
}

func TestService_Confirm_MultipleLineItemsUseOwnSnapshotPrices(t *testing.T) {
	f := newFixture(10, 0, 1, 0)
	second := domain.Product{ID: uuid.New(), Name: "Water", Price: decimal.NewFromInt(15), CountInStorage: 0}
	f.store.AddProduct(second)

	clientID := f.client.ID
	multi := domain.Purchase{
		ID:        uuid.New(),
		ClientID:  &clientID,
		Count:     3,
		CreatedAt: t0,
		Items: []domain.LineItem{
			{ProductID: f.product.ID, UnitPrice: decimal.NewFromInt(10), Quantity: 1},
			{ProductID: second.ID, UnitPrice: decimal.NewFromInt(15), Quantity: 2},
		},
	}
	f.store.AddPurchase(multi)

	ret, err := f.service.Request(context.Background(), f.owner, RequestInput{PurchaseID: multi.ID})
	require.NoError(t, err)

	require.NoError(t, f.service.Confirm(context.Background(), admin, ret.ID))

	p2, _ := f.store.Product(second.ID)
	assert.Equal(t, 1, f.stock())
	assert.Equal(t, 2, p2.CountInStorage)
	assert.True(t, decimal.NewFromInt(40).Equal(f.wallet()))
}

func TestService_Confirm_OwnerlessPurchaseSkipsRefund(t *testing.T) {
	f := newFixture(10, 5, 1, 50)
	anonymous := domain.Purchase{
		ID:        uuid.New(),
		Count:     2,
		CreatedAt: t0,
		Items:     []domain.LineItem{{ProductID: f.product.ID, UnitPrice: decimal.NewFromInt(10), Quantity: 2}},
	}
	f.store.AddPurchase(anonymous)

	ret, err := f.service.Request(context.Background(), admin, RequestInput{PurchaseID: anonymous.ID})
	require.NoError(t, err)

	require.NoError(t, f.service.Confirm(context.Background(), admin, ret.ID))

	assert.Equal(t, 7, f.stock())
	assert.True(t, decimal.NewFromInt(50).Equal(f.wallet()))
	assert.False(t, f.store.HasPurchase(anonymous.ID))
}

func TestService_Confirm_RequiresPrivilege(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	ret := f.request(t)

	err := f.service.Confirm(context.Background(), f.owner, ret.ID)

	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 9, f.stock())
	assert.Equal(t, 1, f.pendingReturns(t))
}

func TestService_Confirm_UnknownReturn(t *testing.T) {
	f := newFixture(10, 9, 1, 90)

	err := f.service.Confirm(context.Background(), admin, uuid.New())

	assert.True(t, domain.IsNotFoundEntity(err, domain.EntityReturn))
}

func TestService_Reject_LeavesCommerceStateAlone(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	ret := f.request(t)

	err := f.service.Reject(context.Background(), admin, ret.ID)

	require.NoError(t, err)
	assert.Equal(t, 9, f.stock())
	assert.True(t, decimal.NewFromInt(90).Equal(f.wallet()))
	assert.True(t, f.store.HasPurchase(f.purchase.ID))
	assert.Equal(t, 0, f.pendingReturns(t))
	assert.Equal(t, domain.EventReturnRejected, f.publisher.next(t).EventType)

	err = f.service.Confirm(context.Background(), admin, ret.ID)
	assert.True(t, domain.IsNotFoundEntity(err, domain.EntityReturn))
}

func TestService_Reject_RequiresPrivilege(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	ret := f.request(t)

	err := f.service.Reject(context.Background(), f.owner, ret.ID)

	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 1, f.pendingReturns(t))
}

func TestService_ConcurrentConfirmAndReject_SingleOutcome(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	ret := f.request(t)

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				err = f.service.Confirm(context.Background(), admin, ret.ID)
			} else {
				err = f.service.Reject(context.Background(), admin, ret.ID)
			}
			if err == nil {
				wins.Add(1)
				return
			}
			assert.True(t, domain.IsNotFoundEntity(err, domain.EntityReturn))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load())
	assert.Equal(t, 0, f.pendingReturns(t))

	// Either the purchase was reversed exactly once or left untouched
	if f.store.HasPurchase(f.purchase.ID) {
		assert.Equal(t, 9, f.stock())
		assert.True(t, decimal.NewFromInt(90).Equal(f.wallet()))
	} else {
		assert.Equal(t, 10, f.stock())
		assert.True(t, decimal.NewFromInt(100).Equal(f.wallet()))
	}
}

func TestService_List_ScopedToOwner(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	f.request(t)

	mine, total, err := f.service.List(context.Background(), f.owner, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, mine, 1)

	stranger := domain.Identity{UserID: uuid.New(), ClientID: uuid.New()}
	theirs, total, err := f.service.List(context.Background(), stranger, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, theirs)

	all, total, err := f.service.List(context.Background(), admin, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, all, 1)
}

func TestService_RejectAllPending(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	f.request(t)

	clientID := f.client.ID
	second := domain.Purchase{
		ID: uuid.New(), ClientID: &clientID, Count: 1, CreatedAt: t0,
		Items: []domain.LineItem{{ProductID: f.product.ID, UnitPrice: decimal.NewFromInt(10), Quantity: 1}},
	}
	f.store.AddPurchase(second)
	_, err := f.service.Request(context.Background(), f.owner, RequestInput{PurchaseID: second.ID})
	require.NoError(t, err)

	n, err := f.service.RejectAllPending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, f.pendingReturns(t))
	assert.True(t, f.store.HasPurchase(f.purchase.ID))
	assert.True(t, f.store.HasPurchase(second.ID))
	assert.Equal(t, 9, f.stock())
}

// unscopedLedger lists every return whatever scope it is asked for
type unscopedLedger struct {
	*memory.LedgerStore
}

func (l unscopedLedger) ListReturns(ctx context.Context, _ domain.OwnerScope, limit, offset int) ([]*domain.Return, error) {
	return l.LedgerStore.ListReturns(ctx, domain.OwnerScope{All: true}, limit, offset)
}

func TestService_List_DropsRecordsOutsideCallerScope(t *testing.T) {
	f := newFixture(10, 9, 1, 90)
	f.request(t)

	service := NewService(unscopedLedger{f.store}, f.publisher, DefaultWindow, logger.New("test"))

	stranger := domain.Identity{UserID: uuid.New(), ClientID: uuid.New()}
	theirs, _, err := service.List(context.Background(), stranger, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	mine, _, err := service.List(context.Background(), f.owner, 20, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
