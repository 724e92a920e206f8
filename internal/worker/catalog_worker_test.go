package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

type fakeInvalidator struct {
	mu       sync.Mutex
	calls    map[uuid.UUID]int
	failures int
}

func (f *fakeInvalidator) InvalidateAllProductCache(ctx context.Context, productID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("redis unavailable")
	}
	f.calls[productID]++
	return nil
}

func (f *fakeInvalidator) count(id uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func setupTestWorker(failures int) (*CatalogWorker, *fakeInvalidator) {
	cache := &fakeInvalidator{calls: map[uuid.UUID]int{}, failures: failures}
	w := NewCatalogWorker(cache, logger.New("test"))
	w.debounce = 50 * time.Millisecond
	return w, cache
}

func encodeEvent(t *testing.T, productIDs ...uuid.UUID) []byte {
	t.Helper()
	data, err := json.Marshal(domain.CommerceEvent{
		EventType:  domain.EventPurchaseCreated,
		Timestamp:  time.Now(),
		PurchaseID: uuid.New(),
		ProductIDs: productIDs,
	})
	require.NoError(t, err)
	return data
}

func TestCatalogWorker_HandleEvent_Success(t *testing.T) {
	w, cache := setupTestWorker(0)
	first, second := uuid.New(), uuid.New()

	require.NoError(t, w.HandleEvent(encodeEvent(t, first, second)))
	assert.Equal(t, 2, w.GetPendingCount())

	assert.Eventually(t, func() bool {
		return cache.count(first) == 1 && cache.count(second) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, w.GetPendingCount())
}

func TestCatalogWorker_HandleEvent_InvalidJSON(t *testing.T) {
	w, _ := setupTestWorker(0)

	err := w.HandleEvent([]byte(`{invalid json}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestCatalogWorker_Debouncing_MultipleEvents(t *testing.T) {
	w, cache := setupTestWorker(0)
	productID := uuid.New()

	for i := 0; i < 5; i++ {
		require.NoError(t, w.HandleEvent(encodeEvent(t, productID)))
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, w.GetPendingCount())

	require.Eventually(t, func() bool { return cache.count(productID) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, cache.count(productID))
}

func TestCatalogWorker_RetriesFailures(t *testing.T) {
	w, cache := setupTestWorker(2)
	productID := uuid.New()

	require.NoError(t, w.HandleEvent(encodeEvent(t, productID)))

	assert.Eventually(t, func() bool { return cache.count(productID) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCatalogWorker_Shutdown_CancelsPending(t *testing.T) {
	w, cache := setupTestWorker(0)
	w.debounce = time.Hour
	productID := uuid.New()

	require.NoError(t, w.HandleEvent(encodeEvent(t, productID)))
	assert.Equal(t, 1, w.GetPendingCount())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Shutdown(ctx))

	assert.Equal(t, 0, w.GetPendingCount())
	assert.Equal(t, 0, cache.count(productID))

	require.NoError(t, w.HandleEvent(encodeEvent(t, productID)))
	assert.Equal(t, 0, w.GetPendingCount())
}
