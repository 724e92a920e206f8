package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

const (
	// Events for the same product inside this window collapse into one invalidation
	debounceWindow = 1 * time.Second

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
)

// CacheInvalidator drops cached catalog entries for a product
type CacheInvalidator interface {
	InvalidateAllProductCache(ctx context.Context, productID uuid.UUID) error
}

// CatalogWorker consumes commerce events and evicts the cached stock levels
// of every product they touch
type CatalogWorker struct {
	cache    CacheInvalidator
	logger   *logger.Logger
	debounce time.Duration

	mu         sync.Mutex
	pending    map[uuid.UUID]*time.Timer
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewCatalogWorker creates a new catalog worker
func NewCatalogWorker(cache CacheInvalidator, log *logger.Logger) *CatalogWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &CatalogWorker{
		cache:      cache,
		logger:     log,
		debounce:   debounceWindow,
		pending:    make(map[uuid.UUID]*time.Timer),
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// HandleEvent decodes a commerce event and schedules invalidation of each product in it
func (w *CatalogWorker) HandleEvent(data []byte) error {
	var event domain.CommerceEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.Error("Failed to unmarshal commerce event", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	w.logger.WithFields(map[string]any{
		"event_type":  event.EventType,
		"purchase_id": event.PurchaseID.String(),
		"products":    len(event.ProductIDs),
	}).Info("Received commerce event")

	for _, productID := range event.ProductIDs {
		w.schedule(productID)
	}
	return nil
}

func (w *CatalogWorker) schedule(productID uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.shutdownCh:
		w.logger.Info("Worker shutting down, ignoring new event")
		return
	default:
	}

	if timer, found := w.pending[productID]; found && timer.Stop() {
		w.logger.WithFields(map[string]any{
			"product_id": productID.String(),
		}).Debug("Debouncing: resetting timer for product")
	} else {
		w.wg.Add(1)
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.pending[productID] == timer {
			delete(w.pending, productID)
		}
		w.mu.Unlock()

		w.invalidate(productID)
	})
	w.pending[productID] = timer
}

func (w *CatalogWorker) invalidate(productID uuid.UUID) {
	defer w.wg.Done()

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(map[string]any{
				"product_id": productID.String(),
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying cache invalidation")

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				w.logger.Info("Worker context cancelled, aborting retry")
				return
			}
			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(w.ctx, 5*time.Second)
		err := w.cache.InvalidateAllProductCache(ctx, productID)
		cancel()

		if err == nil {
			w.logger.WithFields(map[string]any{
				"product_id": productID.String(),
			}).Debug("Invalidated product cache")
			return
		}
		lastErr = err
	}

	w.logger.WithFields(map[string]any{
		"product_id":  productID.String(),
		"max_retries": maxRetries,
	}).Error("Cache invalidation failed after all retries", lastErr)
}

// Shutdown stops accepting events, drops pending timers and waits for
// in-flight invalidations until ctx expires
func (w *CatalogWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down catalog worker...")

	w.mu.Lock()
	close(w.shutdownCh)
	cancelled := 0
	for id, timer := range w.pending {
		if timer.Stop() {
			w.wg.Done()
			cancelled++
		}
		delete(w.pending, id)
	}
	w.mu.Unlock()

	w.cancel()

	w.logger.WithFields(map[string]any{
		"cancelled_updates": cancelled,
	}).Info("Cancelled pending invalidations")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("All in-flight invalidations completed")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// GetPendingCount returns the number of products waiting for invalidation
func (w *CatalogWorker) GetPendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
