package returns

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/pkg/validator"
	"github.com/Pesokrava/storefront/internal/usecase/access"
)

// DefaultWindow is how long after a purchase a return may be requested
const DefaultWindow = 180 * time.Second

// RequestInput is a request to return a purchase
type RequestInput struct {
	PurchaseID uuid.UUID `json:"purchase_id" validate:"required"`
}

// Service handles the return lifecycle: pending, then confirmed or rejected
type Service struct {
	ledger    domain.LedgerStore
	publisher domain.EventPublisher
	window    time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new return service; a non-positive window falls back to DefaultWindow
func NewService(ledger domain.LedgerStore, publisher domain.EventPublisher, window time.Duration, log *logger.Logger) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		ledger:    ledger,
		publisher: publisher,
		window:    window,
		logger:    log,
		now:       time.Now,
	}
}

// Request creates a pending return for a purchase still inside the return window.
// Non-privileged callers can only return their own purchases.
func (s *Service) Request(ctx context.Context, caller domain.Identity, in RequestInput) (*domain.Return, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	var (
		ret      *domain.Return
		purchase *domain.Purchase
	)
	err := s.ledger.WithTx(ctx, func(tx domain.LedgerTx) error {
		var err error
		purchase, err = tx.GetPurchase(ctx, in.PurchaseID)
		if err != nil {
			return err
		}

		if !access.CanSee(caller, purchase) {
			return domain.NewNotFound(domain.EntityPurchase, in.PurchaseID)
		}

		now := s.now().UTC()
		if purchase.Age(now) > s.window {
			return domain.ErrReturnExpired
		}

		ret = &domain.Return{
			ID:         uuid.New(),
			PurchaseID: purchase.ID,
			CreatedAt:  now,
			OwnerID:    purchase.ClientID,
		}
		return tx.CreateReturn(ctx, ret)
	})
	if err != nil {
		s.logOutcome("Return request rejected", in.PurchaseID, err)
		return nil, err
	}

	s.publishEvent(domain.EventReturnRequested, ret, purchase, decimal.Zero)

	s.logger.WithFields(map[string]interface{}{
		"return_id":   ret.ID,
		"purchase_id": purchase.ID,
	}).Info("Return requested")

	return ret, nil
}

// Confirm accepts a pending return: stock goes back to storage, the snapshot
// price is refunded to the owner and both records are deleted
func (s *Service) Confirm(ctx context.Context, caller domain.Identity, returnID uuid.UUID) error {
	if err := access.RequirePrivileged(caller); err != nil {
		return err
	}

	var (
		ret      *domain.Return
		purchase *domain.Purchase
		refund   decimal.Decimal
	)
	err := s.ledger.WithTx(ctx, func(tx domain.LedgerTx) error {
		var err error
		ret, err = tx.DeleteReturn(ctx, returnID)
		if err != nil {
			return err
		}

		purchase, err = tx.GetPurchase(ctx, ret.PurchaseID)
		if err != nil {
			return err
		}

		for _, item := range purchase.Items {
			if err := tx.CreditStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		refund = purchase.Total()
		if purchase.ClientID != nil {
			if err := tx.CreditWallet(ctx, *purchase.ClientID, refund); err != nil {
				return err
			}
		}

		return tx.DeletePurchase(ctx, purchase.ID)
	})
	if err != nil {
		s.logOutcome("Return confirmation failed", returnID, err)
		return err
	}

	s.publishEvent(domain.EventReturnConfirmed, ret, purchase, refund)

	s.logger.WithFields(map[string]interface{}{
		"return_id":   ret.ID,
		"purchase_id": purchase.ID,
		"refund":      refund.String(),
	}).Info("Return confirmed")

	return nil
}

// Reject discards a pending return; the purchase stands
func (s *Service) Reject(ctx context.Context, caller domain.Identity, returnID uuid.UUID) error {
	if err := access.RequirePrivileged(caller); err != nil {
		return err
	}

	var ret *domain.Return
	err := s.ledger.WithTx(ctx, func(tx domain.LedgerTx) error {
		var err error
		ret, err = tx.DeleteReturn(ctx, returnID)
		return err
	})
	if err != nil {
		s.logOutcome("Return rejection failed", returnID, err)
		return err
	}

	s.publishEvent(domain.EventReturnRejected, ret, nil, decimal.Zero)

	s.logger.WithFields(map[string]interface{}{
		"return_id":   ret.ID,
		"purchase_id": ret.PurchaseID,
	}).Info("Return rejected")

	return nil
}

// List retrieves the pending returns visible to caller
func (s *Service) List(ctx context.Context, caller domain.Identity, limit, offset int) ([]*domain.Return, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	scope := access.ScopeFor(caller)

	returns, err := s.ledger.ListReturns(ctx, scope, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list returns", err)
		return nil, 0, err
	}

	total, err := s.ledger.CountReturns(ctx, scope)
	if err != nil {
		s.logger.Error("Failed to count returns", err)
		return nil, 0, err
	}

	return access.Filter(caller, returns), total, nil
}

// RejectAllPending discards every pending return and reports how many there were
func (s *Service) RejectAllPending(ctx context.Context) (int, error) {
	var rejected int
	err := s.ledger.WithTx(ctx, func(tx domain.LedgerTx) error {
		var err error
		rejected, err = tx.DeleteAllReturns(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("Failed to reject pending returns", err)
		return 0, err
	}

	s.logger.WithFields(map[string]interface{}{
		"rejected": rejected,
	}).Info("Rejected all pending returns")

	return rejected, nil
}

func (s *Service) logOutcome(msg string, id uuid.UUID, err error) {
	log := s.logger.With("id", id)

	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrReturnExpired),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrForbidden):
		log.Infof("%s: %v", msg, err)
	default:
		log.Error(msg, err)
	}
}

// publishEvent publishes a return event (non-blocking)
func (s *Service) publishEvent(eventType string, ret *domain.Return, purchase *domain.Purchase, amount decimal.Decimal) {
	returnID := ret.ID
	event := domain.CommerceEvent{
		EventType:  eventType,
		Timestamp:  s.now().UTC(),
		PurchaseID: ret.PurchaseID,
		ReturnID:   &returnID,
		ClientID:   ret.OwnerID,
		ProductIDs: []uuid.UUID{},
		Amount:     amount,
	}
	if purchase != nil {
		event.ProductIDs = purchase.ProductIDs()
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for return %s", ret.ID)
		return
	}

	go func() {
		if err := s.publisher.Publish(context.Background(), domain.CommerceEventsSubject, data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for return %s", ret.ID)
		}
	}()
}
