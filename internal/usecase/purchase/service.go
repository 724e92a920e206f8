package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
	"github.com/Pesokrava/storefront/internal/pkg/validator"
	"github.com/Pesokrava/storefront/internal/usecase/access"
)

// CreateRequest is a request to buy quantity units of a single product
type CreateRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// Service handles purchases against the ledger
type Service struct {
	ledger    domain.LedgerStore
	publisher domain.EventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new purchase service
func NewService(ledger domain.LedgerStore, publisher domain.EventPublisher, log *logger.Logger) *Service {
	return &Service{
		ledger:    ledger,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

// Create buys req.Quantity units of a product for the caller's client.
// Preconditions are checked in order (product exists, stock, funds) and
// the first failure is returned with nothing changed.
func (s *Service) Create(ctx context.Context, caller domain.Identity, req CreateRequest) (*domain.Purchase, error) {
	if err := validator.Struct(req); err != nil {
		s.logger.Debugf("Purchase validation failed: %v", err)
		return nil, err
	}

	var purchase *domain.Purchase
	err := s.ledger.WithTx(ctx, func(tx domain.LedgerTx) error {
		product, err := tx.GetProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}

		client, err := tx.GetClientByUser(ctx, caller.UserID)
		if err != nil {
			return err
		}

		if product.CountInStorage < req.Quantity {
			return domain.ErrInsufficientStock
		}

		cost := product.CostOf(req.Quantity)
		if !client.CanAfford(cost) {
			return domain.ErrInsufficientFunds
		}

		// The checks above read unlocked rows; the conditional debits are
		// what actually guard against a concurrent purchase
		if err := tx.DebitStock(ctx, product.ID, req.Quantity); err != nil {
			return err
		}
		if err := tx.DebitWallet(ctx, client.ID, cost); err != nil {
			return err
		}

		clientID := client.ID
		purchase = &domain.Purchase{
			ID:        uuid.New(),
			ClientID:  &clientID,
			Count:     req.Quantity,
			CreatedAt: s.now().UTC(),
			Items: []domain.LineItem{{
				ProductID: product.ID,
				UnitPrice: product.Price,
				Quantity:  req.Quantity,
			}},
		}

		return tx.CreatePurchase(ctx, purchase)
	})
	if err != nil {
		s.logFailure(caller, req, err)
		return nil, err
	}

	s.publishEvent(domain.EventPurchaseCreated, purchase)

	s.logger.WithFields(map[string]interface{}{
		"purchase_id": purchase.ID,
		"product_id":  req.ProductID,
		"quantity":    req.Quantity,
		"amount":      purchase.Total().String(),
	}).Info("Purchase completed successfully")

	return purchase, nil
}

// List retrieves the purchases visible to caller
func (s *Service) List(ctx context.Context, caller domain.Identity, limit, offset int) ([]*domain.Purchase, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	scope := access.ScopeFor(caller)

	purchases, err := s.ledger.ListPurchases(ctx, scope, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list purchases", err)
		return nil, 0, err
	}

	total, err := s.ledger.CountPurchases(ctx, scope)
	if err != nil {
		s.logger.Error("Failed to count purchases", err)
		return nil, 0, err
	}

	return access.Filter(caller, purchases), total, nil
}

func (s *Service) logFailure(caller domain.Identity, req CreateRequest, err error) {
	log := s.logger.WithFields(map[string]interface{}{
		"user_id":    caller.UserID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})

	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInsufficientFunds):
		log.Infof("Purchase rejected: %v", err)
	default:
		log.Error("Failed to create purchase", err)
	}
}

// publishEvent publishes a purchase event (non-blocking)
func (s *Service) publishEvent(eventType string, purchase *domain.Purchase) {
	event := domain.CommerceEvent{
		EventType:  eventType,
		Timestamp:  s.now().UTC(),
		PurchaseID: purchase.ID,
		ClientID:   purchase.ClientID,
		ProductIDs: purchase.ProductIDs(),
		Amount:     purchase.Total(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for purchase %s", purchase.ID)
		return
	}

	go func() {
		if err := s.publisher.Publish(context.Background(), domain.CommerceEventsSubject, data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for purchase %s", purchase.ID)
		}
	}()
}
