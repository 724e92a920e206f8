package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommerceEventsSubject is the NATS subject commerce events are published on
const CommerceEventsSubject = "commerce.events"

// Commerce event types
const (
	EventPurchaseCreated = "purchase.created"
	EventReturnRequested = "return.requested"
	EventReturnConfirmed = "return.confirmed"
	EventReturnRejected  = "return.rejected"
)

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// CommerceEvent is emitted after a ledger transaction commits
type CommerceEvent struct {
	EventType  string          `json:"event_type"`
	Timestamp  time.Time       `json:"timestamp"`
	PurchaseID uuid.UUID       `json:"purchase_id"`
	ReturnID   *uuid.UUID      `json:"return_id,omitempty"`
	ClientID   *uuid.UUID      `json:"client_id,omitempty"`
	ProductIDs []uuid.UUID     `json:"product_ids"`
	Amount     decimal.Decimal `json:"amount"`
}
