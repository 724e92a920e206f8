package domain

import (
	"time"

	"github.com/google/uuid"
)

// Return is a pending request to reverse a purchase. Confirming or
// rejecting it deletes the record.
type Return struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	PurchaseID uuid.UUID  `json:"purchase_id" db:"purchase_id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	OwnerID    *uuid.UUID `json:"owner_id,omitempty" db:"owner_id"`
}

// Owner implements Owned
func (r *Return) Owner() *uuid.UUID {
	return r.OwnerID
}
