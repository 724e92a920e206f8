package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase records a completed buy. It is immutable once created and
// disappears only when a return for it is confirmed.
type Purchase struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ClientID  *uuid.UUID `json:"client_id,omitempty" db:"client_id"`
	Count     int        `json:"count" db:"count"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	Items     []LineItem `json:"items" db:"-"`
}

// LineItem snapshots the unit price a product was bought at
type LineItem struct {
	PurchaseID uuid.UUID       `json:"-" db:"purchase_id"`
	ProductID  uuid.UUID       `json:"product_id" db:"product_id"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity   int             `json:"quantity" db:"quantity"`
}

// Subtotal returns UnitPrice x Quantity
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Total is the amount debited from the owner's wallet at purchase time
func (p *Purchase) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ProductIDs lists the products referenced by the purchase
func (p *Purchase) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Owner implements Owned
func (p *Purchase) Owner() *uuid.UUID {
	return p.ClientID
}

// Age returns how long ago the purchase was made
func (p *Purchase) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}
