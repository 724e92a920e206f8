package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a catalog item with a price and a stock counter
type Product struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	Text           *string         `json:"text,omitempty" db:"text"`
	Price          decimal.Decimal `json:"price" db:"price"`
	CountInStorage int             `json:"count_in_storage" db:"count_in_storage"`
}

// CostOf returns the price of quantity units
func (p *Product) CostOf(quantity int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(quantity)))
}

// ProductRepository defines read access to the catalog
type ProductRepository interface {
	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// List retrieves a paginated list of products
	List(ctx context.Context, limit, offset int) ([]*Product, error)

	// Count returns the total number of products
	Count(ctx context.Context) (int, error)
}
