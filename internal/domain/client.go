package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client is the account holding a wallet balance, one per user
type Client struct {
	ID     uuid.UUID       `json:"id" db:"id"`
	UserID uuid.UUID       `json:"user_id" db:"user_id"`
	Wallet decimal.Decimal `json:"wallet" db:"wallet"`
}

// CanAfford reports whether the wallet covers amount
func (c *Client) CanAfford(amount decimal.Decimal) bool {
	return c.Wallet.GreaterThanOrEqual(amount)
}
