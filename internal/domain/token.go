package domain

import (
	"context"
	"time"
)

// AuthToken is an issued API credential together with the identity it resolves to
type AuthToken struct {
	Key       string    `db:"key"`
	CreatedAt time.Time `db:"created_at"`
	Identity
}

// Expired reports whether the token is older than ttl
func (t *AuthToken) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.CreatedAt) > ttl
}

// TokenRepository resolves credentials. Tokens are issued elsewhere.
type TokenRepository interface {
	// GetByKey retrieves a token and its owner's identity
	GetByKey(ctx context.Context, key string) (*AuthToken, error)

	// Delete removes a token
	Delete(ctx context.Context, key string) error
}
