package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/storefront/internal/domain"
)

// TokenRepository implements domain.TokenRepository for PostgreSQL
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new PostgreSQL token repository
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

var _ domain.TokenRepository = (*TokenRepository)(nil)

// GetByKey retrieves a token joined with its user and, when present, the user's client
func (r *TokenRepository) GetByKey(ctx context.Context, key string) (*domain.AuthToken, error) {
	query := `
		SELECT t.key, t.created_at, u.id AS user_id, u.username, u.is_superuser,
		       COALESCE(c.id, '00000000-0000-0000-0000-000000000000'::uuid) AS client_id
		FROM auth_tokens t
		JOIN users u ON u.id = t.user_id
		LEFT JOIN clients c ON c.user_id = u.id
		WHERE t.key = $1
	`

	var token domain.AuthToken
	if err := r.db.GetContext(ctx, &token, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}

	return &token, nil
}

// Delete removes a token
func (r *TokenRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE key = $1`, key)
	return err
}
