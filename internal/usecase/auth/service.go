package auth

import (
	"context"
	"errors"
	"time"

	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

// Service resolves API credentials to caller identities
type Service struct {
	tokens domain.TokenRepository
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewService creates a new authentication service
func NewService(tokens domain.TokenRepository, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		tokens: tokens,
		ttl:    ttl,
		now:    time.Now,
		logger: log,
	}
}

// Authenticate returns the identity behind credential. Expired tokens are
// deleted so the client has to obtain a new one.
func (s *Service) Authenticate(ctx context.Context, credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}

	token, err := s.tokens.GetByKey(ctx, credential)
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthorized) {
			s.logger.Error("Failed to look up token", err)
		}
		return domain.Identity{}, err
	}

	if token.Expired(s.now(), s.ttl) {
		if err := s.tokens.Delete(ctx, token.Key); err != nil {
			s.logger.Error("Failed to delete expired token", err)
		}
		s.logger.WithFields(map[string]interface{}{
			"user_id": token.UserID,
		}).Info("Rejected expired token")
		return domain.Identity{}, domain.ErrTokenExpired
	}

	return token.Identity, nil
}
