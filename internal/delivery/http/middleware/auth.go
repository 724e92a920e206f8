package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

type identityKey struct{}

// Authenticator resolves a credential to the caller behind it
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (domain.Identity, error)
}

// WithIdentity stores the authenticated caller in ctx
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller stored by Auth
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

// Auth returns a middleware that requires an "Authorization: Token <key>"
// header ("Bearer <key>" is accepted too)
func Auth(authn Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, ok := credentialFrom(r.Header.Get("Authorization"))
			if !ok {
				response.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided")
				return
			}

			identity, err := authn.Authenticate(r.Context(), credential)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrTokenExpired):
					response.Error(w, http.StatusUnauthorized, "Token has expired")
				case errors.Is(err, domain.ErrUnauthorized):
					response.Error(w, http.StatusUnauthorized, "Invalid token")
				default:
					log.Error("Failed to authenticate request", err)
					response.Error(w, http.StatusInternalServerError, "Internal server error")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func credentialFrom(header string) (string, bool) {
	scheme, key, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return "", false
	}

	switch strings.ToLower(scheme) {
	case "token", "bearer":
	default:
		return "", false
	}

	key = strings.TrimSpace(key)
	return key, key != ""
}
