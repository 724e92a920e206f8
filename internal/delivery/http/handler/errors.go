package handler

import (
	"errors"
	"net/http"

	"github.com/Pesokrava/storefront/internal/delivery/http/middleware"
	"github.com/Pesokrava/storefront/internal/delivery/http/response"
	"github.com/Pesokrava/storefront/internal/domain"
	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

var notFoundMessages = map[string]string{
	domain.EntityProduct:  "Product not found",
	domain.EntityClient:   "Client not found",
	domain.EntityPurchase: "Purchase not found",
	domain.EntityReturn:   "Return not found",
}

var invalidFieldMessages = map[string]string{
	"quantity":    "Invalid quantity",
	"product_id":  "Invalid product ID",
	"purchase_id": "Invalid purchase ID",
}

// handleError maps service layer errors to HTTP responses
func handleError(w http.ResponseWriter, log *logger.Logger, err error) {
	var (
		notFound   *domain.NotFoundError
		validation *domain.ValidationError
	)

	switch {
	case errors.As(err, &validation):
		msg, ok := invalidFieldMessages[validation.Field]
		if !ok {
			msg = "Invalid input"
		}
		response.Error(w, http.StatusBadRequest, msg)
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.As(err, &notFound):
		msg, ok := notFoundMessages[notFound.Entity]
		if !ok {
			msg = "Resource not found"
		}
		response.Error(w, http.StatusNotFound, msg)
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, domain.ErrInsufficientStock):
		response.Error(w, http.StatusConflict, "Not enough products in storage")
	case errors.Is(err, domain.ErrInsufficientFunds):
		response.Error(w, http.StatusPaymentRequired, "You don't have enough money")
	case errors.Is(err, domain.ErrReturnExpired):
		response.Error(w, http.StatusUnprocessableEntity, "Return is no longer possible")
	case errors.Is(err, domain.ErrReturnPending):
		response.Error(w, http.StatusConflict, "A return for this purchase is already pending")
	case errors.Is(err, domain.ErrConflict):
		response.Error(w, http.StatusConflict, "Request conflicts with the current state")
	case errors.Is(err, domain.ErrForbidden):
		response.Error(w, http.StatusForbidden, "Admin privileges required")
	case errors.Is(err, domain.ErrTokenExpired):
		response.Error(w, http.StatusUnauthorized, "Token has expired")
	case errors.Is(err, domain.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "Invalid token")
	default:
		log.Error("Internal error in handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

// caller returns the authenticated identity or writes a 401
func caller(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Authentication credentials were not provided")
	}
	return id, ok
}
