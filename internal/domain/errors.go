package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when the requested change collides with existing state
	ErrConflict = errors.New("conflict occurred")

	// ErrReturnPending is returned when a purchase already has a pending return
	ErrReturnPending = fmt.Errorf("return already pending: %w", ErrConflict)

	// ErrInsufficientStock is returned when a product has fewer units in storage than requested
	ErrInsufficientStock = errors.New("not enough products in storage")

	// ErrInsufficientFunds is returned when a client's wallet cannot cover a purchase
	ErrInsufficientFunds = errors.New("not enough money in wallet")

	// ErrReturnExpired is returned when the return window of a purchase has closed
	ErrReturnExpired = errors.New("return is no longer possible")

	// ErrForbidden is returned when a non-privileged caller invokes an admin operation
	ErrForbidden = errors.New("operation requires admin privileges")

	// ErrUnauthorized is returned when a credential does not resolve to a caller
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrTokenExpired is returned when a credential is older than the token TTL
	ErrTokenExpired = errors.New("token has expired")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)

// Entity names used in NotFoundError.
const (
	EntityProduct  = "product"
	EntityClient   = "client"
	EntityPurchase = "purchase"
	EntityReturn   = "return"
)

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFound builds a NotFoundError for the given entity and id.
func NewNotFound(entity string, id fmt.Stringer) *NotFoundError {
	e := &NotFoundError{Entity: entity}
	if id != nil {
		e.ID = id.String()
	}
	return e
}

// ValidationError describes a malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// IsNotFoundEntity reports whether err is a NotFoundError for the given entity.
func IsNotFoundEntity(err error, entity string) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) && nf.Entity == entity
}
