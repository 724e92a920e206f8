package domain

import "github.com/google/uuid"

// Identity is the authenticated caller of an operation.
// ClientID is uuid.Nil when the user has no client account.
type Identity struct {
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Username    string    `json:"username" db:"username"`
	ClientID    uuid.UUID `json:"client_id" db:"client_id"`
	IsSuperuser bool      `json:"is_superuser" db:"is_superuser"`
}

// HasClient reports whether the caller owns a client account
func (i Identity) HasClient() bool {
	return i.ClientID != uuid.Nil
}

// Owns reports whether ownerID refers to the caller's client
func (i Identity) Owns(ownerID *uuid.UUID) bool {
	return ownerID != nil && i.HasClient() && *ownerID == i.ClientID
}

// OwnerScope restricts listings to the records a caller may see
type OwnerScope struct {
	All      bool
	ClientID uuid.UUID
}

// Allows reports whether a record owned by ownerID is inside the scope.
// Ownerless records are only visible to an unrestricted scope.
func (s OwnerScope) Allows(ownerID *uuid.UUID) bool {
	if s.All {
		return true
	}
	return ownerID != nil && s.ClientID != uuid.Nil && *ownerID == s.ClientID
}

// Owned is implemented by records that belong to a client
type Owned interface {
	Owner() *uuid.UUID
}
