// Package access decides which ledger records a caller may see.
package access

import "github.com/Pesokrava/storefront/internal/domain"

// ScopeFor returns the listing scope of caller: everything for superusers,
// only the caller's own client records otherwise
func ScopeFor(caller domain.Identity) domain.OwnerScope {
	if caller.IsSuperuser {
		return domain.OwnerScope{All: true}
	}
	return domain.OwnerScope{ClientID: caller.ClientID}
}

// Filter keeps the items caller is allowed to see
func Filter[T domain.Owned](caller domain.Identity, items []T) []T {
	scope := ScopeFor(caller)
	if scope.All {
		return items
	}

	visible := make([]T, 0, len(items))
	for _, item := range items {
		if scope.Allows(item.Owner()) {
			visible = append(visible, item)
		}
	}
	return visible
}

// CanSee reports whether caller may see item
func CanSee(caller domain.Identity, item domain.Owned) bool {
	return ScopeFor(caller).Allows(item.Owner())
}

// RequirePrivileged fails with domain.ErrForbidden unless caller is a superuser
func RequirePrivileged(caller domain.Identity) error {
	if !caller.IsSuperuser {
		return domain.ErrForbidden
	}
	return nil
}
