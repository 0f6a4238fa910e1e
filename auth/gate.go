package auth

import (
	mapset "github.com/deckarep/golang-set/v2"
)

type (
	Decision byte
)

const (
	Allow Decision = iota
	RedirectLogin
	RedirectUnauthorized
)

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

var (
	// AllRoles lists every role seeded in the store.
	AllRoles = []string{RoleAdmin, RoleUser}
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectUnauthorized:
		return "redirect-unauthorized"
	}
	return "unknown"
}

// Authorize decides if a caller may reach a resource guarded by
// requiredRoles. Holding any one of the required roles is enough.
func Authorize(isAuthenticated bool, userRoles, requiredRoles []string) Decision {
	if !isAuthenticated {
		return RedirectLogin
	}
	granted := mapset.NewSet(userRoles...)
	if granted.Intersect(mapset.NewSet(requiredRoles...)).Cardinality() == 0 {
		return RedirectUnauthorized
	}
	return Allow
}

// HasRole reports whether role is one of roles.
func HasRole(roles []string, role string) bool {
	return mapset.NewSet(roles...).Contains(role)
}
