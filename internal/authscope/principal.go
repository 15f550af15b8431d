package authscope

import (
	"context"

	"github.com/originpoint/backend/internal/domain"
)

// Principal is the authenticated caller of spec.md §4.2/§6.4: a subject
// claim plus the single highest-precedence role drawn from the token's
// realm_access.roles array.
type Principal struct {
	Subject string
	Role    domain.Role
	AllRoles []domain.Role
}

// HasRole reports whether the principal carries the given realm role,
// regardless of which one won precedence.
func (p Principal) HasRole(r domain.Role) bool {
	for _, role := range p.AllRoles {
		if role == r {
			return true
		}
	}
	return false
}

type contextKey string

const principalContextKey contextKey = "authscope.principal"

// WithPrincipal stores the principal on the request context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// FromContext retrieves the principal injected by Middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// resolveRole picks the single domain.Role that governs a request's scope:
// the highest-precedence entry of RolePrecedence present in the token's
// realm roles. A token with no recognized role maps to RoleProspect, the
// least-privileged scope, rather than being rejected outright — prospects
// are an expected, deliberately low-trust caller (spec.md §4.2).
func resolveRole(realmRoles []string) (domain.Role, []domain.Role) {
	present := make(map[domain.Role]bool, len(realmRoles))
	all := make([]domain.Role, 0, len(realmRoles))
	for _, r := range realmRoles {
		role := domain.Role(r)
		present[role] = true
		all = append(all, role)
	}

	for _, candidate := range domain.RolePrecedence {
		if present[candidate] {
			return candidate, all
		}
	}
	return domain.RoleProspect, all
}
