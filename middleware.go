package ability

import (
	"errors"
	"net/http"
)

// ============================================================================
// HTTP MIDDLEWARE (request-handling boundary)
// ============================================================================

// RoutePermission names the (action, subject) pair a route requires.
type RoutePermission struct {
	Action  string
	Subject string
}

// RouteMap is an explicit mapping from "METHOD /path" to the permission the
// route requires. It replaces framework-level annotation metadata: the
// mapping is plain data consulted at request time, with no reflection.
type RouteMap map[string]RoutePermission

// Lookup resolves the permission for a method/path pair.
func (m RouteMap) Lookup(method, path string) (RoutePermission, bool) {
	p, ok := m[method+" "+path]
	return p, ok
}

// IdentityFunc extracts the caller's identity from a request. ok=false means
// the request is unauthenticated.
type IdentityFunc func(r *http.Request) (userID, roleID int64, ok bool)

// RequireAbility guards routes listed in the RouteMap with checker.Can.
// Routes absent from the map pass through untouched. Route-level checks carry
// no resource instance, so conditioned rules do not grant route access.
//
// This boundary chooses fail-closed: a rule source outage answers 503, never
// an implicit allow.
func RequireAbility(checker *Checker, routes RouteMap, identity IdentityFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			perm, guarded := routes.Lookup(r.Method, r.URL.Path)
			if !guarded {
				next.ServeHTTP(w, r)
				return
			}
			userID, roleID, ok := identity(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			allowed, err := checker.Can(r.Context(), userID, roleID, perm.Action, perm.Subject, nil)
			if err != nil {
				if errors.Is(err, ErrRuleSourceUnavailable) {
					http.Error(w, "authorization unavailable", http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "authorization error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
