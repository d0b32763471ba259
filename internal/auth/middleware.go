package auth

import (
	"net/http"
	"slices"
)

// ErrorWriter renders an authentication or authorization failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, message string)

// Authenticate requires a valid bearer token and stores the identity in the
// request context.
func Authenticate(v *Verifier, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				onError(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			id, err := v.Verify(token)
			if err != nil {
				onError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole lets the request through only for the listed roles. It must run
// after Authenticate.
func RequireRole(onError ErrorWriter, roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				onError(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			if !slices.Contains(roles, id.Role) {
				onError(w, r, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Identify attaches the identity when the request carries a valid bearer
// token and passes anonymous or invalid requests through untouched. Public
// routes use it to widen responses for staff.
func Identify(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r.Header.Get("Authorization"))
			if err == nil {
				if id, err := v.Verify(token); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
