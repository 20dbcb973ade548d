package auth

import (
	"net/http"
)

// DenyFunc writes the response for a rejected request. status is 401 or
// 403.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, err error)

// RequireRole returns middleware that admits only bearer tokens verified
// by v whose identity has role. A nil v admits every request.
func RequireRole(v *Verifier, role string, deny DenyFunc) func(http.Handler) http.Handler {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, status int, _ error) {
			http.Error(w, http.StatusText(status), status)
		}
	}
	return func(next http.Handler) http.Handler {
		if v == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := extractBearerToken(r.Header.Get("Authorization"))
			if err != nil {
				deny(w, r, http.StatusUnauthorized, err)
				return
			}
			id, err := v.Verify(raw)
			if err != nil {
				deny(w, r, http.StatusUnauthorized, err)
				return
			}
			if !id.HasRole(role) {
				deny(w, r, http.StatusForbidden, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
