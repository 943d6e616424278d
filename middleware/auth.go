package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/texperia/registration/auth"
	"github.com/texperia/registration/models"
)

// TokenValidator is satisfied by *auth.Issuer.
type TokenValidator interface {
	Validate(token string) (auth.Identity, error)
}

// ScopeResolver is satisfied by *auth.Resolver.
type ScopeResolver interface {
	Resolve(id auth.Identity) (models.AdminScope, error)
}

// Authenticate requires a valid bearer token and stores the identity in the
// request context. Any role is accepted.
func Authenticate(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}
			identity, err := tokens.Validate(token)
			if err != nil {
				unauthorized(w, auth.ErrInvalidToken.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin must run after Authenticate. It rejects non-admins and
// admins missing from the allow-list, and stores the resolved scope.
func RequireAdmin(resolver ScopeResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				unauthorized(w, auth.ErrMissingToken.Error())
				return
			}
			scope, err := resolver.Resolve(identity)
			if err != nil {
				if !errors.Is(err, auth.ErrNotAdmin) {
					slog.WarnContext(r.Context(), "Admin access denied", slog.String("email", identity.Email))
				}
				writeError(w, http.StatusForbidden, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), scope)))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", auth.ErrMissingToken
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", auth.ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, message)
}
