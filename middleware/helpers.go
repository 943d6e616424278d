package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/texperia/registration/auth"
	"github.com/texperia/registration/models"
)

type contextKey string

const (
	identityContextKey contextKey = "identity"
	scopeContextKey    contextKey = "admin_scope"
)

func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(auth.Identity)
	return id, ok
}

func WithScope(ctx context.Context, scope models.AdminScope) context.Context {
	return context.WithValue(ctx, scopeContextKey, scope)
}

func ScopeFromContext(ctx context.Context) (models.AdminScope, bool) {
	scope, ok := ctx.Value(scopeContextKey).(models.AdminScope)
	return scope, ok
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
