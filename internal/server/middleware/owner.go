// Package middleware provides HTTP middleware that scopes requests to an owner.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// ownerKeyCtx is the context key for the request's owner key.
const ownerKeyCtx ContextKey = "ownerKey"

// OwnerHeader carries the owner key. It is an identifier, not a credential.
const OwnerHeader = "X-Owner-Key"

var validOwnerKey = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,128}$`)

// OwnerKey creates middleware that stores the caller's owner key in the request context.
// Requests without the header use defaultKey; malformed keys are rejected.
func OwnerKey(defaultKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(OwnerHeader)
			if key == "" {
				key = defaultKey
			}
			if !validOwnerKey.MatchString(key) {
				http.Error(w, "invalid owner key", http.StatusBadRequest)
				return
			}

			ctx := WithOwnerKey(r.Context(), key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithOwnerKey returns a copy of ctx carrying key.
func WithOwnerKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ownerKeyCtx, key)
}

// GetOwnerKey extracts the owner key from the request context.
func GetOwnerKey(r *http.Request) (string, error) {
	key, ok := r.Context().Value(ownerKeyCtx).(string)
	if !ok || key == "" {
		return "", fmt.Errorf("owner key not found in request context")
	}
	return key, nil
}
