package api

import (
	"context"
	"log"
	"net/http"

	"petbuddy-realtime/internal/identity"
)

// IdentityContextKey holds the authenticated caller of a request.
var IdentityContextKey = &contextKey{"Identity"}

type contextKey struct {
	name string
}

// AuthMiddleware requires a valid Bearer token and stores the caller in the request context.
func AuthMiddleware(resolver identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := identity.BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			id, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				log.Printf("⚠️ AuthMiddleware: %s %s rejected: %v", r.Method, r.URL.Path, err)
				writeJSONError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), IdentityContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CallerFrom returns the identity stored by AuthMiddleware.
func CallerFrom(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(identity.Identity)
	return id, ok
}
