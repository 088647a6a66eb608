package httpx

import (
	"context"
	"net/http"
	"strings"

	"bookcatalog/internal/platform/crypto"
)

type principalHolderKey struct{}

type principalHolder struct {
	userID string
}

func withPrincipalHolder(ctx context.Context, h *principalHolder) context.Context {
	return context.WithValue(ctx, principalHolderKey{}, h)
}

func recordPrincipal(ctx context.Context, userID string) {
	if h, ok := ctx.Value(principalHolderKey{}).(*principalHolder); ok {
		h.userID = userID
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authHeader[7:])
	return token, token != ""
}

// AuthMiddleware rejects requests without a valid Bearer token.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
				return
			}

			claims, err := crypto.ParseToken(secret, token)
			if err != nil {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", nil)
				return
			}

			recordPrincipal(r.Context(), claims.Sub)
			ctx := ContextWithUser(r.Context(), claims.Sub, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches the user when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if claims, err := crypto.ParseToken(secret, token); err == nil {
					recordPrincipal(r.Context(), claims.Sub)
					r = r.WithContext(ContextWithUser(r.Context(), claims.Sub, claims.Email))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
