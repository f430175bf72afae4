package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"studydeck/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const OwnerContextKey ContextKey = "owner"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens  *security.TokenManager
	limiter *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(tokens *security.TokenManager, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		tokens:  tokens,
		limiter: limiter,
	}
}

// RequireOwner is middleware that requires a valid bearer token. The token's
// subject becomes the owner identity for the request.
func (m *Middleware) RequireOwner(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
			return
		}

		ownerID, err := m.tokens.Verify(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "Rejected bearer token", err)
			return
		}

		ctx := context.WithValue(r.Context(), OwnerContextKey, ownerID)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit is middleware that meters requests per owner, falling back to
// the client IP when the request is unauthenticated
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := OwnerFromContext(r.Context())
		if key == "" {
			key = security.GetClientIP(r)
		}

		if !m.limiter.Allow(key) {
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}

		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// OwnerFromContext retrieves the owner ID from the request context
func OwnerFromContext(ctx context.Context) string {
	ownerID, ok := ctx.Value(OwnerContextKey).(string)
	if !ok {
		return ""
	}
	return ownerID
}
