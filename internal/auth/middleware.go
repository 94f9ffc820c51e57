package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

// accountKey stores the authenticated account in the request context
var accountKey = contextKey{}

// Middleware authenticates requests using a bearer session token
type Middleware struct {
	service *Service
}

// NewMiddleware creates auth middleware backed by the given service
func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

// RequireAuth rejects requests without a valid session token
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}

		account, err := m.service.ValidateSession(r.Context(), token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired session"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccountFromContext returns the authenticated account, if any
func AccountFromContext(ctx context.Context) (*Account, bool) {
	account, ok := ctx.Value(accountKey).(*Account)
	return account, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
