package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"reliefcore/pkg/requestcontext"
)

// JWTValidator defines the interface for validating agent JWT tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	AgentID string
	Org     string
}

// GetAgentID retrieves the authenticated agent ID from the context.
func GetAgentID(ctx context.Context) string {
	return requestcontext.AgentID(ctx)
}

// RequireAgentAuth validates the bearer token and stores the agent identity in
// context. Distribution endpoints are agent-only; registration desks present
// the same credential.
func RequireAgentAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "agent token rejected",
					"error", err.Error(),
					"request_id", GetRequestID(r.Context()),
				)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			ctx := requestcontext.WithAgentID(r.Context(), claims.AgentID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
