package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/openai-token-gateway/internal/httputil"
)

type contextKey string

const bearerTokenContextKey contextKey = "bearer_token"

// BearerToken extracts the raw bearer token from the request context.
func BearerToken(ctx context.Context) string {
	token, _ := ctx.Value(bearerTokenContextKey).(string)
	return token
}

// RequireBearer returns middleware that requires a bearer credential in the
// standard Authorization header and stores the raw value in the request
// context. Validation of the token itself happens downstream in the token
// authority; absence is rejected here, before any upstream traffic.
func RequireBearer(limiter *AuthAttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attemptKey := ClientIPKey(r)
			if limiter != nil && !limiter.Allow(attemptKey) {
				httputil.RespondError(w, http.StatusTooManyRequests, "rate_limited", "Too many authentication failures")
				return
			}

			token := extractBearerToken(r)
			if token == "" {
				if limiter != nil {
					limiter.RegisterFailure(attemptKey)
				}
				httputil.RespondError(w, http.StatusUnauthorized, "invalid_token", "Missing bearer token")
				return
			}

			ctx := context.WithValue(r.Context(), bearerTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

// ClientIPKey derives the auth-attempt bucket key for a request.
func ClientIPKey(r *http.Request) string {
	host := r.RemoteAddr
	if parsedHost, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = parsedHost
	}
	if host == "" {
		host = "unknown"
	}
	return "bearer:" + host
}
