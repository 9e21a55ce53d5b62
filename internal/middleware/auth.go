package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"licenser/internal/infrastructure"
)

type contextKey string

const (
	subjectContextKey contextKey = "auth-subject"
	roleContextKey    contextKey = "auth-role"
)

// RoleAdmin marks tokens allowed to manage licenses; every other
// authenticated token holds RoleClient.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// accessClaims is the token payload the server accepts. Role defaults
// to client when the claim is absent.
type accessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Authenticator validates the bearer token on every request and puts
// the subject and role into the request context. Tokens are HMAC
// signed with the shared signing key.
func Authenticator(signingKey []byte, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(ctx, "missing authorization header",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)
				problem := ProblemFromStatus(http.StatusUnauthorized,
					"Missing authorization header", infrastructure.GetTraceID(ctx))
				problem.Render(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				problem := ProblemFromStatus(http.StatusUnauthorized,
					"Invalid authorization header format", infrastructure.GetTraceID(ctx))
				problem.Render(w, r)
				return
			}

			claims := &accessClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return signingKey, nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(ctx, "token validation failed",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
				)
				problem := ProblemFromStatus(http.StatusUnauthorized,
					"Invalid or expired token", infrastructure.GetTraceID(ctx))
				problem.Render(w, r)
				return
			}

			role := claims.Role
			if role == "" {
				role = RoleClient
			}

			ctx = context.WithValue(ctx, subjectContextKey, claims.Subject)
			ctx = context.WithValue(ctx, roleContextKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated requests whose token does not
// carry the given role. Must run after Authenticator.
func RequireRole(role string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if RoleFromContext(ctx) != role {
				logger.WarnContext(ctx, "insufficient role",
					"required", role,
					"subject", SubjectFromContext(ctx),
					"path", r.URL.Path,
				)
				problem := ProblemFromStatus(http.StatusForbidden,
					"Access denied", infrastructure.GetTraceID(ctx))
				problem.Render(w, r)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SubjectFromContext returns the authenticated subject, or "".
func SubjectFromContext(ctx context.Context) string {
	if sub, ok := ctx.Value(subjectContextKey).(string); ok {
		return sub
	}
	return ""
}

// RoleFromContext returns the authenticated role, or "".
func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(roleContextKey).(string); ok {
		return role
	}
	return ""
}

// IssueToken signs an access token for the given subject and role.
// Used by tests and provisioning tooling; production tokens come from
// the identity provider.
func IssueToken(signingKey []byte, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}
