package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Diego-Toledo1/secure-smart-locker/internal/models"
	pkghttp "github.com/Diego-Toledo1/secure-smart-locker/pkg/http"
)

type contextKey string

// UserContextKey is the key for storing user claims in context
const UserContextKey contextKey = "user"

// TokenValidator validates bearer tokens. *TokenManager satisfies it.
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.TokenClaims, error)
}

// UserRepository fetches the current state of an account.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Authenticate validates the bearer token and injects its claims into the
// request context.
func Authenticate(tv TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := tv.ValidateToken(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole enforces role-based access using the role currently stored
// for the user, so demotions take effect before the token expires.
func RequireRole(userRepo UserRepository, role string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			user, err := userRepo.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "user not found")
					return
				}
				logger.Error("failed to load user for role check",
					slog.Int64("user_id", claims.UserID),
					slog.Any("error", err),
				)
				pkghttp.WriteInternalError(w, "failed to verify permissions")
				return
			}

			if user.Role != role {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ContextWithClaims returns a copy of ctx carrying claims.
func ContextWithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// CanActFor reports whether the caller may operate on userID's locker.
func CanActFor(claims *models.TokenClaims, userID int64) bool {
	if claims == nil {
		return false
	}
	return claims.UserID == userID || claims.IsAdmin()
}
