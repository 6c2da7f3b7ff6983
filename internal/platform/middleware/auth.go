package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/httputil"
	"eventdesk/pkg/requestcontext"

	dErrors "eventdesk/pkg/domain-errors"
)

// JWTValidator validates bearer tokens and returns the actor claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims are the claims the auth middleware needs from a validated token.
type JWTClaims struct {
	UserID      string
	DisplayName string
	Role        string
}

// RequireAuth validates the Authorization header and injects the actor into
// the request context. Identity resolution failures surface as unauthorized,
// never as a generic error, so clients can distinguish "log in again" from
// "something broke".
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "token validation failed",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err.Error(),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject"))
				return
			}

			ctx := requestcontext.WithActor(r.Context(), userID, claims.DisplayName, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StaticActor injects a fixed development identity into every request. Used
// in memory mode where no identity provider is wired up.
func StaticActor(userID id.UserID, displayName, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithActor(r.Context(), userID, displayName, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates an endpoint on the actor's application role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requestcontext.ActorRole(r.Context()) != role {
				httputil.WriteError(w, dErrors.Newf(dErrors.CodeForbidden, "%s role required", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
