package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-storefront/internal/logger"
	"ms-storefront/internal/models"
	"ms-storefront/internal/utils"
)

type contextKey string

const claimsKey contextKey = "admin_claims"

// Middleware guards admin routes. A nil verifier rejects every request.
func Middleware(v Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	if v == nil {
		log.LogSecurity("AUTH_UNCONFIGURED", "No admin verifier; every admin request will be rejected")
	}
	if _, open := v.(OpenVerifier); open {
		log.LogSecurity("AUTH_DISABLED", "ADMIN_AUTH_DISABLED=true; admin routes are unauthenticated")
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				claims, _ := v.Verify(r.Context(), "")
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				unauthorized(w, "admin authentication is not configured")
				return
			}

			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			claims, err := v.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("TOKEN_REJECTED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, reason string) {
	utils.WriteJSON(w, http.StatusUnauthorized, utils.ErrorResponse("unauthorized", reason))
}

// Claims returns the verified admin claims, or nil outside the admin routes.
func Claims(ctx context.Context) *models.AdminClaims {
	if c, ok := ctx.Value(claimsKey).(*models.AdminClaims); ok {
		return c
	}
	return nil
}
