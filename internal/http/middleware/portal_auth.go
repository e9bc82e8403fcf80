package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/careportal/internal/portal"
)

// RoleHeader carries the portal role when token auth is disabled.
const RoleHeader = "X-Portal-Role"

// PortalClaims is the JWT payload issued to portal users.
type PortalClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// PortalAuth resolves the caller's portal role. With a secret it requires an
// HMAC-signed bearer token carrying a "role" claim; without one (local
// development) it trusts the X-Portal-Role header.
func PortalAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				role, ok := portal.ParseRole(r.Header.Get(RoleHeader))
				if !ok {
					http.Error(w, `{"error":"missing or unknown portal role"}`, http.StatusUnauthorized)
					return
				}
				next.ServeHTTP(w, r.WithContext(portal.WithRole(r.Context(), role)))
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := PortalClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			role, ok := portal.ParseRole(claims.Role)
			if !ok {
				http.Error(w, `{"error":"unknown portal role"}`, http.StatusForbidden)
				return
			}
			ctx := portal.WithRole(r.Context(), role)
			if claims.Subject != "" {
				ctx = portal.WithSubject(ctx, claims.Subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
