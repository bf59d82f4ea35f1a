// Package middleware provides shared request processing for handlers.
package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/authors-api/internal/utils"
)

// RevocationChecker is the read side of the revocation ledger. It is
// consulted on every protected request; no caching sits in front of it.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects "user_id" (uint64) and "jti" (string) into the context.
// Rejection reasons (missing header, expired, bad signature, revoked) are
// logged individually for operators but collapse to a single 401 for the
// client.
func JWTAuth(secret string, revoked RevocationChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				log.Printf("auth: token rejected: %v", err)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			rev, err := revoked.IsRevoked(c.Request().Context(), claims.JTI)
			if err != nil {
				log.Printf("auth: revocation lookup failed: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication check failed"})
			}
			if rev {
				log.Printf("auth: token rejected: jti %s revoked", claims.JTI)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set("user_id", claims.UserID)
			c.Set("jti", claims.JTI)
			return next(c)
		}
	}
}
