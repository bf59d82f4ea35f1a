package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/authors-api/internal/model"
)

// RequireRole aborts with 403 unless the actor loaded by LoadActor holds
// one of the given roles. It guards the admin-only list routes; per-record
// ownership checks live in the policy package.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok || !allowed[actor.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "You are not authorized to access this route"})
			}
			return next(c)
		}
	}
}
