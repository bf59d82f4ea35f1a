package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/authors-api/internal/model"
	"github.com/iliyamo/authors-api/internal/repository"
)

// ActorStore loads user rows for authenticated requests.
type ActorStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// LoadActor resolves the acting user from the credential store using the
// user_id set by JWTAuth and stores it under "actor". The store, not the
// token, is the system of record for the role, so a role change or account
// deletion takes effect on the next request. A token whose user no longer
// exists is treated as unauthenticated.
func LoadActor(users ActorStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := c.Get("user_id").(uint64)
			if !ok || id == 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			u, err := users.GetByID(c.Request().Context(), id)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authentication check failed"})
			}
			c.Set("actor", u)
			return next(c)
		}
	}
}

// ActorFrom returns the user stored by LoadActor.
func ActorFrom(c echo.Context) (*model.User, bool) {
	u, ok := c.Get("actor").(*model.User)
	return u, ok
}
