package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports liveness for load balancers and monitoring.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Home serves the root banner.
func Home(c echo.Context) error {
	return c.String(http.StatusOK, "AUTHORS API")
}
