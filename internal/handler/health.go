package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health is a liveness check for load balancers and monitoring.  It does not
// touch the database.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}
