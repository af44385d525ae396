package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness endpoint used by load balancers.  It answers
// "ok" as plain text; readiness of downstream dependencies is not
// checked here.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
