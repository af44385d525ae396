package handler

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the authenticated user's identifier from the echo
// context.  The JWT middleware stores the token's subject claim under
// the "user_id" key; a missing or empty value means the route was
// reached without authentication and the handler should answer 401.
func getUserID(c echo.Context) (string, error) {
	id, ok := c.Get("user_id").(string)
	if !ok || id == "" {
		return "", errors.New("user id not found in context")
	}
	return id, nil
}
