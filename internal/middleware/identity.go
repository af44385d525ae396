package middleware

// identity.go defines helper functions shared across middleware files.
// currentUserID pulls the verified user id that JWTAuth stored in the
// Echo context; rate limiting uses it to build per-user keys. When no
// user is authenticated, "anon" is returned so anonymous traffic still
// shares one bucket per strategy.

import "github.com/labstack/echo/v4"

// currentUserID extracts the authenticated user's id from context. It
// returns "anon" when the request carries no verified identity.
func currentUserID(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        if s, ok := v.(string); ok && s != "" {
            return s
        }
    }
    return "anon"
}
