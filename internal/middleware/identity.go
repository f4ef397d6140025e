package middleware

// identity.go holds the accessors for what the guards and the request logger
// leave in the echo context.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bank-assistant/internal/model"
)

const sessionKey = "session"

// CurrentSession returns the session stored by RequireSession.
func CurrentSession(c echo.Context) (model.Session, bool) {
	s, ok := c.Get(sessionKey).(model.Session)
	return s, ok
}

// userID returns the username of the current session, or "anon".
func userID(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v
	}
	return "anon"
}
