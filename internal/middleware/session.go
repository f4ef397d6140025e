package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/session"
)

// Failure selects how a guard rejects a request.
type Failure int

const (
	// RespondJSON answers with a JSON error envelope (API routes).
	RespondJSON Failure = iota
	// RedirectPage answers with a redirect (HTML page routes).
	RedirectPage
)

// Page redirect targets.
const (
	LoginPage   = "/login.html"
	DefaultPage = "/chat"
)

// RequireSession resolves the request's session through m and stores it in
// the context for handlers (see CurrentSession). Requests without a live
// session get 401 or a redirect to the login page.
func RequireSession(m *session.Manager, mode Failure) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, err := m.Resolve(c.Request().Context(), c.Request())
			if err != nil {
				log.Debug().Err(err).Str("path", c.Path()).Msg("session rejected")
				if mode == RedirectPage {
					return c.Redirect(http.StatusFound, LoginPage)
				}
				return c.JSON(apperr.Status(err), echo.Map{"error": apperr.Public(err)})
			}
			c.Set(sessionKey, s)
			c.Set("user_id", s.UserID)
			c.Set("role", s.UserRole)
			return next(c)
		}
	}
}
