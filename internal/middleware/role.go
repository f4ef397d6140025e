package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/model"
)

// ErrAdminRequired is returned to API clients whose session lacks the admin role.
var ErrAdminRequired = apperr.New(apperr.ErrForbidden, "Admin privileges required")

// RequireRole enforces that the session stored by RequireSession has one of
// roles. It must run after RequireSession. Page routes redirect to the chat
// page instead of answering 403.
func RequireRole(mode Failure, roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := CurrentSession(c)
			if !ok {
				if mode == RedirectPage {
					return c.Redirect(http.StatusFound, LoginPage)
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
			}
			if !allowed[s.UserRole] {
				if mode == RedirectPage {
					return c.Redirect(http.StatusFound, DefaultPage)
				}
				return c.JSON(http.StatusForbidden, echo.Map{"error": apperr.Public(ErrAdminRequired)})
			}
			return next(c)
		}
	}
}

// RequireAdmin is RequireRole for the admin role.
func RequireAdmin(mode Failure) echo.MiddlewareFunc { return RequireRole(mode, model.RoleAdmin) }
