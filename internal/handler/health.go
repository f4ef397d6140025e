package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bank-assistant/internal/repository"
	"github.com/iliyamo/bank-assistant/internal/session"
)

var now = time.Now

func nowRFC3339() string { return now().Format(time.RFC3339) }

// Endpoint describes one API route for GET /api/endpoints.
type Endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Access      string `json:"access"`
}

// UtilityHandler serves the health and discovery endpoints.
type UtilityHandler struct {
	Store     repository.CustomerStore
	Sessions  *session.Manager
	Endpoints func() []Endpoint
}

func NewUtilityHandler(s repository.CustomerStore, m *session.Manager, endpoints func() []Endpoint) *UtilityHandler {
	return &UtilityHandler{Store: s, Sessions: m, Endpoints: endpoints}
}

// Health reports liveness, the record count and whether the caller has a
// session. It answers 200 even when the record store is unreadable so that
// the process itself is not restarted for a data problem.
func (h *UtilityHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	resp := echo.Map{"status": "healthy", "timestamp": nowRFC3339()}
	if list, err := h.Store.Scan(ctx); err != nil {
		resp["status"] = "degraded"
		resp["customer_count"] = 0
	} else {
		resp["customer_count"] = len(list)
	}
	info := echo.Map{"has_session": false}
	if s, err := h.Sessions.Resolve(ctx, c.Request()); err == nil {
		info = echo.Map{"has_session": true, "user_id": s.UserID, "user_role": s.UserRole}
	}
	resp["session_info"] = info
	return c.JSON(http.StatusOK, resp)
}

// ListEndpoints returns the API route table.
func (h *UtilityHandler) ListEndpoints(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"endpoints": h.Endpoints()})
}
