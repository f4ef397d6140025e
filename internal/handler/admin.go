package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/query"
	"github.com/iliyamo/bank-assistant/internal/repository"
)

// AdminHandler serves the /api/admin endpoints. Admins see full records.
type AdminHandler struct {
	Store repository.CustomerStore
	Query *query.Service
}

func NewAdminHandler(s repository.CustomerStore, q *query.Service) *AdminHandler {
	return &AdminHandler{Store: s, Query: q}
}

// Customers lists every record.
func (h *AdminHandler) Customers(c echo.Context) error {
	list, err := h.Store.Scan(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"customers": list, "count": len(list), "timestamp": nowRFC3339()})
}

// Customer returns one record by customer id.
func (h *AdminHandler) Customer(c echo.Context) error {
	cust, err := h.Store.GetByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, apperr.ErrNotFound) {
		return fail(c, apperr.New(apperr.ErrNotFound, "Customer not found"))
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, cust)
}

// Stats returns the operator summary.
func (h *AdminHandler) Stats(c echo.Context) error {
	st, err := h.Query.AdminStats(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, struct {
		query.AdminStats
		Timestamp string `json:"timestamp"`
	}{st, nowRFC3339()})
}
