package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/bank-assistant/internal/apperr"
)

// fail converts err into the JSON error envelope. Server-side failures are
// logged with their detail; the client only sees the public message.
func fail(c echo.Context, err error) error {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.JSON(status, echo.Map{"error": apperr.Public(err)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// ErrorHandler is the echo HTTPErrorHandler. It renders errors that escape
// handlers (router 404/405, recovered panics, response encoding failures)
// in the same {"error": msg} envelope as fail.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := apperr.Status(err)
	msg := apperr.Public(err)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status, msg = he.Code, http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		msg = apperr.Public(err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, echo.Map{"error": msg})
	}
	if werr != nil {
		log.Error().Err(werr).Msg("write error response")
	}
}
