package handler

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bank-assistant/internal/loan"
)

type loanReq struct {
	Principal json.Number `json:"principal"`
	Rate      json.Number `json:"rate"`
	Years     json.Number `json:"years"`
}

// CalculateLoan returns the amortization schedule for the posted terms.
func CalculateLoan(c echo.Context) error {
	var req loanReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid input parameters")
	}
	principal, err1 := req.Principal.Float64()
	rate, err2 := req.Rate.Float64()
	years, err3 := req.Years.Float64()
	if err1 != nil || err2 != nil || err3 != nil {
		return badRequest(c, "Invalid input parameters")
	}
	if years != math.Trunc(years) {
		return badRequest(c, "Years must be a whole number")
	}
	if years < 1 || years > loan.MaxYears {
		return badRequest(c, fmt.Sprintf("Years must be between 1 and %d", loan.MaxYears))
	}
	s, err := loan.Amortize(principal, rate, int(years))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
