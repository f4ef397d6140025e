package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bank-assistant/internal/middleware"
	"github.com/iliyamo/bank-assistant/internal/model"
	"github.com/iliyamo/bank-assistant/internal/query"
)

// CustomerHandler serves the /api/customer endpoints. Records leave through
// it redacted: credential columns are never returned.
type CustomerHandler struct {
	Query *query.Service
}

func NewCustomerHandler(q *query.Service) *CustomerHandler { return &CustomerHandler{Query: q} }

func redactAll(list []model.Customer) []model.Customer {
	out := make([]model.Customer, len(list))
	for i := range list {
		out[i] = list[i].Redacted()
	}
	return out
}

func currentCustomer(c echo.Context) (model.Customer, bool) {
	s, ok := middleware.CurrentSession(c)
	if !ok || s.CustomerData == nil {
		return model.Customer{}, false
	}
	return *s.CustomerData, true
}

// Current returns the record snapshot taken at login.
func (h *CustomerHandler) Current(c echo.Context) error {
	s, ok := currentCustomer(c)
	if !ok {
		return badRequest(c, "No customer data available")
	}
	return c.JSON(http.StatusOK, s)
}

// Random returns a random record.
func (h *CustomerHandler) Random(c echo.Context) error {
	cust, err := h.Query.Random(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, cust.Redacted())
}

// Search runs a substring search, see query.Service.Search.
func (h *CustomerHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return badRequest(c, "Search query is required")
	}
	results, err := h.Query.Search(c.Request().Context(), q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"query": q, "results": redactAll(results), "count": len(results)})
}

// Stats returns the customer base summary.
func (h *CustomerHandler) Stats(c echo.Context) error {
	st, err := h.Query.Stats(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// ByLoanType lists records with the given loan type.
func (h *CustomerHandler) ByLoanType(c echo.Context) error {
	v := c.Param("type")
	list, err := h.Query.FilterBy(c.Request().Context(), query.FieldLoanType, v)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"loan_type": v, "customers": redactAll(list), "count": len(list)})
}

// ByRiskLevel lists records with the given risk level.
func (h *CustomerHandler) ByRiskLevel(c echo.Context) error {
	v := c.Param("level")
	list, err := h.Query.FilterBy(c.Request().Context(), query.FieldRiskLevel, v)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"risk_level": v, "customers": redactAll(list), "count": len(list)})
}

// MyLoan summarises the caller's loan.
func (h *CustomerHandler) MyLoan(c echo.Context) error {
	cust, ok := currentCustomer(c)
	if !ok {
		return badRequest(c, "No customer data available")
	}
	if !cust.HasLoan() {
		return c.JSON(http.StatusOK, echo.Map{"has_loan": false, "message": "You don't have any active loans"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"has_loan":        true,
		"loan_type":       cust.LoanTypes,
		"loan_amount":     cust.LoanAmounts,
		"monthly_payment": cust.MonthlyPayments,
		"interest_rate":   cust.InterestRate,
	})
}

// MyAccount summarises the caller's account. Loan fields are null without
// a loan.
func (h *CustomerHandler) MyAccount(c echo.Context) error {
	cust, ok := currentCustomer(c)
	if !ok {
		return badRequest(c, "No customer data available")
	}
	resp := echo.Map{
		"name":                     cust.DisplayName(),
		"account_type":             cust.AccountType,
		"account_status":           cust.AccountStatus,
		"balance":                  cust.Balance,
		"credit_score":             cust.CreditScore,
		"risk_level":               cust.RiskLevel,
		"account_opened_date":      cust.AccountOpenedDate,
		"last_transaction_date":    cust.LastTransactionDate,
		"preferred_contact_method": cust.PreferredContactMethod,
		"common_issues":            cust.CommonIssues,
		"has_loans":                cust.HasLoans,
		"loan_types":               nil,
		"loan_amounts":             nil,
		"monthly_payments":         nil,
		"interest_rate":            cust.InterestRate,
	}
	if cust.HasLoan() {
		resp["loan_types"] = cust.LoanTypes
		resp["loan_amounts"] = cust.LoanAmounts
		resp["monthly_payments"] = cust.MonthlyPayments
	}
	return c.JSON(http.StatusOK, resp)
}

// Usernames lists login names for the demo login page. It is public and
// returns names only.
func (h *CustomerHandler) Usernames(c echo.Context) error {
	names, err := h.Query.Usernames(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"usernames": names, "count": len(names)})
}
