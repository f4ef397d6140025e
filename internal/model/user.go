package model

import (
	"fmt"
	"strings"
)

// Roles derived from Customer.AccountType. There is no roles table: an
// account_type of "admin" is the only source of elevated privileges.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// Columns lists the canonical record columns in the order the bundled data
// file uses. Stores preserve whatever order the backing file actually has.
var Columns = []string{
	"customer_id", "username", "password_hash", "first_name", "last_name", "email",
	"account_type", "account_status", "balance", "credit_score", "risk_level",
	"has_loans", "loan_types", "loan_amounts", "monthly_payments", "interest_rate",
	"account_opened_date", "last_transaction_date", "preferred_contact_method",
	"common_issues", "security_question", "security_answer",
	"reset_token", "reset_token_expiry",
}

// Customer represents one row of the customer record store. Every value is
// kept in its stored textual form so that rewriting the store reproduces
// untouched rows exactly. The four numeric columns use Number, which
// keeps the raw text and still renders as a JSON number.
//
// Fields:
//
//	PasswordHash     – sha256 hex digest, bcrypt hash, or (demo data) plaintext.
//	ResetToken       – empty, or set together with ResetTokenExpiry.
//	ResetTokenExpiry – RFC3339 timestamp (ISO-8601 without zone is accepted).
//	Extra            – columns this version does not know about, kept verbatim.
type Customer struct {
	CustomerID             string `json:"customer_id"`
	Username               string `json:"username"`
	PasswordHash           string `json:"password_hash,omitempty"`
	FirstName              string `json:"first_name"`
	LastName               string `json:"last_name"`
	Email                  string `json:"email"`
	AccountType            string `json:"account_type"`
	AccountStatus          string `json:"account_status"`
	Balance                Number `json:"balance"`
	CreditScore            Number `json:"credit_score"`
	RiskLevel              string `json:"risk_level"`
	HasLoans               string `json:"has_loans"`
	LoanTypes              string `json:"loan_types"`
	LoanAmounts            Number `json:"loan_amounts"`
	MonthlyPayments        Number `json:"monthly_payments"`
	InterestRate           string `json:"interest_rate"`
	AccountOpenedDate      string `json:"account_opened_date"`
	LastTransactionDate    string `json:"last_transaction_date"`
	PreferredContactMethod string `json:"preferred_contact_method"`
	CommonIssues           string `json:"common_issues"`
	SecurityQuestion       string `json:"security_question"`
	SecurityAnswer         string `json:"security_answer,omitempty"`
	ResetToken             string `json:"reset_token,omitempty"`
	ResetTokenExpiry       string `json:"reset_token_expiry,omitempty"`

	Extra map[string]string `json:"-"`
}

// Role returns RoleAdmin for admin accounts and RoleCustomer otherwise.
func (c Customer) Role() string {
	if c.AccountType == RoleAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// DisplayName is "First Last".
func (c Customer) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// HasLoan reports whether the has_loans column is "yes".
func (c Customer) HasLoan() bool { return c.HasLoans == "yes" }

// BalanceValue returns the parsed balance. Stores validate numeric columns on
// load, so the zero value only appears for hand-built records.
func (c Customer) BalanceValue() float64 { f, _ := c.Balance.Float64(); return f }

// CreditScoreValue returns the parsed credit score.
func (c Customer) CreditScoreValue() int64 { n, _ := c.CreditScore.Int64(); return n }

// LoanAmountValue returns the parsed loan amount.
func (c Customer) LoanAmountValue() float64 { f, _ := c.LoanAmounts.Float64(); return f }

// MonthlyPaymentValue returns the parsed monthly payment.
func (c Customer) MonthlyPaymentValue() float64 { f, _ := c.MonthlyPayments.Float64(); return f }

// Redacted returns a copy without credential material. It is what
// non-admin endpoints and the session snapshot expose.
func (c Customer) Redacted() Customer {
	c.PasswordHash = ""
	c.SecurityAnswer = ""
	c.ResetToken = ""
	c.ResetTokenExpiry = ""
	c.Extra = nil
	return c
}

// Validate checks that the numeric columns hold numbers of the right kind.
func (c Customer) Validate() error {
	for _, f := range []struct {
		col string
		v   Number
	}{
		{"balance", c.Balance},
		{"loan_amounts", c.LoanAmounts},
		{"monthly_payments", c.MonthlyPayments},
	} {
		if !f.v.finite() {
			return fmt.Errorf("customer %q: invalid %s %q", c.Username, f.col, f.v)
		}
	}
	if _, err := c.CreditScore.Int64(); err != nil {
		return fmt.Errorf("customer %q: invalid credit_score %q", c.Username, c.CreditScore)
	}
	return nil
}

// Get returns the textual value of column col.
func (c *Customer) Get(col string) string {
	if p := c.field(col); p != nil {
		return *p
	}
	if n := c.number(col); n != nil {
		return string(*n)
	}
	return c.Extra[col]
}

// Set assigns the textual value of column col.
func (c *Customer) Set(col, val string) {
	if p := c.field(col); p != nil {
		*p = val
		return
	}
	if n := c.number(col); n != nil {
		*n = Number(val)
		return
	}
	if c.Extra == nil {
		c.Extra = make(map[string]string)
	}
	c.Extra[col] = val
}

func (c *Customer) field(col string) *string {
	switch col {
	case "customer_id":
		return &c.CustomerID
	case "username":
		return &c.Username
	case "password_hash":
		return &c.PasswordHash
	case "first_name":
		return &c.FirstName
	case "last_name":
		return &c.LastName
	case "email":
		return &c.Email
	case "account_type":
		return &c.AccountType
	case "account_status":
		return &c.AccountStatus
	case "risk_level":
		return &c.RiskLevel
	case "has_loans":
		return &c.HasLoans
	case "loan_types":
		return &c.LoanTypes
	case "interest_rate":
		return &c.InterestRate
	case "account_opened_date":
		return &c.AccountOpenedDate
	case "last_transaction_date":
		return &c.LastTransactionDate
	case "preferred_contact_method":
		return &c.PreferredContactMethod
	case "common_issues":
		return &c.CommonIssues
	case "security_question":
		return &c.SecurityQuestion
	case "security_answer":
		return &c.SecurityAnswer
	case "reset_token":
		return &c.ResetToken
	case "reset_token_expiry":
		return &c.ResetTokenExpiry
	}
	return nil
}

func (c *Customer) number(col string) *Number {
	switch col {
	case "balance":
		return &c.Balance
	case "credit_score":
		return &c.CreditScore
	case "loan_amounts":
		return &c.LoanAmounts
	case "monthly_payments":
		return &c.MonthlyPayments
	}
	return nil
}
