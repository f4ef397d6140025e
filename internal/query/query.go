// Package query answers the read-only questions the API asks of the record
// store: aggregate statistics, search and filters. Every call works on a
// fresh snapshot of the store.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/model"
	"github.com/iliyamo/bank-assistant/internal/repository"
)

// SearchLimit caps the number of search results.
const SearchLimit = 10

// ErrNoData is returned by aggregate queries over an empty store.
var ErrNoData = apperr.New(apperr.ErrNotFound, "No customer data available")

// Filter fields accepted by FilterBy.
const (
	FieldLoanType  = "loan_types"
	FieldRiskLevel = "risk_level"
)

// Bucket is one entry of a Distribution.
type Bucket struct {
	Key   string
	Count int
}

// Distribution counts values in first-occurrence order and encodes as a JSON
// object with keys in that order.
type Distribution []Bucket

func (d Distribution) add(key string) Distribution {
	for i := range d {
		if d[i].Key == key {
			d[i].Count++
			return d
		}
	}
	return append(d, Bucket{Key: key, Count: 1})
}

// Get returns the count of key.
func (d Distribution) Get(key string) int {
	for _, b := range d {
		if b.Key == key {
			return b.Count
		}
	}
	return 0
}

func (d Distribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(b.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(b.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Stats summarises the whole customer base.
type Stats struct {
	TotalCustomers        int          `json:"total_customers"`
	CustomersWithLoans    int          `json:"customers_with_loans"`
	CustomersWithoutLoans int          `json:"customers_without_loans"`
	LoanPercentage        float64      `json:"loan_percentage"`
	LoanTypes             Distribution `json:"loan_types"`
	AccountTypes          Distribution `json:"account_types"`
	RiskLevels            Distribution `json:"risk_levels"`
	AverageCreditScore    int64        `json:"average_credit_score"`
	AverageBalance        float64      `json:"average_balance"`
	AverageLoanAmount     float64      `json:"average_loan_amount"`
}

// LoanStats is the loan section of AdminStats.
type LoanStats struct {
	CustomersWithLoans   int          `json:"customers_with_loans"`
	TotalLoanAmount      float64      `json:"total_loan_amount"`
	TotalMonthlyPayments float64      `json:"total_monthly_payments"`
	LoanTypes            Distribution `json:"loan_types"`
}

// CreditScoreStats is the credit score section of AdminStats.
type CreditScoreStats struct {
	Average float64 `json:"average"`
	Min     int64   `json:"min"`
	Max     int64   `json:"max"`
}

// BalanceStats is the balance section of AdminStats.
type BalanceStats struct {
	TotalBalance   float64 `json:"total_balance"`
	AverageBalance float64 `json:"average_balance"`
	MinBalance     float64 `json:"min_balance"`
	MaxBalance     float64 `json:"max_balance"`
}

// AdminStats is the operator view of the customer base.
type AdminStats struct {
	TotalCustomers   int              `json:"total_customers"`
	ActiveAccounts   int              `json:"active_accounts"`
	FrozenAccounts   int              `json:"frozen_accounts"`
	AccountTypes     Distribution     `json:"account_types"`
	RiskLevels       Distribution     `json:"risk_levels"`
	LoanStats        LoanStats        `json:"loan_stats"`
	CreditScoreStats CreditScoreStats `json:"credit_score_stats"`
	BalanceStats     BalanceStats     `json:"balance_stats"`
}

// Service runs queries against a record store.
type Service struct {
	store repository.CustomerStore
	rnd   func(n int) int
}

func NewService(store repository.CustomerStore) *Service {
	return &Service{store: store, rnd: rand.IntN}
}

// Stats computes the customer base summary.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	list, err := s.store.Scan(ctx)
	if err != nil {
		return Stats{}, err
	}
	if len(list) == 0 {
		return Stats{}, ErrNoData
	}

	st := Stats{TotalCustomers: len(list), LoanTypes: Distribution{}, AccountTypes: Distribution{}, RiskLevels: Distribution{}}
	var credit int64
	var balance, loans float64
	for _, c := range list {
		if c.HasLoan() {
			st.CustomersWithLoans++
			loans += c.LoanAmountValue()
			if c.LoanTypes != "none" {
				st.LoanTypes = st.LoanTypes.add(c.LoanTypes)
			}
		}
		st.AccountTypes = st.AccountTypes.add(c.AccountType)
		st.RiskLevels = st.RiskLevels.add(c.RiskLevel)
		credit += c.CreditScoreValue()
		balance += c.BalanceValue()
	}
	n := float64(len(list))
	st.CustomersWithoutLoans = st.TotalCustomers - st.CustomersWithLoans
	st.LoanPercentage = round(float64(st.CustomersWithLoans)/n*100, 1)
	st.AverageCreditScore = int64(math.Round(float64(credit) / n))
	st.AverageBalance = round(balance/n, 2)
	if st.CustomersWithLoans > 0 {
		st.AverageLoanAmount = round(loans/float64(st.CustomersWithLoans), 2)
	}
	return st, nil
}

// AdminStats computes the operator summary.
func (s *Service) AdminStats(ctx context.Context) (AdminStats, error) {
	list, err := s.store.Scan(ctx)
	if err != nil {
		return AdminStats{}, err
	}
	st := AdminStats{
		TotalCustomers: len(list),
		AccountTypes:   Distribution{},
		RiskLevels:     Distribution{},
		LoanStats:      LoanStats{LoanTypes: Distribution{}},
	}
	if len(list) == 0 {
		return st, nil
	}

	var credit int64
	st.CreditScoreStats.Min = list[0].CreditScoreValue()
	st.CreditScoreStats.Max = st.CreditScoreStats.Min
	st.BalanceStats.MinBalance = list[0].BalanceValue()
	st.BalanceStats.MaxBalance = st.BalanceStats.MinBalance
	for _, c := range list {
		switch c.AccountStatus {
		case "active":
			st.ActiveAccounts++
		case "frozen":
			st.FrozenAccounts++
		}
		st.AccountTypes = st.AccountTypes.add(c.AccountType)
		st.RiskLevels = st.RiskLevels.add(c.RiskLevel)
		if c.HasLoan() {
			st.LoanStats.CustomersWithLoans++
			st.LoanStats.TotalLoanAmount += c.LoanAmountValue()
			st.LoanStats.TotalMonthlyPayments += c.MonthlyPaymentValue()
			if c.LoanTypes != "none" {
				st.LoanStats.LoanTypes = st.LoanStats.LoanTypes.add(c.LoanTypes)
			}
		}
		score := c.CreditScoreValue()
		credit += score
		st.CreditScoreStats.Min = min(st.CreditScoreStats.Min, score)
		st.CreditScoreStats.Max = max(st.CreditScoreStats.Max, score)

		b := c.BalanceValue()
		st.BalanceStats.TotalBalance += b
		st.BalanceStats.MinBalance = min(st.BalanceStats.MinBalance, b)
		st.BalanceStats.MaxBalance = max(st.BalanceStats.MaxBalance, b)
	}
	n := float64(len(list))
	st.CreditScoreStats.Average = round(float64(credit)/n, 2)
	st.BalanceStats.AverageBalance = st.BalanceStats.TotalBalance / n
	return st, nil
}

// Search returns up to SearchLimit records, in store order, where q is a
// case-insensitive substring of a name, email, account type, loan type,
// common issue or risk level.
func (s *Service) Search(ctx context.Context, q string) ([]model.Customer, error) {
	list, err := s.store.Scan(ctx)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(q)
	out := []model.Customer{}
	for _, c := range list {
		fields := []string{c.FirstName, c.LastName, c.Email, c.AccountType, c.LoanTypes, c.CommonIssues, c.RiskLevel}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, c)
				break
			}
		}
		if len(out) == SearchLimit {
			break
		}
	}
	return out, nil
}

// FilterBy returns every record whose field equals value exactly. field is
// FieldLoanType or FieldRiskLevel.
func (s *Service) FilterBy(ctx context.Context, field, value string) ([]model.Customer, error) {
	if field != FieldLoanType && field != FieldRiskLevel {
		return nil, apperr.Newf(apperr.ErrValidation, "cannot filter by %q", field)
	}
	list, err := s.store.Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Customer{}
	for i := range list {
		if list[i].Get(field) == value {
			out = append(out, list[i])
		}
	}
	return out, nil
}

// Random returns a uniformly chosen record.
func (s *Service) Random(ctx context.Context) (model.Customer, error) {
	list, err := s.store.Scan(ctx)
	if err != nil {
		return model.Customer{}, err
	}
	if len(list) == 0 {
		return model.Customer{}, ErrNoData
	}
	return list[s.rnd(len(list))], nil
}

// Usernames lists every login name in store order.
func (s *Service) Usernames(ctx context.Context) ([]string, error) {
	list, err := s.store.Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Username)
	}
	return out, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
