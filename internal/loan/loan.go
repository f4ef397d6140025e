// Package loan implements fixed-rate amortization arithmetic.
package loan

import (
	"math"

	"github.com/iliyamo/bank-assistant/internal/apperr"
)

// MaxYears is the longest accepted loan term.
const MaxYears = 100

// Schedule is the result of Amortize. Money values are rounded to cents.
type Schedule struct {
	Principal      float64 `json:"principal"`
	AnnualRate     float64 `json:"annual_rate"`
	Years          int     `json:"years"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalPayment   float64 `json:"total_payment"`
	TotalInterest  float64 `json:"total_interest"`
}

// Amortize computes the fixed monthly payment of a loan of principal at an
// annual percentage rate over years. Totals are derived from the unrounded
// monthly payment.
func Amortize(principal, rate float64, years int) (Schedule, error) {
	switch {
	case math.IsNaN(principal) || math.IsInf(principal, 0) || principal <= 0:
		return Schedule{}, apperr.New(apperr.ErrValidation, "Principal must be greater than zero")
	case math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0:
		return Schedule{}, apperr.New(apperr.ErrValidation, "Rate cannot be negative")
	case years <= 0:
		return Schedule{}, apperr.New(apperr.ErrValidation, "Years must be greater than zero")
	case years > MaxYears:
		return Schedule{}, apperr.Newf(apperr.ErrValidation, "Years cannot exceed %d", MaxYears)
	}

	r := rate / 12 / 100
	n := float64(years * 12)
	var monthly float64
	if r == 0 {
		monthly = principal / n
	} else {
		f := math.Pow(1+r, n)
		monthly = principal * (r * f) / (f - 1)
	}
	total := monthly * n
	s := Schedule{
		Principal:      principal,
		AnnualRate:     rate,
		Years:          years,
		MonthlyPayment: cents(monthly),
		TotalPayment:   cents(total),
		TotalInterest:  cents(total - principal),
	}
	if !finite(s.MonthlyPayment) || !finite(s.TotalPayment) || !finite(s.TotalInterest) {
		return Schedule{}, apperr.New(apperr.ErrValidation, "Loan terms are out of range")
	}
	return s, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func cents(v float64) float64 { return math.Round(v*100) / 100 }
