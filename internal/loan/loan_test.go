package loan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bank-assistant/internal/apperr"
)

func TestAmortize(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		rate      float64
		years     int
		monthly   float64
		total     float64
		interest  float64
	}{
		{"thirty year mortgage", 100000, 6, 30, 599.55, 215838.19, 115838.19},
		{"zero rate", 1200, 0, 1, 100.00, 1200.00, 0},
		{"short auto loan", 15000, 4.5, 5, 279.65, 16778.72, 1778.72},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Amortize(tt.principal, tt.rate, tt.years)
			require.NoError(t, err)
			assert.Equal(t, tt.monthly, s.MonthlyPayment)
			assert.Equal(t, tt.total, s.TotalPayment)
			assert.Equal(t, tt.interest, s.TotalInterest)
			assert.Equal(t, tt.principal, s.Principal)
		})
	}
}

func TestAmortizeRejectsBadInput(t *testing.T) {
	for _, in := range []struct {
		p, r float64
		y    int
	}{
		{0, 5, 10}, {-1, 5, 10}, {1000, -0.1, 10}, {1000, 5, 0}, {1000, 5, -3},
		{1000, 5, MaxYears + 1}, {1000, 0, 1_000_000},
		{100000, 100000, 30}, {math.MaxFloat64, 5, 30}, {math.Inf(1), 5, 30}, {1000, math.NaN(), 30},
	} {
		_, err := Amortize(in.p, in.r, in.y)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%+v", in)
	}
}

func TestAmortizeLongestTerm(t *testing.T) {
	s, err := Amortize(1200, 0, MaxYears)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.MonthlyPayment)
}
