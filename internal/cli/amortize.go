package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/bank-assistant/internal/loan"
)

func newAmortizeCommand() *cobra.Command {
	var (
		principal, rate float64
		years           int
	)
	cmd := &cobra.Command{
		Use:   "amortize",
		Short: "Compute the monthly payment of a fixed-rate loan",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loan.Amortize(principal, rate, years)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Monthly payment: %.2f\n", s.MonthlyPayment)
			fmt.Fprintf(out, "Total payment:   %.2f\n", s.TotalPayment)
			fmt.Fprintf(out, "Total interest:  %.2f\n", s.TotalInterest)
			return nil
		},
	}
	cmd.Flags().Float64Var(&principal, "principal", 0, "loan principal")
	cmd.Flags().Float64Var(&rate, "rate", 0, "annual interest rate in percent")
	cmd.Flags().IntVar(&years, "years", 0, "term in years")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("years")
	return cmd
}
