package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/bank-assistant/internal/utils"
)

func newHashPasswordCommand() *cobra.Command {
	var (
		scheme string
		cost   int
	)
	cmd := &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the stored form of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := utils.HashPassword(args[0], scheme, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().StringVar(&scheme, "scheme", utils.SchemeSHA256, "hash scheme: sha256 or bcrypt")
	cmd.Flags().IntVar(&cost, "cost", 10, "bcrypt cost")
	return cmd
}
