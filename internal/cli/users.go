package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsersCommand(open StoreOpener) *cobra.Command {
	var (
		limit         int
		showPasswords bool
	)
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List login users from the record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			list, err := store.Scan(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total customers: %d\n\n", len(list))
			shown := list
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}
			for i, c := range shown {
				fmt.Fprintf(out, "%d. %s\n", i+1, c.DisplayName())
				fmt.Fprintf(out, "   Username: %s\n", c.Username)
				if showPasswords {
					fmt.Fprintf(out, "   Password: %s\n", c.PasswordHash)
				}
				fmt.Fprintf(out, "   Role: %s\n", c.Role())
				fmt.Fprintf(out, "   Account: %s\n", c.AccountType)
				fmt.Fprintf(out, "   Balance: $%.2f\n\n", c.BalanceValue())
			}
			if rest := len(list) - len(shown); rest > 0 {
				fmt.Fprintf(out, "... and %d more customers\n", rest)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of users to print (0 for all)")
	cmd.Flags().BoolVar(&showPasswords, "show-passwords", false, "print the stored password column (demo data only)")
	return cmd
}
