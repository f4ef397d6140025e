package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/bank-assistant/internal/auth"
)

func newResetTokenCommand(open StoreOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-token",
		Short: "Password reset token commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "issue <username>",
		Short: "Issue a password reset token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			token, err := auth.NewService(store, auth.Options{}).IssueResetToken(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("issue reset token for %q: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	})
	return cmd
}
