// Package cli implements bankctl, the operator command line for the record
// store.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iliyamo/bank-assistant/internal/repository"
)

// StoreOpener opens the record store the commands operate on.
type StoreOpener func(ctx context.Context) (repository.CustomerStore, error)

// NewRootCommand builds the bankctl command tree. open is called lazily by
// the commands that need the record store.
func NewRootCommand(open StoreOpener) *cobra.Command {
	root := &cobra.Command{
		Use:   "bankctl",
		Short: "Operator tooling for the bank assistant",
		Long: `bankctl inspects and maintains the customer record store used by the
bank assistant server. The store is selected by the same environment
variables the server reads (RECORD_STORE, DATA_FILE, DB_*).`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newUsersCommand(open),
		newHashPasswordCommand(),
		newAmortizeCommand(),
		newResetTokenCommand(open),
	)
	return root
}
