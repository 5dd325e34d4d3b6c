package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw the ledger's token balance",
	Long: `Transfer the ledger's entire current token balance to the calling
owner. A zero balance is a successful no-op.

Owner-only.

Examples:
  subledger withdraw
  subledger withdraw --as acct:owner`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		caller := app.Caller()
		amount, err := app.Ledger.Withdraw(cmd.Context(), caller)
		if err != nil {
			return fmt.Errorf("withdrawal failed: %w", err)
		}
		if amount.IsZero() {
			fmt.Println("Nothing to withdraw.")
			return nil
		}
		fmt.Printf("Withdrew %s to %s\n", amount, caller)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(withdrawCmd)
}
