package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the ledger's custody balance and lifetime receipts",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		balance, err := app.Ledger.CurrentTokenBalance(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read custody balance: %w", err)
		}

		fmt.Printf("Custody balance: %s\n", balance)
		fmt.Printf("Total collected: %s\n", app.Ledger.TotalCollected())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
