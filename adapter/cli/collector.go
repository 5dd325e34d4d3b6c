package cli

import (
	"fmt"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
	"github.com/spf13/cobra"
)

var collectorCmd = &cobra.Command{
	Use:   "collector [account]",
	Short: "Show or set the recorded fee collector",
	Long: `Show the recorded fee collection destination, or set it when an
account is given.

Setting the collector is owner-only and moves no funds: withdrawals
always go to the withdrawing owner.

Examples:
  subledger collector                   # Show the current collector
  subledger collector acct:treasury     # Record treasury as collector`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			fmt.Printf("Fee collector: %s\n", app.Ledger.FeeCollector())
			return nil
		}

		collector := domain.Account(args[0])
		if err := app.Ledger.SetFeeCollector(cmd.Context(), app.Caller(), collector); err != nil {
			return fmt.Errorf("failed to set fee collector: %w", err)
		}
		fmt.Printf("Fee collector set to %s\n", collector)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectorCmd)
}
