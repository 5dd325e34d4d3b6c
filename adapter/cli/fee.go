package cli

import (
	"fmt"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
	"github.com/spf13/cobra"
)

var feeCmd = &cobra.Command{
	Use:   "fee [amount]",
	Short: "Show or set the per-period fee",
	Long: `Show the per-period fee, or set it when an amount is given.

Setting the fee is owner-only. The new fee applies to subsequent
payments; already-recorded payments keep the fee they were charged.

Examples:
  subledger fee                          # Show the current fee
  subledger fee 1000000000000000000      # Set the fee (base token units)`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			fee, configured := app.Ledger.Fee()
			if !configured {
				fmt.Println("Fee not configured.")
				return nil
			}
			fmt.Printf("Fee per period: %s\n", fee)
			return nil
		}

		fee, err := domain.ParseAmount(args[0])
		if err != nil {
			return fmt.Errorf("invalid fee amount: %w", err)
		}
		if err := app.Ledger.SetFee(cmd.Context(), app.Caller(), fee); err != nil {
			return fmt.Errorf("failed to set fee: %w", err)
		}
		fmt.Printf("Fee set to %s per period\n", fee)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feeCmd)
}
