package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var payCmd = &cobra.Command{
	Use:   "pay <periods>",
	Short: "Pay for one or more billing periods",
	Long: `Charge the calling account for the given number of billing periods
and extend its subscription.

The charge is periods x fee, transferred from the caller's token balance
into the ledger's custody account. The caller must have approved the
transfer on the token network beforehand.

Examples:
  subledger pay 1                      # Pay for one period as the default account
  subledger pay 3 --as acct:alice      # Pay for three periods as alice`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		periods, err := parsePeriods(args[0])
		if err != nil {
			return err
		}

		caller := app.Caller()
		payment, err := app.Ledger.RecordPayment(cmd.Context(), caller, periods)
		if err != nil {
			return fmt.Errorf("payment failed: %w", err)
		}

		fmt.Printf("Payment recorded for %s\n", caller)
		fmt.Printf("  periods:  %d\n", payment.Periods())
		fmt.Printf("  charged:  %s\n", payment.NominalFee())
		fmt.Printf("  received: %s\n", payment.Received())
		fmt.Printf("  expires:  %s\n", formatMoment(payment.ExpiresAt()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(payCmd)
}
