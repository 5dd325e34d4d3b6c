package cli

import (
	"fmt"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
	"github.com/spf13/cobra"
)

var historyAccount string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded payments",
	Long: `List all recorded payments in the order they were booked.

Examples:
  subledger history                          # Every payment
  subledger history --account acct:alice     # Only alice's payments`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		payments := app.Ledger.PaymentHistory()
		filter := domain.Account(historyAccount)

		shown := 0
		for _, p := range payments {
			if !filter.IsZero() && p.Payer() != filter {
				continue
			}
			fmt.Printf("%s  %-20s  %2d periods  charged %-12s received %-12s expires %s\n",
				formatMoment(p.PaidAt()), p.Payer(), p.Periods(),
				p.NominalFee(), p.Received(), formatMoment(p.ExpiresAt()))
			shown++
		}

		if shown == 0 {
			fmt.Println("No payments recorded.")
			return nil
		}
		fmt.Printf("\n%d payment(s), %s collected in total\n", shown, app.Ledger.TotalCollected())
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyAccount, "account", "", "only show payments by this account")
	rootCmd.AddCommand(historyCmd)
}
