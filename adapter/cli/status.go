package cli

import (
	"fmt"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [account]",
	Short: "Show subscription status for an account",
	Long: `Show whether an account's subscription is currently active, along
with its last payment and expiry.

Without an argument the calling account is checked.

Examples:
  subledger status                  # Status of the default account
  subledger status acct:alice       # Status of alice`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		user := app.Caller()
		if len(args) == 1 {
			user = domain.Account(args[0])
		}

		active := app.Ledger.IsSubscriptionActive(cmd.Context(), user)
		state := "expired"
		if active {
			state = "active"
		}

		fmt.Printf("Account %s: %s\n", user, state)
		if payment, ok := app.Ledger.LatestPayment(user); ok {
			fmt.Printf("  last payment: %s (%d periods, %s received)\n",
				formatMoment(payment.PaidAt()), payment.Periods(), payment.Received())
			fmt.Printf("  paid through: %s\n", formatMoment(payment.ExpiresAt()))
			fmt.Printf("  total paid:   %s\n", app.Ledger.TotalPaidBy(user))
		} else {
			fmt.Println("  no payment history")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
