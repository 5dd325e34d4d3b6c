package cli

import (
	"fmt"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token [account]",
	Short: "Show or set the accepted payment token",
	Long: `Show the token payments are accepted in, or set it when an
identifier is given.

Setting the token is owner-only. The identifier is not validated; a
wrong token shows up later as failed transfers.

Examples:
  subledger token                    # Show the current token
  subledger token token:usdx         # Accept payments in usdx`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireApp()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			token := app.Ledger.Token()
			if token.IsZero() {
				fmt.Println("Token not configured.")
				return nil
			}
			fmt.Printf("Payment token: %s\n", token)
			return nil
		}

		token := domain.Account(args[0])
		if err := app.Ledger.SetToken(cmd.Context(), app.Caller(), token); err != nil {
			return fmt.Errorf("failed to set token: %w", err)
		}
		fmt.Printf("Payment token set to %s\n", token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
