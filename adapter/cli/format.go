package cli

import (
	"fmt"
	"strconv"
	"time"
)

// parsePeriods parses a billing-period count argument. At least one
// period must be purchased per payment.
func parsePeriods(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid period count %q", arg)
	}
	if n < 1 {
		return 0, fmt.Errorf("period count must be at least 1, got %d", n)
	}
	return n, nil
}

// formatMoment renders a timestamp for display. The zero time means the
// event never happened.
func formatMoment(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// requireApp returns the global app or an error when the CLI runs
// without an initialized container.
func requireApp() (*App, error) {
	a := GetApp()
	if a == nil || a.Ledger == nil {
		return nil, fmt.Errorf("ledger not initialized, check configuration (SUBLEDGER_OWNER, storage)")
	}
	return a, nil
}
