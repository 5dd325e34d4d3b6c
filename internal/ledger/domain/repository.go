package domain

import "context"

// Repository persists the ledger and its payment history.
//
// AppendPayment must write the payment row and the updated ledger
// counters in one transaction: either both land or neither does.
type Repository interface {
	// Initialize persists a newly created ledger. It fails if a ledger
	// already exists; the ledger is created once and lives forever.
	Initialize(ctx context.Context, ledger *Ledger) error

	// Load returns the persisted ledger with its full payment history,
	// or nil if none has been initialized yet.
	Load(ctx context.Context) (*Ledger, error)

	// SaveConfig persists the mutable configuration fields (fee, token,
	// collector) and counters.
	SaveConfig(ctx context.Context, ledger *Ledger) error

	// AppendPayment persists a new payment record together with the
	// ledger's updated counters, atomically.
	AppendPayment(ctx context.Context, ledger *Ledger, payment *Payment) error
}
