// Package domain contains the subscription ledger aggregate: per-payer
// payment periods funded by fungible-token transfers, fee configuration,
// and the active-subscription guard composed by access-gated callers.
package domain

import (
	"errors"
	"time"

	sharedDomain "github.com/felixgeelhaar/subledger/internal/shared/domain"
)

var ErrEmptyOwner = errors.New("ledger owner cannot be empty")

// Ledger is the subscription billing ledger. It is an explicit state
// struct: all operations run through methods on one instance, there is no
// process-wide singleton. The aggregate itself is not safe for concurrent
// use; the application service serializes access.
type Ledger struct {
	sharedDomain.BaseAggregateRoot

	owner        Account
	feeCollector Account

	// token and fee start unconfigured; payments are rejected until the
	// owner sets both.
	token         Account
	fee           Amount
	feeConfigured bool

	totalCollected Amount
	payments       []*Payment
	latestByPayer  map[Account]*Payment
	totalPaidBy    map[Account]Amount
}

// NewLedger creates a ledger owned by the given account. The owner starts
// as the fee collector; fee and token are left unset and must be
// configured before payments are accepted.
func NewLedger(owner Account) (*Ledger, error) {
	if owner.IsZero() {
		return nil, ErrEmptyOwner
	}
	return &Ledger{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		owner:             owner,
		feeCollector:      owner,
		totalCollected:    ZeroAmount(),
		payments:          make([]*Payment, 0),
		latestByPayer:     make(map[Account]*Payment),
		totalPaidBy:       make(map[Account]Amount),
	}, nil
}

// RehydrateLedger recreates a ledger from persisted state. Payments must
// be given in insertion order; per-payer indexes are rebuilt from them.
func RehydrateLedger(
	entity sharedDomain.BaseEntity,
	owner, feeCollector, token Account,
	fee Amount,
	feeConfigured bool,
	totalCollected Amount,
	payments []*Payment,
) *Ledger {
	l := &Ledger{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(entity),
		owner:             owner,
		feeCollector:      feeCollector,
		token:             token,
		fee:               fee,
		feeConfigured:     feeConfigured,
		totalCollected:    totalCollected,
		payments:          make([]*Payment, 0, len(payments)),
		latestByPayer:     make(map[Account]*Payment),
		totalPaidBy:       make(map[Account]Amount),
	}
	for _, p := range payments {
		l.payments = append(l.payments, p)
		l.latestByPayer[p.payer] = p
		l.totalPaidBy[p.payer] = l.totalPaidBy[p.payer].Add(p.received)
	}
	return l
}

// Getters
func (l *Ledger) Owner() Account         { return l.owner }
func (l *Ledger) FeeCollector() Account  { return l.feeCollector }
func (l *Ledger) Token() Account         { return l.token }
func (l *Ledger) TotalCollected() Amount { return l.totalCollected }

// Fee returns the configured fee per period and whether it has been set.
func (l *Ledger) Fee() (Amount, bool) { return l.fee, l.feeConfigured }

// SetFee replaces the per-period fee. No bounds checking: zero and
// arbitrarily large values are accepted. The new fee applies to
// subsequent payments only; historical records keep the fee captured at
// payment time.
func (l *Ledger) SetFee(newFee Amount) {
	l.fee = newFee
	l.feeConfigured = true
	l.Touch()
	l.AddDomainEvent(NewFeeChanged(l, newFee))
}

// SetToken replaces the accepted payment token. The identifier is not
// validated; a misconfigured token surfaces later as transfer failures.
// totalCollected is not reset across token changes and becomes a unitless
// counter spanning every token ever configured.
func (l *Ledger) SetToken(token Account) {
	l.token = token
	l.Touch()
	l.AddDomainEvent(NewTokenChanged(l, token))
}

// SetFeeCollector replaces the recorded collection destination. It does
// not move funds; withdrawals go to the withdrawing owner.
func (l *Ledger) SetFeeCollector(collector Account) {
	l.feeCollector = collector
	l.Touch()
	l.AddDomainEvent(NewFeeCollectorChanged(l, collector))
}

// CanAcceptPayment checks the preconditions for a payment of the given
// period count without mutating anything. It is called before the token
// transfer so misconfiguration fails fast.
func (l *Ledger) CanAcceptPayment(periods int) error {
	if periods < 1 {
		return ErrInvalidPeriodCount
	}
	if l.token.IsZero() {
		return ErrTokenNotConfigured
	}
	if !l.feeConfigured {
		return ErrFeeNotConfigured
	}
	return nil
}

// NominalCharge is the intended price for the given period count:
// periods × fee. The observed transfer delta may be lower for
// fee-on-transfer tokens.
func (l *Ledger) NominalCharge(periods int) Amount {
	return l.fee.MulInt(int64(periods))
}

// ApplyPayment records a completed payment: appends the record, updates
// the payer's latest payment and cumulative total, and increases
// totalCollected by the observed delta (received), never the nominal
// charge. The PaymentRecorded event carries the nominal charge, which
// reports the intended price even when it diverges from received.
func (l *Ledger) ApplyPayment(payer Account, periods int, received Amount, now time.Time) (*Payment, error) {
	if err := l.CanAcceptPayment(periods); err != nil {
		return nil, err
	}

	nominal := l.NominalCharge(periods)
	payment := newPayment(payer, periods, nominal, received, now)

	l.payments = append(l.payments, payment)
	l.latestByPayer[payer] = payment
	l.totalPaidBy[payer] = l.totalPaidBy[payer].Add(received)
	l.totalCollected = l.totalCollected.Add(received)
	l.Touch()

	l.AddDomainEvent(NewPaymentRecorded(l, payment))

	return payment, nil
}

// NoteWithdrawal records a withdrawal event. Withdrawals do not change
// totalCollected, which tracks lifetime receipts, not current custody.
func (l *Ledger) NoteWithdrawal(to Account, amount Amount) {
	l.Touch()
	l.AddDomainEvent(NewFundsWithdrawn(l, to, amount))
}

// IsActiveAt reports whether the user's subscription covers the given
// moment. Users with no payment history are treated as expired (the
// guard fails closed), and a subscription lapses exactly at its
// expiry: IsActiveAt(u, expiresAt) is false.
func (l *Ledger) IsActiveAt(user Account, now time.Time) bool {
	latest, ok := l.latestByPayer[user]
	if !ok {
		return false
	}
	return latest.ActiveAt(now)
}

// LatestPayment returns the user's most recent payment record.
func (l *Ledger) LatestPayment(user Account) (*Payment, bool) {
	p, ok := l.latestByPayer[user]
	return p, ok
}

// LastPaymentMoment returns when the user last paid. The zero time is
// returned for users with no payment history.
func (l *Ledger) LastPaymentMoment(user Account) time.Time {
	if p, ok := l.latestByPayer[user]; ok {
		return p.PaidAt()
	}
	return time.Time{}
}

// TotalPaidBy returns the cumulative tokens actually received from the
// user across all payments.
func (l *Ledger) TotalPaidBy(user Account) Amount {
	return l.totalPaidBy[user]
}

// Payments returns the payment history in insertion order. The returned
// slice is a copy; records themselves are immutable.
func (l *Ledger) Payments() []*Payment {
	out := make([]*Payment, len(l.payments))
	copy(out, l.payments)
	return out
}

// PaymentCount returns the number of recorded payments.
func (l *Ledger) PaymentCount() int { return len(l.payments) }
