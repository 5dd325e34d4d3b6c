package domain

import (
	"time"

	"github.com/google/uuid"
)

// PeriodLength is one billing period: a fixed 30-day month.
const PeriodLength = 30 * 24 * time.Hour

// Account identifies a party on the token network: a payer, the ledger's
// custody account, or the fee collector.
type Account string

// IsZero reports whether the account is unset.
func (a Account) IsZero() bool { return a == "" }

// Payment is one completed payment event. Records are immutable once
// created; the ledger only appends.
type Payment struct {
	id         uuid.UUID
	payer      Account
	periods    int
	nominalFee Amount
	received   Amount
	paidAt     time.Time
	expiresAt  time.Time
}

func newPayment(payer Account, periods int, nominalFee, received Amount, paidAt time.Time) *Payment {
	return &Payment{
		id:         uuid.New(),
		payer:      payer,
		periods:    periods,
		nominalFee: nominalFee,
		received:   received,
		paidAt:     paidAt,
		expiresAt:  paidAt.Add(time.Duration(periods) * PeriodLength),
	}
}

// RehydratePayment recreates a payment record from persisted state.
func RehydratePayment(id uuid.UUID, payer Account, periods int, nominalFee, received Amount, paidAt, expiresAt time.Time) *Payment {
	return &Payment{
		id:         id,
		payer:      payer,
		periods:    periods,
		nominalFee: nominalFee,
		received:   received,
		paidAt:     paidAt,
		expiresAt:  expiresAt,
	}
}

func (p *Payment) ID() uuid.UUID      { return p.id }
func (p *Payment) Payer() Account     { return p.payer }
func (p *Payment) Periods() int       { return p.periods }
func (p *Payment) NominalFee() Amount { return p.nominalFee }

// Received is the observed balance delta for this payment, which may be
// less than the nominal fee for tokens that deduct a transfer fee.
func (p *Payment) Received() Amount { return p.received }

func (p *Payment) PaidAt() time.Time    { return p.paidAt }
func (p *Payment) ExpiresAt() time.Time { return p.expiresAt }

// ActiveAt reports whether this payment still covers the given moment.
// Expiry is inclusive-expired: the subscription lapses exactly at
// ExpiresAt.
func (p *Payment) ActiveAt(now time.Time) bool {
	return now.Before(p.expiresAt)
}
