package domain

import (
	"testing"
	"time"

	sharedDomain "github.com/felixgeelhaar/subledger/internal/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner  = Account("owner")
	tokenT = Account("token-T")
	payerA = Account("alice")
	payerB = Account("bob")
)

func newConfiguredLedger(t *testing.T, fee int64) *Ledger {
	t.Helper()
	l, err := NewLedger(owner)
	require.NoError(t, err)
	l.SetFee(NewAmount(fee))
	l.SetToken(tokenT)
	l.ClearDomainEvents()
	return l
}

func TestNewLedger(t *testing.T) {
	l, err := NewLedger(owner)
	require.NoError(t, err)

	assert.Equal(t, owner, l.Owner())
	assert.Equal(t, owner, l.FeeCollector(), "owner starts as fee collector")
	assert.True(t, l.Token().IsZero())
	_, configured := l.Fee()
	assert.False(t, configured)
	assert.True(t, l.TotalCollected().IsZero())
	assert.Zero(t, l.PaymentCount())
}

func TestNewLedger_EmptyOwner(t *testing.T) {
	_, err := NewLedger("")
	assert.ErrorIs(t, err, ErrEmptyOwner)
}

func TestCanAcceptPayment_Preconditions(t *testing.T) {
	l, err := NewLedger(owner)
	require.NoError(t, err)

	assert.ErrorIs(t, l.CanAcceptPayment(0), ErrInvalidPeriodCount)
	assert.ErrorIs(t, l.CanAcceptPayment(-3), ErrInvalidPeriodCount)
	assert.ErrorIs(t, l.CanAcceptPayment(1), ErrTokenNotConfigured)

	l.SetToken(tokenT)
	assert.ErrorIs(t, l.CanAcceptPayment(1), ErrFeeNotConfigured)

	l.SetFee(NewAmount(10))
	assert.NoError(t, l.CanAcceptPayment(1))
}

func TestCanAcceptPayment_ZeroFeeAllowedOnceConfigured(t *testing.T) {
	l, err := NewLedger(owner)
	require.NoError(t, err)
	l.SetToken(tokenT)
	l.SetFee(ZeroAmount())

	assert.NoError(t, l.CanAcceptPayment(1))
	assert.True(t, l.NominalCharge(5).IsZero())
}

func TestApplyPayment_ExtendsByThirtyDayPeriods(t *testing.T) {
	l := newConfiguredLedger(t, 10)
	paidAt := time.Unix(1000, 0).UTC()

	p, err := l.ApplyPayment(payerA, 3, NewAmount(30), paidAt)
	require.NoError(t, err)

	assert.Equal(t, payerA, p.Payer())
	assert.Equal(t, paidAt, p.PaidAt())
	assert.Equal(t, paidAt.Add(3*PeriodLength), p.ExpiresAt())
	assert.Equal(t, int64(3*30*24*3600), p.ExpiresAt().Unix()-p.PaidAt().Unix())
	assert.True(t, p.NominalFee().Equal(NewAmount(30)))
}

func TestApplyPayment_CountersUseObservedDelta(t *testing.T) {
	l := newConfiguredLedger(t, 100)
	now := time.Now().UTC()

	// Token delivered only 95 of the nominal 100.
	p, err := l.ApplyPayment(payerA, 1, NewAmount(95), now)
	require.NoError(t, err)

	assert.True(t, p.NominalFee().Equal(NewAmount(100)), "record keeps the intended price")
	assert.True(t, p.Received().Equal(NewAmount(95)))
	assert.True(t, l.TotalCollected().Equal(NewAmount(95)))
	assert.True(t, l.TotalPaidBy(payerA).Equal(NewAmount(95)))
}

func TestApplyPayment_AppendsInCallOrder(t *testing.T) {
	l := newConfiguredLedger(t, 10)
	base := time.Unix(1000, 0).UTC()

	first, err := l.ApplyPayment(payerA, 1, NewAmount(10), base)
	require.NoError(t, err)
	second, err := l.ApplyPayment(payerB, 2, NewAmount(20), base.Add(time.Hour))
	require.NoError(t, err)
	third, err := l.ApplyPayment(payerA, 1, NewAmount(10), base.Add(2*time.Hour))
	require.NoError(t, err)

	history := l.Payments()
	require.Len(t, history, 3)
	assert.Equal(t, first.ID(), history[0].ID())
	assert.Equal(t, second.ID(), history[1].ID())
	assert.Equal(t, third.ID(), history[2].ID())

	latest, ok := l.LatestPayment(payerA)
	require.True(t, ok)
	assert.Equal(t, third.ID(), latest.ID(), "latest payment overwritten per payer")
	assert.True(t, l.TotalPaidBy(payerA).Equal(NewAmount(20)))
	assert.True(t, l.TotalCollected().Equal(NewAmount(40)))
}

func TestApplyPayment_EmitsNominalFeeEvent(t *testing.T) {
	l := newConfiguredLedger(t, 10)

	_, err := l.ApplyPayment(payerA, 3, NewAmount(28), time.Now().UTC())
	require.NoError(t, err)

	events := l.DomainEvents()
	require.Len(t, events, 1)
	recorded, ok := events[0].(*PaymentRecorded)
	require.True(t, ok)
	assert.Equal(t, payerA, recorded.Payer)
	assert.True(t, recorded.Fee.Equal(NewAmount(30)), "event reports nominal charge, not delta")
	assert.Equal(t, 3, recorded.Periods)
	assert.Equal(t, "ledger.payment.recorded", recorded.RoutingKey())
}

func TestApplyPayment_RejectsInvalidPeriods(t *testing.T) {
	l := newConfiguredLedger(t, 10)

	_, err := l.ApplyPayment(payerA, 0, ZeroAmount(), time.Now().UTC())
	assert.ErrorIs(t, err, ErrInvalidPeriodCount)
	assert.Zero(t, l.PaymentCount())
	assert.Empty(t, l.DomainEvents())
}

func TestIsActiveAt(t *testing.T) {
	l := newConfiguredLedger(t, 10)
	paidAt := time.Unix(1000, 0).UTC()

	assert.False(t, l.IsActiveAt(payerA, paidAt), "unknown user fails closed")

	_, err := l.ApplyPayment(payerA, 2, NewAmount(20), paidAt)
	require.NoError(t, err)
	expiresAt := paidAt.Add(2 * PeriodLength)

	assert.True(t, l.IsActiveAt(payerA, paidAt))
	assert.True(t, l.IsActiveAt(payerA, expiresAt.Add(-time.Second)))
	assert.False(t, l.IsActiveAt(payerA, expiresAt), "expiry is inclusive-expired")
	assert.False(t, l.IsActiveAt(payerA, expiresAt.Add(time.Second)))
	assert.False(t, l.IsActiveAt(payerB, paidAt), "other users unaffected")
}

func TestIsActiveAt_RenewalAfterExpiry(t *testing.T) {
	l := newConfiguredLedger(t, 10)
	paidAt := time.Unix(1000, 0).UTC()

	_, err := l.ApplyPayment(payerA, 1, NewAmount(10), paidAt)
	require.NoError(t, err)
	lapsed := paidAt.Add(PeriodLength + time.Hour)
	assert.False(t, l.IsActiveAt(payerA, lapsed))

	_, err = l.ApplyPayment(payerA, 1, NewAmount(10), lapsed)
	require.NoError(t, err)
	assert.True(t, l.IsActiveAt(payerA, lapsed))
	assert.False(t, l.IsActiveAt(payerA, lapsed.Add(PeriodLength)))
}

func TestLastPaymentMoment(t *testing.T) {
	l := newConfiguredLedger(t, 10)
	assert.True(t, l.LastPaymentMoment(payerA).IsZero())

	paidAt := time.Unix(5000, 0).UTC()
	_, err := l.ApplyPayment(payerA, 1, NewAmount(10), paidAt)
	require.NoError(t, err)

	assert.Equal(t, paidAt, l.LastPaymentMoment(payerA))
}

func TestSetFee_AffectsSubsequentPaymentsOnly(t *testing.T) {
	l := newConfiguredLedger(t, 10)
	now := time.Now().UTC()

	before, err := l.ApplyPayment(payerA, 1, NewAmount(10), now)
	require.NoError(t, err)

	l.SetFee(NewAmount(25))
	after, err := l.ApplyPayment(payerA, 1, NewAmount(25), now)
	require.NoError(t, err)

	assert.True(t, before.NominalFee().Equal(NewAmount(10)))
	assert.True(t, after.NominalFee().Equal(NewAmount(25)))
}

func TestSetToken_DoesNotResetTotalCollected(t *testing.T) {
	l := newConfiguredLedger(t, 10)
	_, err := l.ApplyPayment(payerA, 1, NewAmount(10), time.Now().UTC())
	require.NoError(t, err)

	l.SetToken(Account("token-U"))

	assert.Equal(t, Account("token-U"), l.Token())
	assert.True(t, l.TotalCollected().Equal(NewAmount(10)))
}

func TestSetFeeCollector(t *testing.T) {
	l := newConfiguredLedger(t, 10)
	l.SetFeeCollector(Account("treasury"))
	assert.Equal(t, Account("treasury"), l.FeeCollector())
}

func TestConfigurationEvents(t *testing.T) {
	l, err := NewLedger(owner)
	require.NoError(t, err)

	l.SetFee(NewAmount(10))
	l.SetToken(tokenT)
	l.SetFeeCollector(Account("treasury"))
	l.NoteWithdrawal(owner, NewAmount(100))

	events := l.DomainEvents()
	require.Len(t, events, 4)
	assert.IsType(t, &FeeChanged{}, events[0])
	assert.IsType(t, &TokenChanged{}, events[1])
	assert.IsType(t, &FeeCollectorChanged{}, events[2])
	withdrawn, ok := events[3].(*FundsWithdrawn)
	require.True(t, ok)
	assert.Equal(t, owner, withdrawn.To)
	assert.True(t, withdrawn.Amount.Equal(NewAmount(100)))
}

func TestRehydrateLedger_RebuildsIndexes(t *testing.T) {
	src := newConfiguredLedger(t, 10)
	base := time.Unix(1000, 0).UTC()
	_, err := src.ApplyPayment(payerA, 1, NewAmount(9), base)
	require.NoError(t, err)
	_, err = src.ApplyPayment(payerB, 2, NewAmount(18), base.Add(time.Hour))
	require.NoError(t, err)
	_, err = src.ApplyPayment(payerA, 3, NewAmount(27), base.Add(2*time.Hour))
	require.NoError(t, err)

	fee, configured := src.Fee()
	require.True(t, configured)

	rebuilt := RehydrateLedger(
		sharedDomain.RehydrateBaseEntity(src.ID(), src.CreatedAt(), src.UpdatedAt()),
		src.Owner(), src.FeeCollector(), src.Token(),
		fee, configured,
		src.TotalCollected(),
		src.Payments(),
	)

	assert.Equal(t, 3, rebuilt.PaymentCount())
	assert.True(t, rebuilt.TotalPaidBy(payerA).Equal(NewAmount(36)))
	assert.True(t, rebuilt.TotalPaidBy(payerB).Equal(NewAmount(18)))
	assert.True(t, rebuilt.TotalCollected().Equal(NewAmount(54)))
	latest, ok := rebuilt.LatestPayment(payerA)
	require.True(t, ok)
	assert.Equal(t, base.Add(2*time.Hour), latest.PaidAt())
	assert.Empty(t, rebuilt.DomainEvents(), "rehydration raises no events")
}
