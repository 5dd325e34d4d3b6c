package domain

import (
	sharedDomain "github.com/felixgeelhaar/subledger/internal/shared/domain"
)

const aggregateType = "Ledger"

// PaymentRecorded is emitted exactly once per successful payment, in call
// order. Fee is the nominal charge (periods × configured fee), not the
// observed transfer delta: subscribers see the intended price.
type PaymentRecorded struct {
	sharedDomain.BaseEvent
	Payer   Account `json:"payer"`
	Fee     Amount  `json:"fee"`
	Periods int     `json:"periods"`
}

// NewPaymentRecorded creates a PaymentRecorded event.
func NewPaymentRecorded(l *Ledger, p *Payment) *PaymentRecorded {
	return &PaymentRecorded{
		BaseEvent: sharedDomain.NewBaseEvent(l.ID(), aggregateType, "ledger.payment.recorded"),
		Payer:     p.Payer(),
		Fee:       p.NominalFee(),
		Periods:   p.Periods(),
	}
}

// FeeChanged is emitted when the owner replaces the per-period fee.
type FeeChanged struct {
	sharedDomain.BaseEvent
	Fee Amount `json:"fee"`
}

// NewFeeChanged creates a FeeChanged event.
func NewFeeChanged(l *Ledger, fee Amount) *FeeChanged {
	return &FeeChanged{
		BaseEvent: sharedDomain.NewBaseEvent(l.ID(), aggregateType, "ledger.fee.changed"),
		Fee:       fee,
	}
}

// TokenChanged is emitted when the owner replaces the accepted token.
type TokenChanged struct {
	sharedDomain.BaseEvent
	Token Account `json:"token"`
}

// NewTokenChanged creates a TokenChanged event.
func NewTokenChanged(l *Ledger, token Account) *TokenChanged {
	return &TokenChanged{
		BaseEvent: sharedDomain.NewBaseEvent(l.ID(), aggregateType, "ledger.token.changed"),
		Token:     token,
	}
}

// FeeCollectorChanged is emitted when the owner replaces the recorded
// collection destination.
type FeeCollectorChanged struct {
	sharedDomain.BaseEvent
	Collector Account `json:"collector"`
}

// NewFeeCollectorChanged creates a FeeCollectorChanged event.
func NewFeeCollectorChanged(l *Ledger, collector Account) *FeeCollectorChanged {
	return &FeeCollectorChanged{
		BaseEvent: sharedDomain.NewBaseEvent(l.ID(), aggregateType, "ledger.collector.changed"),
		Collector: collector,
	}
}

// FundsWithdrawn is emitted when the owner withdraws the ledger's token
// balance.
type FundsWithdrawn struct {
	sharedDomain.BaseEvent
	To     Account `json:"to"`
	Amount Amount  `json:"amount"`
}

// NewFundsWithdrawn creates a FundsWithdrawn event.
func NewFundsWithdrawn(l *Ledger, to Account, amount Amount) *FundsWithdrawn {
	return &FundsWithdrawn{
		BaseEvent: sharedDomain.NewBaseEvent(l.ID(), aggregateType, "ledger.funds.withdrawn"),
		To:        to,
		Amount:    amount,
	}
}
