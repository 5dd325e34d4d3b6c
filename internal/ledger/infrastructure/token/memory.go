// Package token provides TokenGateway implementations: an in-memory
// token network for local deployments and tests, and an HTTP gateway for
// an external token service.
package token

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// MemoryToken is an in-memory fungible token network. The custody
// account is the ledger's own account: TransferFrom pulls approved funds
// into it, Transfer pays out of it.
//
// A transfer fee in basis points models fee-on-transfer tokens: the
// sender is debited the full amount while the recipient receives amount
// minus the fee. The default fee is zero.
type MemoryToken struct {
	mu sync.Mutex

	custody    domain.Account
	balances   map[domain.Account]domain.Amount
	allowances map[domain.Account]domain.Amount
	feeBP      int64
}

// NewMemoryToken creates an empty token network with the given custody
// account.
func NewMemoryToken(custody domain.Account) *MemoryToken {
	return &MemoryToken{
		custody:    custody,
		balances:   make(map[domain.Account]domain.Amount),
		allowances: make(map[domain.Account]domain.Amount),
	}
}

// SetTransferFeeBasisPoints configures the fee retained by the token on
// every transfer, in basis points (100 = 1%).
func (t *MemoryToken) SetTransferFeeBasisPoints(bp int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.feeBP = bp
}

// Mint credits new tokens to an account.
func (t *MemoryToken) Mint(account domain.Account, amount domain.Amount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = t.balances[account].Add(amount)
}

// Approve grants the custody account an allowance over the owner's funds.
func (t *MemoryToken) Approve(owner domain.Account, amount domain.Amount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowances[owner] = amount
}

// BalanceOf returns the holder's current balance.
func (t *MemoryToken) BalanceOf(_ context.Context, holder domain.Account) (domain.Amount, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[holder], nil
}

// TransferFrom moves amount from `from` to `to` against the allowance
// granted to the custody account. The sender is debited the full amount;
// the recipient is credited amount minus the transfer fee.
func (t *MemoryToken) TransferFrom(_ context.Context, from, to domain.Account, amount domain.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.allowances[from].Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if t.balances[from].Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	t.allowances[from] = t.allowances[from].Sub(amount)
	t.move(from, to, amount)
	return nil
}

// Transfer moves amount out of the custody account.
func (t *MemoryToken) Transfer(_ context.Context, to domain.Account, amount domain.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.balances[t.custody].Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	t.move(t.custody, to, amount)
	return nil
}

func (t *MemoryToken) move(from, to domain.Account, amount domain.Amount) {
	delivered := amount
	if t.feeBP > 0 {
		fee := amount.MulInt(t.feeBP).DivInt(10000)
		delivered = amount.Sub(fee)
	}
	t.balances[from] = t.balances[from].Sub(amount)
	t.balances[to] = t.balances[to].Add(delivered)
}

var _ domain.TokenGateway = (*MemoryToken)(nil)
