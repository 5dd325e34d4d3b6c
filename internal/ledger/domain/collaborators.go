package domain

import "context"

// TokenGateway is the external fungible-token collaborator. Implementations
// may be fee-on-transfer tokens that deliver less than requested, and may
// signal failure either by returning an error or by reporting a failed
// transfer; adapters normalize both conventions into an error return.
type TokenGateway interface {
	// BalanceOf returns the holder's current balance.
	BalanceOf(ctx context.Context, holder Account) (Amount, error)

	// TransferFrom moves amount from `from` to `to` using the gateway's
	// allowance mechanics. A nil error means the token reported success;
	// the actually delivered amount must be measured by the caller.
	TransferFrom(ctx context.Context, from, to Account, amount Amount) error

	// Transfer moves amount from the ledger's custody account to `to`.
	Transfer(ctx context.Context, to Account, amount Amount) error
}

// Authorizer is the external ownership collaborator gating owner-only
// operations. Ownership transfer happens outside the ledger.
type Authorizer interface {
	IsOwner(ctx context.Context, caller Account) (bool, error)
}

// StaticAuthorizer recognizes a single fixed owner. It is the default
// Authorizer for deployments without an external authority.
type StaticAuthorizer struct {
	owner Account
}

// NewStaticAuthorizer creates an authorizer for a fixed owner account.
func NewStaticAuthorizer(owner Account) *StaticAuthorizer {
	return &StaticAuthorizer{owner: owner}
}

// IsOwner reports whether caller is the configured owner.
func (a *StaticAuthorizer) IsOwner(_ context.Context, caller Account) (bool, error) {
	return caller == a.owner, nil
}

var _ Authorizer = (*StaticAuthorizer)(nil)
