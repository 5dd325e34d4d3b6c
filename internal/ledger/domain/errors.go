package domain

import "errors"

var (
	// ErrNotOwner is returned when a caller invokes an owner-only
	// operation without being the configured owner.
	ErrNotOwner = errors.New("caller is not the ledger owner")

	// ErrInvalidPeriodCount is returned when a payment requests fewer
	// than one billing period.
	ErrInvalidPeriodCount = errors.New("period count must be at least 1")

	// ErrTokenNotConfigured is returned when a payment is attempted
	// before the accepted token has been set.
	ErrTokenNotConfigured = errors.New("payment token not configured")

	// ErrFeeNotConfigured is returned when a payment is attempted before
	// the subscription fee has been set. A fee of zero is valid once
	// explicitly configured.
	ErrFeeNotConfigured = errors.New("subscription fee not configured")

	// ErrTransferFailed wraps a token collaborator failure. The payment
	// is aborted with no ledger mutation.
	ErrTransferFailed = errors.New("token transfer failed")

	// ErrSubscriptionExpired is the guard condition exposed to
	// access-gated callers when a user's paid period has lapsed or the
	// user never paid.
	ErrSubscriptionExpired = errors.New("subscription expired")
)
