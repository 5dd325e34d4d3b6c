// Package application coordinates the subscription ledger with its
// external collaborators: the token gateway, the authorizer, persistence,
// and the event bus. Each operation runs under a single-writer lock so
// callers observe all-or-nothing semantics, mirroring the transactional
// environment the ledger was designed for.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
	"github.com/felixgeelhaar/subledger/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/subledger/pkg/observability"
)

// StatusCache is an optional read cache for active-subscription checks.
// It is advisory only: the ledger stays authoritative, and a stale or
// missing cache entry just falls through to the aggregate.
type StatusCache interface {
	SetActiveUntil(ctx context.Context, user domain.Account, until time.Time) error
	ActiveUntil(ctx context.Context, user domain.Account) (time.Time, bool, error)
}

// Service is the single state-changing surface of the subscription
// ledger. The mutex serializes every operation, including the synchronous
// call-out to the token gateway, so no caller ever observes a
// half-updated ledger.
type Service struct {
	mu sync.RWMutex

	ledger  *domain.Ledger
	repo    domain.Repository
	token   domain.TokenGateway
	auth    domain.Authorizer
	custody domain.Account

	publisher eventbus.Publisher
	cache     StatusCache
	logger    *slog.Logger
	metrics   observability.Metrics
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event publisher.
func WithPublisher(p eventbus.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithStatusCache sets the optional subscription-status cache.
func WithStatusCache(c StatusCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a ledger service. custody is the ledger's own
// account on the token network, the destination of payment transfers and
// the source of withdrawals.
func NewService(
	ledger *domain.Ledger,
	repo domain.Repository,
	token domain.TokenGateway,
	auth domain.Authorizer,
	custody domain.Account,
	opts ...Option,
) *Service {
	s := &Service{
		ledger:    ledger,
		repo:      repo,
		token:     token,
		auth:      auth,
		custody:   custody,
		publisher: eventbus.NewNoopPublisher(nil),
		logger:    slog.Default(),
		metrics:   observability.NoopMetrics{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordPayment charges the caller for periodCount billing periods and
// extends their active window. The ledger measures its own custody
// balance before and after the transfer and books the observed delta, so
// fee-on-transfer tokens are accounted at what actually arrived. The
// emitted event carries the nominal charge. A failed transfer aborts the
// whole operation with no state mutation.
func (s *Service) RecordPayment(ctx context.Context, caller domain.Account, periods int) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.CanAcceptPayment(periods); err != nil {
		return nil, err
	}
	nominal := s.ledger.NominalCharge(periods)

	before, err := s.token.BalanceOf(ctx, s.custody)
	if err != nil {
		return nil, fmt.Errorf("balance before transfer: %w", err)
	}

	if err := s.token.TransferFrom(ctx, caller, s.custody, nominal); err != nil {
		s.metrics.Counter("ledger.transfers.failed", 1)
		return nil, fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
	}

	after, err := s.token.BalanceOf(ctx, s.custody)
	if err != nil {
		return nil, fmt.Errorf("balance after transfer: %w", err)
	}
	received := after.Sub(before)

	payment, err := s.ledger.ApplyPayment(caller, periods, received, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.repo.AppendPayment(ctx, s.ledger, payment); err != nil {
		s.reload(ctx)
		return nil, fmt.Errorf("persist payment: %w", err)
	}

	s.publishEvents(ctx)
	s.cacheActiveUntil(ctx, caller, payment.ExpiresAt())
	s.metrics.Counter("ledger.payments.recorded", 1)
	s.logger.Info("payment recorded",
		"payer", string(caller),
		"periods", periods,
		"nominal_fee", nominal.String(),
		"received", received.String(),
		"expires_at", payment.ExpiresAt(),
	)

	return payment, nil
}

// SetFee replaces the per-period fee. Owner-only.
func (s *Service) SetFee(ctx context.Context, caller domain.Account, fee domain.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorizeOwner(ctx, caller); err != nil {
		return err
	}
	s.ledger.SetFee(fee)
	return s.saveConfig(ctx)
}

// SetToken replaces the accepted payment token. Owner-only. The
// identifier is not validated here; a wrong token surfaces later as
// transfer failures.
func (s *Service) SetToken(ctx context.Context, caller, token domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorizeOwner(ctx, caller); err != nil {
		return err
	}
	s.ledger.SetToken(token)
	return s.saveConfig(ctx)
}

// SetFeeCollector replaces the recorded collection destination.
// Owner-only; no funds move.
func (s *Service) SetFeeCollector(ctx context.Context, caller, collector domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorizeOwner(ctx, caller); err != nil {
		return err
	}
	s.ledger.SetFeeCollector(collector)
	return s.saveConfig(ctx)
}

// Withdraw transfers the ledger's entire current token balance to the
// calling owner. The fee collector is tracked as metadata only and is not
// the withdrawal destination. A zero balance is a successful no-op.
func (s *Service) Withdraw(ctx context.Context, caller domain.Account) (domain.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorizeOwner(ctx, caller); err != nil {
		return domain.ZeroAmount(), err
	}

	balance, err := s.token.BalanceOf(ctx, s.custody)
	if err != nil {
		return domain.ZeroAmount(), fmt.Errorf("custody balance: %w", err)
	}
	if balance.IsZero() {
		return domain.ZeroAmount(), nil
	}

	if err := s.token.Transfer(ctx, caller, balance); err != nil {
		s.metrics.Counter("ledger.transfers.failed", 1)
		return domain.ZeroAmount(), fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
	}

	s.ledger.NoteWithdrawal(caller, balance)
	if err := s.saveConfig(ctx); err != nil {
		return balance, err
	}
	s.metrics.Counter("ledger.withdrawals", 1)
	s.logger.Info("funds withdrawn", "to", string(caller), "amount", balance.String())

	return balance, nil
}

// IsSubscriptionActive reports whether the user's subscription covers the
// current moment. Unknown users are inactive.
func (s *Service) IsSubscriptionActive(ctx context.Context, user domain.Account) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now().UTC()
	if s.cache != nil {
		if until, ok, err := s.cache.ActiveUntil(ctx, user); err == nil && ok && now.Before(until) {
			return true
		}
	}
	return s.ledger.IsActiveAt(user, now)
}

// RequireActiveSubscription is the reusable precondition guard for
// access-gated operations built on top of the ledger. It returns
// ErrSubscriptionExpired when the user's paid period has lapsed or the
// user never paid.
func (s *Service) RequireActiveSubscription(ctx context.Context, user domain.Account) error {
	if !s.IsSubscriptionActive(ctx, user) {
		return domain.ErrSubscriptionExpired
	}
	return nil
}

// LastPaymentMoment returns when the user last paid, or the zero time for
// users with no payment history.
func (s *Service) LastPaymentMoment(user domain.Account) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.LastPaymentMoment(user)
}

// LatestPayment returns the user's most recent payment record.
func (s *Service) LatestPayment(user domain.Account) (*domain.Payment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.LatestPayment(user)
}

// CurrentTokenBalance returns the custody account's token balance.
func (s *Service) CurrentTokenBalance(ctx context.Context) (domain.Amount, error) {
	return s.token.BalanceOf(ctx, s.custody)
}

// PaymentHistory returns all payments in insertion order.
func (s *Service) PaymentHistory() []*domain.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Payments()
}

// TotalCollected returns the running sum of observed balance deltas
// across all payments.
func (s *Service) TotalCollected() domain.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.TotalCollected()
}

// TotalPaidBy returns the cumulative tokens received from the user.
func (s *Service) TotalPaidBy(user domain.Account) domain.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.TotalPaidBy(user)
}

// FeeCollector returns the recorded collection destination.
func (s *Service) FeeCollector() domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.FeeCollector()
}

// Fee returns the per-period fee and whether it has been configured.
func (s *Service) Fee() (domain.Amount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Fee()
}

// Token returns the accepted payment token.
func (s *Service) Token() domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Token()
}

// Owner returns the ledger owner.
func (s *Service) Owner() domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Owner()
}

func (s *Service) authorizeOwner(ctx context.Context, caller domain.Account) error {
	ok, err := s.auth.IsOwner(ctx, caller)
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	if !ok {
		return domain.ErrNotOwner
	}
	return nil
}

// saveConfig persists the ledger's configuration and counters, reloading
// the in-memory aggregate from storage when the write fails so callers
// never observe an unpersisted mutation.
func (s *Service) saveConfig(ctx context.Context) error {
	if err := s.repo.SaveConfig(ctx, s.ledger); err != nil {
		s.reload(ctx)
		return fmt.Errorf("persist ledger config: %w", err)
	}
	s.publishEvents(ctx)
	return nil
}

// reload discards in-memory state in favor of the persisted ledger.
func (s *Service) reload(ctx context.Context) {
	fresh, err := s.repo.Load(ctx)
	if err != nil || fresh == nil {
		s.logger.Error("failed to reload ledger after persistence error", "error", err)
		return
	}
	s.ledger = fresh
}

// publishEvents drains the aggregate's uncommitted events to the bus.
// Publish failures are logged, not surfaced: the ledger mutation has
// already committed.
func (s *Service) publishEvents(ctx context.Context) {
	for _, event := range s.ledger.DomainEvents() {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("failed to marshal domain event",
				"routing_key", event.RoutingKey(),
				"error", err,
			)
			continue
		}
		if err := s.publisher.Publish(ctx, event.RoutingKey(), payload); err != nil {
			s.logger.Error("failed to publish domain event",
				"routing_key", event.RoutingKey(),
				"event_id", event.EventID(),
				"error", err,
			)
		}
	}
	s.ledger.ClearDomainEvents()
}

func (s *Service) cacheActiveUntil(ctx context.Context, user domain.Account, until time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetActiveUntil(ctx, user, until); err != nil {
		s.logger.Warn("failed to cache subscription status", "user", string(user), "error", err)
	}
}
