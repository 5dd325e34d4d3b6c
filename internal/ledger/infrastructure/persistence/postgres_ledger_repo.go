package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
	sharedDomain "github.com/felixgeelhaar/subledger/internal/shared/domain"
	sharedPersistence "github.com/felixgeelhaar/subledger/internal/shared/infrastructure/persistence"
)

// PostgresLedgerRepository implements domain.Repository with PostgreSQL.
// Amounts are stored as text: token amounts exceed any native integer
// column.
type PostgresLedgerRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLedgerRepository creates a new repository.
func NewPostgresLedgerRepository(pool *pgxpool.Pool) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{pool: pool}
}

// EnsureSchema creates the ledger tables when they do not exist yet.
func (r *PostgresLedgerRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_config (
			id INT PRIMARY KEY CHECK (id = 1),
			ledger_id UUID NOT NULL,
			owner TEXT NOT NULL,
			fee_collector TEXT NOT NULL,
			token TEXT NOT NULL DEFAULT '',
			fee TEXT NOT NULL DEFAULT '0',
			fee_configured BOOLEAN NOT NULL DEFAULT FALSE,
			total_collected TEXT NOT NULL DEFAULT '0',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS payments (
			seq BIGSERIAL PRIMARY KEY,
			id UUID NOT NULL UNIQUE,
			payer TEXT NOT NULL,
			periods INT NOT NULL,
			nominal_fee TEXT NOT NULL,
			received TEXT NOT NULL,
			paid_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_payments_payer ON payments(payer);
	`)
	return err
}

// Initialize persists a newly created ledger. It fails with
// ErrLedgerExists when a ledger has already been initialized.
func (r *PostgresLedgerRepository) Initialize(ctx context.Context, ledger *domain.Ledger) error {
	db := sharedPersistence.Executor(ctx, r.pool)

	var count int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_config`).Scan(&count); err != nil {
		return fmt.Errorf("check existing ledger: %w", err)
	}
	if count > 0 {
		return ErrLedgerExists
	}

	fee, feeConfigured := ledger.Fee()
	_, err := db.Exec(ctx, `
		INSERT INTO ledger_config (
			id, ledger_id, owner, fee_collector, token,
			fee, fee_configured, total_collected, created_at, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		ledger.ID(),
		string(ledger.Owner()),
		string(ledger.FeeCollector()),
		string(ledger.Token()),
		fee.String(),
		feeConfigured,
		ledger.TotalCollected().String(),
		ledger.CreatedAt(),
		ledger.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("insert ledger config: %w", err)
	}
	return nil
}

// Load returns the persisted ledger with its full payment history, or nil
// if none has been initialized yet.
func (r *PostgresLedgerRepository) Load(ctx context.Context) (*domain.Ledger, error) {
	db := sharedPersistence.Executor(ctx, r.pool)

	var row struct {
		id             uuid.UUID
		owner          string
		feeCollector   string
		token          string
		fee            string
		feeConfigured  bool
		totalCollected string
		createdAt      time.Time
		updatedAt      time.Time
	}

	err := db.QueryRow(ctx, `
		SELECT ledger_id, owner, fee_collector, token,
		       fee, fee_configured, total_collected, created_at, updated_at
		FROM ledger_config WHERE id = 1
	`).Scan(
		&row.id, &row.owner, &row.feeCollector, &row.token,
		&row.fee, &row.feeConfigured, &row.totalCollected, &row.createdAt, &row.updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load ledger config: %w", err)
	}

	fee, err := domain.ParseAmount(row.fee)
	if err != nil {
		return nil, fmt.Errorf("parse fee: %w", err)
	}
	totalCollected, err := domain.ParseAmount(row.totalCollected)
	if err != nil {
		return nil, fmt.Errorf("parse total collected: %w", err)
	}

	payments, err := r.loadPayments(ctx, db)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateLedger(
		sharedDomain.RehydrateBaseEntity(row.id, row.createdAt, row.updatedAt),
		domain.Account(row.owner),
		domain.Account(row.feeCollector),
		domain.Account(row.token),
		fee,
		row.feeConfigured,
		totalCollected,
		payments,
	), nil
}

func (r *PostgresLedgerRepository) loadPayments(ctx context.Context, db sharedPersistence.DBExecutor) ([]*domain.Payment, error) {
	rows, err := db.Query(ctx, `
		SELECT id, payer, periods, nominal_fee, received, paid_at, expires_at
		FROM payments ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var row struct {
			id         uuid.UUID
			payer      string
			periods    int
			nominalFee string
			received   string
			paidAt     time.Time
			expiresAt  time.Time
		}
		if err := rows.Scan(&row.id, &row.payer, &row.periods, &row.nominalFee, &row.received, &row.paidAt, &row.expiresAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}

		nominalFee, err := domain.ParseAmount(row.nominalFee)
		if err != nil {
			return nil, fmt.Errorf("parse nominal fee: %w", err)
		}
		received, err := domain.ParseAmount(row.received)
		if err != nil {
			return nil, fmt.Errorf("parse received: %w", err)
		}

		payments = append(payments, domain.RehydratePayment(
			row.id, domain.Account(row.payer), row.periods, nominalFee, received, row.paidAt, row.expiresAt,
		))
	}
	return payments, rows.Err()
}

// SaveConfig persists the mutable configuration fields and counters.
func (r *PostgresLedgerRepository) SaveConfig(ctx context.Context, ledger *domain.Ledger) error {
	db := sharedPersistence.Executor(ctx, r.pool)

	fee, feeConfigured := ledger.Fee()
	tag, err := db.Exec(ctx, `
		UPDATE ledger_config
		SET fee_collector = $1, token = $2, fee = $3, fee_configured = $4,
		    total_collected = $5, updated_at = $6
		WHERE id = 1
	`,
		string(ledger.FeeCollector()),
		string(ledger.Token()),
		fee.String(),
		feeConfigured,
		ledger.TotalCollected().String(),
		ledger.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save ledger config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("ledger not initialized")
	}
	return nil
}

// AppendPayment persists a new payment record together with the ledger's
// updated counters in one transaction.
func (r *PostgresLedgerRepository) AppendPayment(ctx context.Context, ledger *domain.Ledger, payment *domain.Payment) error {
	if _, ok := sharedPersistence.TxInfoFromContext(ctx); ok {
		return r.appendPayment(ctx, ledger, payment)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txCtx := sharedPersistence.WithTx(ctx, tx, true)

	if err := r.appendPayment(txCtx, ledger, payment); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresLedgerRepository) appendPayment(ctx context.Context, ledger *domain.Ledger, payment *domain.Payment) error {
	db := sharedPersistence.Executor(ctx, r.pool)

	_, err := db.Exec(ctx, `
		INSERT INTO payments (id, payer, periods, nominal_fee, received, paid_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		payment.ID(),
		string(payment.Payer()),
		payment.Periods(),
		payment.NominalFee().String(),
		payment.Received().String(),
		payment.PaidAt(),
		payment.ExpiresAt(),
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return r.SaveConfig(ctx, ledger)
}

var _ domain.Repository = (*PostgresLedgerRepository)(nil)
