// Package persistence implements the ledger repository for SQLite and
// PostgreSQL. The ledger is a single-row aggregate with an append-only
// payment log; insertion order is preserved by a sequence column.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
	sharedDomain "github.com/felixgeelhaar/subledger/internal/shared/domain"
	sharedPersistence "github.com/felixgeelhaar/subledger/internal/shared/infrastructure/persistence"
)

// ErrLedgerExists is returned by Initialize when a ledger row is already
// present. The ledger is created once and lives forever.
var ErrLedgerExists = errors.New("ledger already initialized")

// SQLiteLedgerRepository implements domain.Repository with SQLite.
type SQLiteLedgerRepository struct {
	db *sql.DB
}

// NewSQLiteLedgerRepository creates a new repository.
func NewSQLiteLedgerRepository(db *sql.DB) *SQLiteLedgerRepository {
	return &SQLiteLedgerRepository{db: db}
}

// Initialize persists a newly created ledger. It fails with
// ErrLedgerExists when a ledger has already been initialized.
func (r *SQLiteLedgerRepository) Initialize(ctx context.Context, ledger *domain.Ledger) error {
	db := sharedPersistence.SQLiteDB(ctx, r.db)

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_config`).Scan(&count); err != nil {
		return fmt.Errorf("check existing ledger: %w", err)
	}
	if count > 0 {
		return ErrLedgerExists
	}

	fee, feeConfigured := ledger.Fee()
	_, err := db.ExecContext(ctx, `
		INSERT INTO ledger_config (
			id, ledger_id, owner, fee_collector, token,
			fee, fee_configured, total_collected, created_at, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ledger.ID().String(),
		string(ledger.Owner()),
		string(ledger.FeeCollector()),
		string(ledger.Token()),
		fee,
		boolToInt(feeConfigured),
		ledger.TotalCollected(),
		ledger.CreatedAt().Format(time.RFC3339Nano),
		ledger.UpdatedAt().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert ledger config: %w", err)
	}
	return nil
}

// Load returns the persisted ledger with its full payment history, or nil
// if none has been initialized yet.
func (r *SQLiteLedgerRepository) Load(ctx context.Context) (*domain.Ledger, error) {
	db := sharedPersistence.SQLiteDB(ctx, r.db)

	var (
		idStr             string
		owner             string
		feeCollector      string
		token             string
		fee               domain.Amount
		feeConfiguredInt  int
		totalCollected    domain.Amount
		createdAtStr      string
		updatedAtStr      string
	)

	err := db.QueryRowContext(ctx, `
		SELECT ledger_id, owner, fee_collector, token,
		       fee, fee_configured, total_collected, created_at, updated_at
		FROM ledger_config WHERE id = 1
	`).Scan(
		&idStr, &owner, &feeCollector, &token,
		&fee, &feeConfiguredInt, &totalCollected, &createdAtStr, &updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load ledger config: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse ledger id: %w", err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, createdAtStr)
	updatedAt, _ := time.Parse(time.RFC3339Nano, updatedAtStr)

	payments, err := r.loadPayments(ctx, db)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateLedger(
		sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		domain.Account(owner),
		domain.Account(feeCollector),
		domain.Account(token),
		fee,
		feeConfiguredInt != 0,
		totalCollected,
		payments,
	), nil
}

func (r *SQLiteLedgerRepository) loadPayments(ctx context.Context, db sharedPersistence.SQLiteExecutor) ([]*domain.Payment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, payer, periods, nominal_fee, received, paid_at, expires_at
		FROM payments ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var (
			idStr        string
			payer        string
			periods      int
			nominalFee   domain.Amount
			received     domain.Amount
			paidAtStr    string
			expiresAtStr string
		)
		if err := rows.Scan(&idStr, &payer, &periods, &nominalFee, &received, &paidAtStr, &expiresAtStr); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse payment id: %w", err)
		}
		paidAt, _ := time.Parse(time.RFC3339Nano, paidAtStr)
		expiresAt, _ := time.Parse(time.RFC3339Nano, expiresAtStr)

		payments = append(payments, domain.RehydratePayment(
			id, domain.Account(payer), periods, nominalFee, received, paidAt, expiresAt,
		))
	}
	return payments, rows.Err()
}

// SaveConfig persists the mutable configuration fields and counters.
func (r *SQLiteLedgerRepository) SaveConfig(ctx context.Context, ledger *domain.Ledger) error {
	db := sharedPersistence.SQLiteDB(ctx, r.db)

	fee, feeConfigured := ledger.Fee()
	result, err := db.ExecContext(ctx, `
		UPDATE ledger_config
		SET fee_collector = ?, token = ?, fee = ?, fee_configured = ?,
		    total_collected = ?, updated_at = ?
		WHERE id = 1
	`,
		string(ledger.FeeCollector()),
		string(ledger.Token()),
		fee,
		boolToInt(feeConfigured),
		ledger.TotalCollected(),
		ledger.UpdatedAt().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save ledger config: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errors.New("ledger not initialized")
	}
	return nil
}

// AppendPayment persists a new payment record together with the ledger's
// updated counters in one transaction.
func (r *SQLiteLedgerRepository) AppendPayment(ctx context.Context, ledger *domain.Ledger, payment *domain.Payment) error {
	// Join an outer transaction when present, otherwise open our own.
	if _, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return r.appendPayment(ctx, ledger, payment)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	txCtx := sharedPersistence.WithSQLiteTx(ctx, tx, true)

	if err := r.appendPayment(txCtx, ledger, payment); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *SQLiteLedgerRepository) appendPayment(ctx context.Context, ledger *domain.Ledger, payment *domain.Payment) error {
	db := sharedPersistence.SQLiteDB(ctx, r.db)

	_, err := db.ExecContext(ctx, `
		INSERT INTO payments (id, payer, periods, nominal_fee, received, paid_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		payment.ID().String(),
		string(payment.Payer()),
		payment.Periods(),
		payment.NominalFee(),
		payment.Received(),
		payment.PaidAt().Format(time.RFC3339Nano),
		payment.ExpiresAt().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return r.SaveConfig(ctx, ledger)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ domain.Repository = (*SQLiteLedgerRepository)(nil)
