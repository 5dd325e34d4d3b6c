package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
	"github.com/felixgeelhaar/subledger/internal/shared/infrastructure/migrations"
)

const (
	testOwner = domain.Account("acct:owner")
	testToken = domain.Account("token:T")
	testPayer = domain.Account("acct:alice")
)

func setupLedgerTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.RunSQLiteMigrations(context.Background(), db))
	return db
}

func newTestLedger(t *testing.T) *domain.Ledger {
	t.Helper()

	ledger, err := domain.NewLedger(testOwner)
	require.NoError(t, err)
	ledger.SetFee(domain.NewAmount(10))
	ledger.SetToken(testToken)
	ledger.ClearDomainEvents()
	return ledger
}

func TestSQLiteLedgerRepository_InitializeAndLoad(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewSQLiteLedgerRepository(db)
	ctx := context.Background()

	ledger := newTestLedger(t)
	require.NoError(t, repo.Initialize(ctx, ledger))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, ledger.ID(), loaded.ID())
	assert.Equal(t, testOwner, loaded.Owner())
	assert.Equal(t, testOwner, loaded.FeeCollector())
	assert.Equal(t, testToken, loaded.Token())

	fee, configured := loaded.Fee()
	assert.True(t, configured)
	assert.True(t, fee.Equal(domain.NewAmount(10)))
	assert.True(t, loaded.TotalCollected().IsZero())
	assert.Equal(t, 0, loaded.PaymentCount())
}

func TestSQLiteLedgerRepository_InitializeTwice(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewSQLiteLedgerRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Initialize(ctx, newTestLedger(t)))

	err := repo.Initialize(ctx, newTestLedger(t))
	assert.ErrorIs(t, err, ErrLedgerExists)
}

func TestSQLiteLedgerRepository_LoadEmpty(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewSQLiteLedgerRepository(db)

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSQLiteLedgerRepository_SaveConfig(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewSQLiteLedgerRepository(db)
	ctx := context.Background()

	ledger := newTestLedger(t)
	require.NoError(t, repo.Initialize(ctx, ledger))

	ledger.SetFee(domain.NewAmount(25))
	ledger.SetFeeCollector(domain.Account("acct:treasury"))
	ledger.ClearDomainEvents()
	require.NoError(t, repo.SaveConfig(ctx, ledger))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	fee, _ := loaded.Fee()
	assert.True(t, fee.Equal(domain.NewAmount(25)))
	assert.Equal(t, domain.Account("acct:treasury"), loaded.FeeCollector())
}

func TestSQLiteLedgerRepository_SaveConfigUninitialized(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewSQLiteLedgerRepository(db)

	err := repo.SaveConfig(context.Background(), newTestLedger(t))
	assert.ErrorContains(t, err, "not initialized")
}

func TestSQLiteLedgerRepository_AppendPayment(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewSQLiteLedgerRepository(db)
	ctx := context.Background()

	ledger := newTestLedger(t)
	require.NoError(t, repo.Initialize(ctx, ledger))

	paidAt := time.Unix(1000, 0).UTC()
	payment, err := ledger.ApplyPayment(testPayer, 3, domain.NewAmount(30), paidAt)
	require.NoError(t, err)
	ledger.ClearDomainEvents()

	require.NoError(t, repo.AppendPayment(ctx, ledger, payment))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	require.Equal(t, 1, loaded.PaymentCount())
	got := loaded.Payments()[0]
	assert.Equal(t, payment.ID(), got.ID())
	assert.Equal(t, testPayer, got.Payer())
	assert.Equal(t, 3, got.Periods())
	assert.True(t, got.NominalFee().Equal(domain.NewAmount(30)))
	assert.True(t, got.Received().Equal(domain.NewAmount(30)))
	assert.True(t, got.PaidAt().Equal(paidAt))
	assert.True(t, got.ExpiresAt().Equal(paidAt.Add(3*domain.PeriodLength)))

	// Counters landed with the payment row.
	assert.True(t, loaded.TotalCollected().Equal(domain.NewAmount(30)))
	assert.True(t, loaded.TotalPaidBy(testPayer).Equal(domain.NewAmount(30)))
}

func TestSQLiteLedgerRepository_AppendPaymentOrder(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewSQLiteLedgerRepository(db)
	ctx := context.Background()

	ledger := newTestLedger(t)
	require.NoError(t, repo.Initialize(ctx, ledger))

	now := time.Unix(1000, 0).UTC()
	payers := []domain.Account{testPayer, "acct:bob", testPayer}
	for i, payer := range payers {
		payment, err := ledger.ApplyPayment(payer, 1, domain.NewAmount(10), now.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		require.NoError(t, repo.AppendPayment(ctx, ledger, payment))
	}

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	history := loaded.Payments()
	require.Len(t, history, 3)
	for i, payer := range payers {
		assert.Equal(t, payer, history[i].Payer())
	}

	// Rebuilt indexes point at the newest payment per payer.
	latest, ok := loaded.LatestPayment(testPayer)
	require.True(t, ok)
	assert.Equal(t, history[2].ID(), latest.ID())
}

func TestSQLiteLedgerRepository_LargeAmounts(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewSQLiteLedgerRepository(db)
	ctx := context.Background()

	// 50 * 10^18 token base units, beyond int64.
	bigFee := domain.MustParseAmount("50000000000000000000")

	ledger, err := domain.NewLedger(testOwner)
	require.NoError(t, err)
	ledger.SetFee(bigFee)
	ledger.SetToken(testToken)
	ledger.ClearDomainEvents()
	require.NoError(t, repo.Initialize(ctx, ledger))

	payment, err := ledger.ApplyPayment(testPayer, 2, bigFee.MulInt(2), time.Unix(1000, 0).UTC())
	require.NoError(t, err)
	require.NoError(t, repo.AppendPayment(ctx, ledger, payment))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	fee, _ := loaded.Fee()
	assert.True(t, fee.Equal(bigFee))
	assert.True(t, loaded.TotalCollected().Equal(bigFee.MulInt(2)))
}
