package credit

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"leadmarket/internal/domain/provider"
)

func setupLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Silent),
		},
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&provider.Provider{}, &Transaction{}))
	return NewLedger(db), db
}

func seedBalance(t *testing.T, db *gorm.DB, balance int64) uuid.UUID {
	t.Helper()
	p := &provider.Provider{
		Name:               "ledger-test",
		Email:              fmt.Sprintf("%s@test.local", uuid.NewString()[:8]),
		VerificationStatus: provider.VerificationVerified,
		CreditBalance:      balance,
	}
	require.NoError(t, db.Create(p).Error)
	return p.ID
}

func TestCreditIncreasesBalanceAndRecordsTransaction(t *testing.T) {
	ledger, db := setupLedger(t)
	ctx := context.Background()
	id := seedBalance(t, db, 10)

	txn, err := ledger.Credit(ctx, id, 25, "topup")
	require.NoError(t, err)
	assert.Equal(t, TransactionTypeCredit, txn.Type)
	assert.EqualValues(t, 25, txn.Amount)

	balance, err := ledger.Balance(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 35, balance)
}

func TestDebitWithinCallerTransaction(t *testing.T) {
	ledger, db := setupLedger(t)
	id := seedBalance(t, db, 10)

	err := db.Transaction(func(tx *gorm.DB) error {
		txn, err := ledger.DebitTx(tx, id, 4, "unlock:test")
		if err != nil {
			return err
		}
		assert.Equal(t, TransactionTypeDebit, txn.Type)
		assert.EqualValues(t, 4, txn.Amount)
		return nil
	})
	require.NoError(t, err)

	balance, err := ledger.Balance(context.Background(), id)
	require.NoError(t, err)
	assert.EqualValues(t, 6, balance)
}

func TestDebitNeverDrivesBalanceNegative(t *testing.T) {
	ledger, db := setupLedger(t)
	id := seedBalance(t, db, 3)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.DebitTx(tx, id, 5, "unlock:test")
		return err
	})

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.EqualValues(t, 5, insufficient.Required)
	assert.EqualValues(t, 3, insufficient.Available)

	// The rolled-back transaction leaves no trace.
	balance, err := ledger.Balance(context.Background(), id)
	require.NoError(t, err)
	assert.EqualValues(t, 3, balance)

	var count int64
	require.NoError(t, db.Model(&Transaction{}).Where("provider_id = ?", id).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRefundRestoresBalance(t *testing.T) {
	ledger, db := setupLedger(t)
	id := seedBalance(t, db, 10)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := ledger.DebitTx(tx, id, 6, "unlock:test"); err != nil {
			return err
		}
		_, err := ledger.RefundTx(tx, id, 6, "refund:test")
		return err
	})
	require.NoError(t, err)

	balance, err := ledger.Balance(context.Background(), id)
	require.NoError(t, err)
	assert.EqualValues(t, 10, balance)
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	ledger, db := setupLedger(t)
	ctx := context.Background()
	id := seedBalance(t, db, 10)

	_, err := ledger.Credit(ctx, id, 0, "topup")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := ledger.DebitTx(tx, id, -5, "unlock:test")
		return err
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestLedgerUnknownProvider(t *testing.T) {
	ledger, _ := setupLedger(t)
	_, err := ledger.Balance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)
}

func TestListTransactionsNewestFirst(t *testing.T) {
	ledger, db := setupLedger(t)
	ctx := context.Background()
	id := seedBalance(t, db, 0)

	for i := 1; i <= 3; i++ {
		_, err := ledger.Credit(ctx, id, int64(i), fmt.Sprintf("topup-%d", i))
		require.NoError(t, err)
	}

	txns, err := ledger.ListTransactions(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, "topup-3", txns[0].Reference)
	assert.Equal(t, "topup-1", txns[2].Reference)
}
