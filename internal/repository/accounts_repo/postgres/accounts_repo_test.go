package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivekbharatha/vbank/internal/domain"
)

const testAccountNumber = "112025110000001"

func accountRows(balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "account_number", "account_name", "account_type",
		"account_status", "balance", "created_at", "updated_at",
	}).AddRow(1, 7, testAccountNumber, "Main", "savings", "active", balance, time.Now(), time.Now())
}

func TestApplyEntry(t *testing.T) {
	t.Run("debit is recorded and balance reduced", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewAccountRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs("VBNK-T1", "debit", testAccountNumber, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery("SELECT(.|\\s)+FOR UPDATE").
			WithArgs(testAccountNumber).
			WillReturnRows(accountRows("1000"))
		mock.ExpectExec("UPDATE accounts SET balance").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), testAccountNumber).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		account, err := repo.ApplyEntry(context.Background(), domain.LedgerEntry{
			TransactionID: "VBNK-T1",
			EntryType:     domain.LedgerEntryDebit,
			AccountNumber: testAccountNumber,
			Amount:        decimal.NewFromInt(250),
		})
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(750)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate entry rolls back and reports already applied", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewAccountRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs("VBNK-T1", "debit", testAccountNumber, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err = repo.ApplyEntry(context.Background(), domain.LedgerEntry{
			TransactionID: "VBNK-T1",
			EntryType:     domain.LedgerEntryDebit,
			AccountNumber: testAccountNumber,
			Amount:        decimal.NewFromInt(250),
		})
		assert.ErrorIs(t, err, domain.ErrEntryAlreadyApplied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance aborts the entry", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewAccountRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_entries").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery("SELECT(.|\\s)+FOR UPDATE").
			WithArgs(testAccountNumber).
			WillReturnRows(accountRows("100"))
		mock.ExpectRollback()

		_, err = repo.ApplyEntry(context.Background(), domain.LedgerEntry{
			TransactionID: "VBNK-T2",
			EntryType:     domain.LedgerEntryDebit,
			AccountNumber: testAccountNumber,
			Amount:        decimal.NewFromInt(250),
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("compensation credits the account", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewAccountRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO ledger_entries").
			WithArgs("VBNK-T3", "compensation", testAccountNumber, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery("SELECT(.|\\s)+FOR UPDATE").
			WithArgs(testAccountNumber).
			WillReturnRows(accountRows("750"))
		mock.ExpectExec("UPDATE accounts SET balance").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), testAccountNumber).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		account, err := repo.ApplyEntry(context.Background(), domain.LedgerEntry{
			TransactionID: "VBNK-T3",
			EntryType:     domain.LedgerEntryCompensation,
			AccountNumber: testAccountNumber,
			Amount:        decimal.NewFromInt(250),
		})
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(decimal.NewFromInt(1000)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateBalance(t *testing.T) {
	t.Run("unknown account", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewAccountRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT(.|\\s)+FOR UPDATE").
			WithArgs(testAccountNumber).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err = repo.UpdateBalance(context.Background(), testAccountNumber, domain.TransactionTypeCredit, decimal.NewFromInt(50))
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})

	t.Run("credit rounds to two decimal places", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewAccountRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT(.|\\s)+FOR UPDATE").
			WithArgs(testAccountNumber).
			WillReturnRows(accountRows("10.10"))
		mock.ExpectExec("UPDATE accounts SET balance").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), testAccountNumber).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		account, err := repo.UpdateBalance(context.Background(), testAccountNumber, domain.TransactionTypeCredit, decimal.NewFromFloat(0.005))
		require.NoError(t, err)
		assert.True(t, account.Balance.Equal(decimal.NewFromFloat(10.11)))
	})
}
