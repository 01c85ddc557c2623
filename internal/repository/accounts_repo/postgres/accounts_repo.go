package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vivekbharatha/vbank/internal/domain"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (user_id, account_number, account_name, account_type, account_status, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		account.UserID, account.AccountNumber, account.AccountName,
		account.AccountType, account.AccountStatus, account.Balance,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.AccountNumber, err)
	}
	return nil
}

const accountColumns = `
	id, user_id, account_number, account_name, account_type, account_status, balance, created_at, updated_at`

func (r *AccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	query := `SELECT` + accountColumns + `FROM accounts WHERE account_number = $1`
	account := &domain.Account{}
	err := r.db.QueryRowContext(ctx, query, accountNumber).Scan(
		&account.ID, &account.UserID, &account.AccountNumber, &account.AccountName,
		&account.AccountType, &account.AccountStatus, &account.Balance,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account %s: %w", accountNumber, err)
	}
	return account, nil
}

func (r *AccountRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Account, error) {
	query := `SELECT` + accountColumns + `FROM accounts WHERE user_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for user %d: %w", userID, err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.ID, &account.UserID, &account.AccountNumber, &account.AccountName,
			&account.AccountType, &account.AccountStatus, &account.Balance,
			&account.CreatedAt, &account.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account rows: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) FindByUserAndType(ctx context.Context, userID int64, accountType domain.AccountType) (*domain.Account, error) {
	query := `SELECT` + accountColumns + `FROM accounts WHERE user_id = $1 AND account_type = $2 LIMIT 1`
	account := &domain.Account{}
	err := r.db.QueryRowContext(ctx, query, userID, accountType).Scan(
		&account.ID, &account.UserID, &account.AccountNumber, &account.AccountName,
		&account.AccountType, &account.AccountStatus, &account.Balance,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account for user %d: %w", userID, err)
	}
	return account, nil
}

func (r *AccountRepository) Delete(ctx context.Context, userID int64, accountNumber string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE user_id = $1 AND account_number = $2`, userID, accountNumber)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", accountNumber, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) ApplyEntry(ctx context.Context, entry domain.LedgerEntry) (*domain.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (transaction_id, entry_type, account_number, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (transaction_id, entry_type) DO NOTHING
	`, entry.TransactionID, entry.EntryType, entry.AccountNumber, entry.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to record ledger entry for transaction %s: %w", entry.TransactionID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, domain.ErrEntryAlreadyApplied
	}

	txType := domain.TransactionTypeCredit
	if entry.EntryType == domain.LedgerEntryDebit {
		txType = domain.TransactionTypeDebit
	}

	account, err := updateBalanceTx(ctx, tx, entry.AccountNumber, txType, entry.Amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ledger entry for transaction %s: %w", entry.TransactionID, err)
	}
	return account, nil
}

func (r *AccountRepository) UpdateBalance(ctx context.Context, accountNumber string, txType domain.TransactionType, amount decimal.Decimal) (*domain.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	account, err := updateBalanceTx(ctx, tx, accountNumber, txType, amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit balance update for account %s: %w", accountNumber, err)
	}
	return account, nil
}

// updateBalanceTx re-reads the row under a lock before checking
// sufficiency, so concurrent transfers touching the same account cannot
// lose updates. The new balance is rounded to two decimal places before
// persisting.
func updateBalanceTx(ctx context.Context, tx *sql.Tx, accountNumber string, txType domain.TransactionType, amount decimal.Decimal) (*domain.Account, error) {
	account := &domain.Account{}
	err := tx.QueryRowContext(ctx, `
		SELECT`+accountColumns+`
		FROM accounts
		WHERE account_number = $1
		FOR UPDATE
	`, accountNumber).Scan(
		&account.ID, &account.UserID, &account.AccountNumber, &account.AccountName,
		&account.AccountType, &account.AccountStatus, &account.Balance,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to lock account %s: %w", accountNumber, err)
	}

	amount = amount.Abs()

	switch txType {
	case domain.TransactionTypeCredit:
		account.Balance = account.Balance.Add(amount)
	case domain.TransactionTypeDebit:
		if account.Balance.LessThan(amount) {
			return nil, domain.ErrInsufficientBalance
		}
		account.Balance = account.Balance.Sub(amount)
	default:
		return nil, fmt.Errorf("unsupported balance update type: %s", txType)
	}

	account.Balance = domain.RoundAmount(account.Balance)
	now := time.Now()

	if _, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = $1, updated_at = $2 WHERE account_number = $3
	`, account.Balance, now, accountNumber); err != nil {
		return nil, fmt.Errorf("failed to update balance for account %s: %w", accountNumber, err)
	}

	account.UpdatedAt = now
	return account, nil
}
