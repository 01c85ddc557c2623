package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vivekbharatha/vbank/internal/domain"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, user_id, transaction_id, source_account_number, destination_account_number,
	transaction_type, status, amount, note, reference_id,
	is_internal, is_source_external, is_destination_external,
	source_bank_code, destination_bank_code, details,
	completed_at, source_debited_at, destination_credited_at, compensated_at,
	created_at, updated_at`

func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			user_id, transaction_id, source_account_number, destination_account_number,
			transaction_type, status, amount, note, reference_id,
			is_internal, is_source_external, is_destination_external,
			source_bank_code, destination_bank_code, details
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		nullableInt64(txn.UserID), txn.TransactionID, txn.SourceAccountNumber, txn.DestinationAccountNumber,
		txn.TransactionType, txn.Status, txn.Amount, txn.Note, txn.ReferenceID,
		txn.IsInternal, txn.IsSourceExternal, txn.IsDestinationExternal,
		txn.SourceBankCode, txn.DestinationBankCode, txn.Details,
	).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction %s: %w", txn.TransactionID, err)
	}
	return nil
}

func (r *TransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT` + transactionColumns + `FROM transactions WHERE transaction_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, transactionID), transactionID)
}

func (r *TransactionRepository) GetByReferenceID(ctx context.Context, referenceID string) (*domain.Transaction, error) {
	query := `SELECT` + transactionColumns + `FROM transactions WHERE reference_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, referenceID), referenceID)
}

func (r *TransactionRepository) Update(ctx context.Context, txn *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET status = $1, details = $2, completed_at = $3, source_debited_at = $4,
		    destination_credited_at = $5, compensated_at = $6, updated_at = $7
		WHERE transaction_id = $8
	`
	res, err := r.db.ExecContext(ctx, query,
		txn.Status, txn.Details,
		nullableTime(txn.CompletedAt), nullableTime(txn.SourceDebitedAt),
		nullableTime(txn.DestinationCreditedAt), nullableTime(txn.CompensatedAt),
		time.Now(), txn.TransactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", txn.TransactionID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) scanOne(row *sql.Row, id string) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	var userID sql.NullInt64
	var completedAt, sourceDebitedAt, destinationCreditedAt, compensatedAt sql.NullTime

	err := row.Scan(
		&txn.ID, &userID, &txn.TransactionID, &txn.SourceAccountNumber, &txn.DestinationAccountNumber,
		&txn.TransactionType, &txn.Status, &txn.Amount, &txn.Note, &txn.ReferenceID,
		&txn.IsInternal, &txn.IsSourceExternal, &txn.IsDestinationExternal,
		&txn.SourceBankCode, &txn.DestinationBankCode, &txn.Details,
		&completedAt, &sourceDebitedAt, &destinationCreditedAt, &compensatedAt,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}

	if userID.Valid {
		txn.UserID = &userID.Int64
	}
	txn.CompletedAt = timePtr(completedAt)
	txn.SourceDebitedAt = timePtr(sourceDebitedAt)
	txn.DestinationCreditedAt = timePtr(destinationCreditedAt)
	txn.CompensatedAt = timePtr(compensatedAt)

	return txn, nil
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullableTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
