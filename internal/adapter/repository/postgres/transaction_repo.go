package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orcatt/crayon-bs/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	q querier
}

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `
		SELECT id, fund_id, user_id, transaction_type, shares, net_value, amount, transaction_date
		FROM fund_transactions
		WHERE id = $1
	`

	tx, err := scanTransaction(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction: %w", domain.ErrNotFound)
		}
		return nil, err
	}

	return tx, nil
}

// Create appends a new transaction row
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO fund_transactions (id, fund_id, user_id, transaction_type, shares, net_value, amount, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		tx.ID,
		tx.FundID,
		tx.UserID,
		string(tx.Type),
		tx.Shares.String(),
		tx.NetValue.String(),
		tx.Amount.String(),
		tx.TransactionDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", storeError(err))
	}

	return nil
}

// Delete removes a transaction row
func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM fund_transactions WHERE id = $1`

	if _, err := r.q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", storeError(err))
	}

	return nil
}

// ListByFund retrieves a fund's transactions ordered by date descending,
// optionally bounded by a date range
func (r *transactionRepository) ListByFund(ctx context.Context, fundID uuid.UUID, from, to time.Time) ([]*domain.Transaction, error) {
	query := `
		SELECT id, fund_id, user_id, transaction_type, shares, net_value, amount, transaction_date
		FROM fund_transactions
		WHERE fund_id = $1
	`
	args := []any{fundID}

	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND transaction_date >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND transaction_date <= $%d", len(args))
	}
	query += " ORDER BY transaction_date DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", storeError(err))
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", storeError(err))
	}

	return transactions, nil
}

// DeleteByFund removes all of a fund's transactions
func (r *transactionRepository) DeleteByFund(ctx context.Context, fundID uuid.UUID) error {
	query := `DELETE FROM fund_transactions WHERE fund_id = $1`

	if _, err := r.q.ExecContext(ctx, query, fundID); err != nil {
		return fmt.Errorf("failed to delete fund transactions: %w", storeError(err))
	}

	return nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		tx          domain.Transaction
		txType      string
		sharesStr   string
		netValueStr string
		amountStr   string
	)

	err := row.Scan(
		&tx.ID,
		&tx.FundID,
		&tx.UserID,
		&txType,
		&sharesStr,
		&netValueStr,
		&amountStr,
		&tx.TransactionDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", storeError(err))
	}

	tx.Type = domain.TransactionType(txType)

	if tx.Shares, err = decimal.NewFromString(sharesStr); err != nil {
		return nil, fmt.Errorf("failed to parse shares: %w", err)
	}
	if tx.NetValue, err = decimal.NewFromString(netValueStr); err != nil {
		return nil, fmt.Errorf("failed to parse net_value: %w", err)
	}
	if tx.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}

	return &tx, nil
}
