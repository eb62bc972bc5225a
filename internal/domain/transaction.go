package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a fund transaction.
type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "buy"
	TransactionTypeSell TransactionType = "sell"
)

// AmountTolerance is the maximum accepted difference between a transaction's
// amount and shares x net value. Comparisons are exact decimal arithmetic
// against this explicit tolerance.
var AmountTolerance = decimal.RequireFromString("0.01")

// Transaction represents one buy or sell against a fund position.
// Rows are append-only: there are no in-place edits, only full deletion
// (which reverses the transaction's effect on the position).
type Transaction struct {
	ID              uuid.UUID
	FundID          uuid.UUID
	UserID          uuid.UUID
	Type            TransactionType
	Shares          decimal.Decimal // > 0
	NetValue        decimal.Decimal // price per share, > 0
	Amount          decimal.Decimal // > 0, within AmountTolerance of Shares x NetValue
	TransactionDate time.Time
}

// Validate ensures the transaction adheres to domain rules.
// Returns ErrAmountMismatch when the amount disagrees with
// shares x net value beyond AmountTolerance.
func (t *Transaction) Validate() error {
	if t.Type != TransactionTypeBuy && t.Type != TransactionTypeSell {
		return NewValidationError("transaction_type", "must be buy or sell")
	}
	if t.Shares.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("shares", "must be positive")
	}
	if t.NetValue.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("net_value", "must be positive")
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("amount", "must be positive")
	}
	if t.TransactionDate.IsZero() {
		return NewValidationError("transaction_date", "is required")
	}

	expected := t.Shares.Mul(t.NetValue)
	if t.Amount.Sub(expected).Abs().GreaterThan(AmountTolerance) {
		return ErrAmountMismatch
	}

	return nil
}
