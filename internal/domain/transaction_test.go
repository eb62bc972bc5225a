package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validTransaction() Transaction {
	return Transaction{
		ID:              uuid.New(),
		FundID:          uuid.New(),
		UserID:          uuid.New(),
		Type:            TransactionTypeBuy,
		Shares:          decimal.RequireFromString("10"),
		NetValue:        decimal.RequireFromString("2.00"),
		Amount:          decimal.RequireFromString("20.00"),
		TransactionDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestTransactionValidate_Valid(t *testing.T) {
	tx := validTransaction()
	assert.NoError(t, tx.Validate())
}

func TestTransactionValidate_ToleratedRounding(t *testing.T) {
	tx := validTransaction()
	tx.Amount = decimal.RequireFromString("20.01")
	assert.NoError(t, tx.Validate())
}

func TestTransactionValidate_AmountMismatch(t *testing.T) {
	tx := validTransaction()
	tx.Amount = decimal.RequireFromString("15.00")

	err := tx.Validate()

	assert.ErrorIs(t, err, ErrAmountMismatch)
}

func TestTransactionValidate_FieldErrors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(tx *Transaction)
	}{
		{"unknown type", func(tx *Transaction) { tx.Type = "transfer" }},
		{"zero shares", func(tx *Transaction) { tx.Shares = decimal.Zero }},
		{"negative shares", func(tx *Transaction) { tx.Shares = decimal.RequireFromString("-1") }},
		{"zero net value", func(tx *Transaction) { tx.NetValue = decimal.Zero }},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }},
		{"missing date", func(tx *Transaction) { tx.TransactionDate = time.Time{} }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tc.mutate(&tx)

			err := tx.Validate()

			assert.Error(t, err)
			assert.True(t, IsValidation(err), "expected a validation error, got %v", err)
		})
	}
}
