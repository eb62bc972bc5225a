package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundPosition represents a user's current holding in one fund.
// It is the aggregate root of the ledger: one row per (user, fund),
// mutated only by applying or reversing transactions and daily marks.
type FundPosition struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	FundName string
	Code     string

	HoldingShares decimal.Decimal // current shares held, never negative
	HoldingAmount decimal.Decimal // market value at the last known net value
	HoldingCost   decimal.Decimal // weighted-average cost per share
	TotalCost     decimal.Decimal // HoldingCost x HoldingShares
	HoldingProfit decimal.Decimal // unrealized: HoldingAmount - TotalCost
	SellProfit    decimal.Decimal // cumulative realized profit from sells
	TotalProfit   decimal.Decimal // HoldingProfit + SellProfit

	HoldingProfitRate decimal.Decimal // HoldingProfit / TotalCost, 0 when TotalCost is 0
	CurrentNetValue   decimal.Decimal // last mark-to-market net asset value per share
}

// NewFundPosition creates a position with all aggregates zeroed.
func NewFundPosition(userID uuid.UUID, fundName, code string) *FundPosition {
	return &FundPosition{
		ID:       uuid.New(),
		UserID:   userID,
		FundName: fundName,
		Code:     code,
	}
}

// Validate ensures the position adheres to domain rules.
func (p *FundPosition) Validate() error {
	if p.FundName == "" {
		return NewValidationError("fund_name", "is required")
	}
	if p.HoldingShares.IsNegative() {
		return NewValidationError("holding_shares", "must not be negative")
	}
	return nil
}

// ClearHolding resets the open-position fields after a full exit.
// Realized profit history (SellProfit, TotalProfit) survives liquidation.
func (p *FundPosition) ClearHolding() {
	p.HoldingShares = decimal.Zero
	p.HoldingAmount = decimal.Zero
	p.HoldingCost = decimal.Zero
	p.TotalCost = decimal.Zero
	p.HoldingProfit = decimal.Zero
	p.HoldingProfitRate = decimal.Zero
}
