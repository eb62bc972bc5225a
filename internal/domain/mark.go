package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyMark is one mark-to-market event for a fund on a calendar date.
// Unique on (FundID, Date): re-marking the same date overwrites the row,
// with the position adjusted by the difference from the previous mark.
type DailyMark struct {
	ID              uuid.UUID
	FundID          uuid.UUID
	UserID          uuid.UUID
	Date            time.Time
	CurrentNetValue decimal.Decimal
	// ProfitLoss is the day's incremental profit or loss versus the
	// position's profit before this mark was applied.
	ProfitLoss decimal.Decimal
}

// DailySummary is the per-user running sum of every fund's ProfitLoss for
// one date. It moves in lock-step with DailyMark writes and deletes; the
// row is removed once no mark remains for the date.
type DailySummary struct {
	UserID          uuid.UUID
	Date            time.Time
	TotalProfitLoss decimal.Decimal
}

// NormalizeDate truncates a timestamp to its UTC calendar date.
// Marks and summaries are keyed by date, not by instant.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
