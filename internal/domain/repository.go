package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionRepository defines the interface for fund position persistence.
type PositionRepository interface {
	// GetByID retrieves a position by its ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*FundPosition, error)

	// GetByIDForUpdate retrieves a position and locks its row for the
	// remainder of the enclosing unit of work, serializing concurrent
	// read-modify-write cycles on the same position.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*FundPosition, error)

	// Create inserts a new position.
	Create(ctx context.Context, p *FundPosition) error

	// Update overwrites the position's aggregate fields.
	Update(ctx context.Context, p *FundPosition) error

	// Rename updates the mutable descriptive fields (name, code) only.
	Rename(ctx context.Context, id uuid.UUID, fundName, code string) error

	// Delete removes the position row.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByUser retrieves all positions owned by a user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*FundPosition, error)
}

// TransactionRepository defines the interface for buy/sell row persistence.
type TransactionRepository interface {
	// GetByID retrieves a transaction by its ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// Create appends a new transaction row.
	Create(ctx context.Context, tx *Transaction) error

	// Delete removes a transaction row.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByFund retrieves a fund's transactions ordered by date descending.
	// Zero from/to values disable the respective bound.
	ListByFund(ctx context.Context, fundID uuid.UUID, from, to time.Time) ([]*Transaction, error)

	// DeleteByFund removes all of a fund's transactions.
	DeleteByFund(ctx context.Context, fundID uuid.UUID) error
}

// MarkRepository defines the interface for daily mark persistence.
type MarkRepository interface {
	// GetByID retrieves a mark by its ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*DailyMark, error)

	// GetByFundAndDate retrieves the mark for one fund and date.
	// Returns ErrNotFound if the date has not been marked.
	GetByFundAndDate(ctx context.Context, fundID uuid.UUID, date time.Time) (*DailyMark, error)

	// GetLatestBefore retrieves the most recent mark strictly before date.
	// Returns ErrNotFound if no earlier mark exists.
	GetLatestBefore(ctx context.Context, fundID uuid.UUID, date time.Time) (*DailyMark, error)

	// Upsert inserts the mark or overwrites the existing (fund, date) row.
	Upsert(ctx context.Context, m *DailyMark) error

	// Delete removes a mark row.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByFund retrieves all marks for a fund.
	ListByFund(ctx context.Context, fundID uuid.UUID) ([]*DailyMark, error)

	// ListByUserAndDate retrieves every mark a user holds for one date.
	ListByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*DailyMark, error)

	// CountByUserAndDate returns how many marks a user holds for one date.
	CountByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (int, error)

	// DeleteByFund removes all of a fund's marks.
	DeleteByFund(ctx context.Context, fundID uuid.UUID) error
}

// SummaryRepository defines the interface for per-user daily summaries.
type SummaryRepository interface {
	// AddToDate increments the user's summary for a date by delta,
	// inserting the row if absent.
	AddToDate(ctx context.Context, userID uuid.UUID, date time.Time, delta decimal.Decimal) error

	// Delete removes the summary row for a date.
	Delete(ctx context.Context, userID uuid.UUID, date time.Time) error

	// ListByUser retrieves summaries in a date range, ordered by date.
	// Zero from/to values disable the respective bound.
	ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*DailySummary, error)
}

// RepositorySet bundles the repositories bound to one storage transaction.
type RepositorySet interface {
	Positions() PositionRepository
	Transactions() TransactionRepository
	Marks() MarkRepository
	Summaries() SummaryRepository
}

// UnitOfWork executes fn inside one atomic storage transaction.
// If fn returns an error the transaction is rolled back and no write
// survives; otherwise it is committed. Repositories obtained from the
// RepositorySet are only valid for the duration of fn.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos RepositorySet) error) error
}
