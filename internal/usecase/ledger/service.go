package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orcatt/crayon-bs/internal/domain"
	"github.com/orcatt/crayon-bs/internal/usecase/costbasis"
)

// ApplyTransactionInput represents the input for applying a buy or sell.
type ApplyTransactionInput struct {
	UserID   uuid.UUID
	FundID   uuid.UUID
	Type     domain.TransactionType
	Shares   decimal.Decimal
	NetValue decimal.Decimal
	Amount   decimal.Decimal
	Date     time.Time
}

// AddPositionInput represents the input for creating a fund position.
type AddPositionInput struct {
	UserID   uuid.UUID
	FundName string
	Code     string
}

// PositionWithMark pairs a position with its mark for a requested date,
// when one exists.
type PositionWithMark struct {
	Position *domain.FundPosition
	Mark     *domain.DailyMark
}

// Service handles fund positions and their buy/sell transactions.
// Every mutation runs inside one unit of work: the transaction row and the
// position aggregates are written atomically or not at all.
type Service struct {
	UoW domain.UnitOfWork
}

// NewService creates a new ledger Service instance.
func NewService(uow domain.UnitOfWork) *Service {
	return &Service{UoW: uow}
}

// AddPosition creates a position with all aggregates zeroed.
func (s *Service) AddPosition(ctx context.Context, input AddPositionInput) (*domain.FundPosition, error) {
	position := domain.NewFundPosition(input.UserID, input.FundName, input.Code)
	if err := position.Validate(); err != nil {
		return nil, err
	}

	err := s.UoW.Execute(ctx, func(repos domain.RepositorySet) error {
		return repos.Positions().Create(ctx, position)
	})
	if err != nil {
		return nil, err
	}

	return position, nil
}

// ApplyTransaction validates the transaction, locks the position, computes
// the new aggregates and persists both rows atomically.
func (s *Service) ApplyTransaction(ctx context.Context, input ApplyTransactionInput) (*domain.FundPosition, error) {
	var position *domain.FundPosition
	err := s.UoW.Execute(ctx, func(repos domain.RepositorySet) error {
		var err error
		position, _, err = Apply(ctx, repos, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return position, nil
}

// ReverseTransaction deletes a transaction and restores the position to what
// it would have been had the transaction never occurred.
func (s *Service) ReverseTransaction(ctx context.Context, userID, transactionID uuid.UUID) (*domain.FundPosition, error) {
	var position *domain.FundPosition
	err := s.UoW.Execute(ctx, func(repos domain.RepositorySet) error {
		var err error
		position, err = Reverse(ctx, repos, userID, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return position, nil
}

// RenamePosition updates the position's descriptive fields. Only the fund
// name and code are mutable; aggregates never change through this path.
func (s *Service) RenamePosition(ctx context.Context, userID, fundID uuid.UUID, fundName, code string) error {
	if fundName == "" {
		return domain.NewValidationError("fund_name", "is required")
	}

	return s.UoW.Execute(ctx, func(repos domain.RepositorySet) error {
		position, err := repos.Positions().GetByID(ctx, fundID)
		if err != nil {
			return err
		}
		if position.UserID != userID {
			return domain.ErrForbidden
		}
		return repos.Positions().Rename(ctx, fundID, fundName, code)
	})
}

// RemovePosition deletes a position together with its transactions and
// marks. Summary rows are decremented for every removed mark (and dropped
// once empty) so the per-user daily totals stay consistent.
func (s *Service) RemovePosition(ctx context.Context, userID, fundID uuid.UUID) error {
	return s.UoW.Execute(ctx, func(repos domain.RepositorySet) error {
		position, err := repos.Positions().GetByIDForUpdate(ctx, fundID)
		if err != nil {
			return err
		}
		if position.UserID != userID {
			return domain.ErrForbidden
		}

		marks, err := repos.Marks().ListByFund(ctx, fundID)
		if err != nil {
			return err
		}
		if err := repos.Marks().DeleteByFund(ctx, fundID); err != nil {
			return err
		}
		for _, mark := range marks {
			remaining, err := repos.Marks().CountByUserAndDate(ctx, userID, mark.Date)
			if err != nil {
				return err
			}
			if remaining == 0 {
				if err := repos.Summaries().Delete(ctx, userID, mark.Date); err != nil {
					return err
				}
				continue
			}
			if err := repos.Summaries().AddToDate(ctx, userID, mark.Date, mark.ProfitLoss.Neg()); err != nil {
				return err
			}
		}

		if err := repos.Transactions().DeleteByFund(ctx, fundID); err != nil {
			return err
		}
		return repos.Positions().Delete(ctx, fundID)
	})
}

// ListPositions retrieves a user's positions with the given date's mark
// attached where one exists. A zero date means today.
func (s *Service) ListPositions(ctx context.Context, userID uuid.UUID, date time.Time) ([]PositionWithMark, error) {
	if date.IsZero() {
		date = time.Now()
	}
	date = domain.NormalizeDate(date)

	var result []PositionWithMark
	err := s.UoW.Execute(ctx, func(repos domain.RepositorySet) error {
		positions, err := repos.Positions().ListByUser(ctx, userID)
		if err != nil {
			return err
		}

		result = make([]PositionWithMark, 0, len(positions))
		for _, position := range positions {
			item := PositionWithMark{Position: position}
			mark, err := repos.Marks().GetByFundAndDate(ctx, position.ID, date)
			if err == nil {
				item.Mark = mark
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			result = append(result, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ListTransactions retrieves a fund's transactions after checking the fund
// belongs to the caller. Zero from/to values disable the respective bound.
func (s *Service) ListTransactions(ctx context.Context, userID, fundID uuid.UUID, from, to time.Time) ([]*domain.Transaction, error) {
	var transactions []*domain.Transaction
	err := s.UoW.Execute(ctx, func(repos domain.RepositorySet) error {
		position, err := repos.Positions().GetByID(ctx, fundID)
		if err != nil {
			return err
		}
		if position.UserID != userID {
			return domain.ErrForbidden
		}

		transactions, err = repos.Transactions().ListByFund(ctx, fundID, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

// Apply performs the transaction-application algorithm against repositories
// that are already bound to a unit of work. The batch coordinator reuses it
// to run many applications inside a single atomic unit.
func Apply(ctx context.Context, repos domain.RepositorySet, input ApplyTransactionInput) (*domain.FundPosition, *domain.Transaction, error) {
	tx := &domain.Transaction{
		ID:              uuid.New(),
		FundID:          input.FundID,
		UserID:          input.UserID,
		Type:            input.Type,
		Shares:          input.Shares,
		NetValue:        input.NetValue,
		Amount:          input.Amount,
		TransactionDate: input.Date,
	}
	if err := tx.Validate(); err != nil {
		return nil, nil, err
	}

	position, err := repos.Positions().GetByIDForUpdate(ctx, input.FundID)
	if err != nil {
		return nil, nil, err
	}
	if position.UserID != input.UserID {
		return nil, nil, domain.ErrForbidden
	}

	var updated domain.FundPosition
	switch input.Type {
	case domain.TransactionTypeBuy:
		updated = costbasis.ApplyBuy(*position, input.Shares, input.NetValue, input.Amount)
	case domain.TransactionTypeSell:
		updated, _, err = costbasis.ApplySell(*position, input.Shares, input.NetValue, input.Amount)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := repos.Transactions().Create(ctx, tx); err != nil {
		return nil, nil, err
	}
	if err := repos.Positions().Update(ctx, &updated); err != nil {
		return nil, nil, err
	}

	return &updated, tx, nil
}

// Reverse performs the transaction-reversal algorithm against repositories
// bound to a unit of work. A transaction that does not exist or belongs to
// another user yields ErrNotFound; an ownership mismatch on the owning
// position yields ErrForbidden.
func Reverse(ctx context.Context, repos domain.RepositorySet, userID, transactionID uuid.UUID) (*domain.FundPosition, error) {
	tx, err := repos.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, domain.ErrNotFound
	}

	position, err := repos.Positions().GetByIDForUpdate(ctx, tx.FundID)
	if err != nil {
		return nil, err
	}
	if position.UserID != userID {
		return nil, domain.ErrForbidden
	}

	var restored domain.FundPosition
	switch tx.Type {
	case domain.TransactionTypeBuy:
		restored = costbasis.ReverseBuy(*position, tx.Shares, tx.NetValue, tx.Amount)
	case domain.TransactionTypeSell:
		restored = costbasis.ReverseSell(*position, tx.Shares, tx.NetValue, tx.Amount)
	}

	if err := repos.Transactions().Delete(ctx, tx.ID); err != nil {
		return nil, err
	}
	if err := repos.Positions().Update(ctx, &restored); err != nil {
		return nil, err
	}

	return &restored, nil
}
