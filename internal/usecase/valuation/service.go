package valuation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orcatt/crayon-bs/internal/domain"
	"github.com/orcatt/crayon-bs/internal/usecase/costbasis"
)

// ApplyMarkInput represents the input for one mark-to-market event.
type ApplyMarkInput struct {
	UserID   uuid.UUID
	FundID   uuid.UUID
	Date     time.Time
	NetValue decimal.Decimal
}

// Service handles daily mark-to-market events and the per-user daily
// summaries they maintain. Every mutation runs inside one unit of work:
// position, mark and summary move together or not at all.
type Service struct {
	UoW domain.UnitOfWork
}

// NewService creates a new valuation Service instance.
func NewService(uow domain.UnitOfWork) *Service {
	return &Service{UoW: uow}
}

// ApplyMark revalues a position at the supplied net asset value for a date.
// Re-marking an already-marked date overwrites the mark, adjusting the
// position and summary by the difference from the previous mark rather than
// reapplying the full delta.
func (s *Service) ApplyMark(ctx context.Context, input ApplyMarkInput) (*domain.FundPosition, *domain.DailyMark, error) {
	var (
		position *domain.FundPosition
		mark     *domain.DailyMark
	)
	err := s.UoW.Execute(ctx, func(repos domain.RepositorySet) error {
		var err error
		position, mark, err = Apply(ctx, repos, input)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return position, mark, nil
}

// ReverseMark deletes a daily mark and restores the position and summary to
// their state before the mark was applied.
func (s *Service) ReverseMark(ctx context.Context, userID, markID uuid.UUID) (*domain.FundPosition, error) {
	var position *domain.FundPosition
	err := s.UoW.Execute(ctx, func(repos domain.RepositorySet) error {
		mark, err := repos.Marks().GetByID(ctx, markID)
		if err != nil {
			return err
		}
		if mark.UserID != userID {
			return domain.ErrNotFound
		}

		position, err = repos.Positions().GetByIDForUpdate(ctx, mark.FundID)
		if err != nil {
			return err
		}
		if position.UserID != userID {
			return domain.ErrForbidden
		}

		restoredProfit := position.HoldingProfit.Sub(mark.ProfitLoss)

		// Best-effort net value reconstruction: the mark before this one
		// if any, else fall back to the cost basis.
		netValue := position.HoldingCost
		prior, err := repos.Marks().GetLatestBefore(ctx, mark.FundID, mark.Date)
		if err == nil {
			netValue = prior.CurrentNetValue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		position.HoldingProfit = restoredProfit
		position.HoldingAmount = position.TotalCost.Add(restoredProfit)
		position.TotalProfit = restoredProfit.Add(position.SellProfit)
		position.HoldingProfitRate = costbasis.ProfitRate(restoredProfit, position.TotalCost)
		position.CurrentNetValue = netValue

		if err := repos.Marks().Delete(ctx, mark.ID); err != nil {
			return err
		}

		remaining, err := repos.Marks().CountByUserAndDate(ctx, userID, mark.Date)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := repos.Summaries().Delete(ctx, userID, mark.Date); err != nil {
				return err
			}
		} else {
			if err := repos.Summaries().AddToDate(ctx, userID, mark.Date, mark.ProfitLoss.Neg()); err != nil {
				return err
			}
		}

		return repos.Positions().Update(ctx, position)
	})
	if err != nil {
		return nil, err
	}
	return position, nil
}

// ListSummaries retrieves the user's daily profit/loss totals in a date
// range. Zero from/to values disable the respective bound.
func (s *Service) ListSummaries(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*domain.DailySummary, error) {
	var summaries []*domain.DailySummary
	err := s.UoW.Execute(ctx, func(repos domain.RepositorySet) error {
		var err error
		summaries, err = repos.Summaries().ListByUser(ctx, userID, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// Apply performs the mark-to-market algorithm against repositories already
// bound to a unit of work. The batch coordinator reuses it to run many
// marks inside a single atomic unit.
func Apply(ctx context.Context, repos domain.RepositorySet, input ApplyMarkInput) (*domain.FundPosition, *domain.DailyMark, error) {
	if input.NetValue.LessThanOrEqual(decimal.Zero) {
		return nil, nil, domain.NewValidationError("net_value", "must be positive")
	}
	if input.Date.IsZero() {
		return nil, nil, domain.NewValidationError("date", "is required")
	}
	date := domain.NormalizeDate(input.Date)

	position, err := repos.Positions().GetByIDForUpdate(ctx, input.FundID)
	if err != nil {
		return nil, nil, err
	}
	if position.UserID != input.UserID {
		return nil, nil, domain.ErrForbidden
	}

	updated, dayProfitLoss, err := costbasis.MarkToMarket(*position, input.NetValue)
	if err != nil {
		return nil, nil, err
	}

	mark := &domain.DailyMark{
		ID:              uuid.New(),
		FundID:          input.FundID,
		UserID:          input.UserID,
		Date:            date,
		CurrentNetValue: input.NetValue,
		ProfitLoss:      dayProfitLoss,
	}

	// A re-mark keeps the existing row's identity and accumulates the
	// day's profit/loss versus the pre-mark state of that day.
	existing, err := repos.Marks().GetByFundAndDate(ctx, input.FundID, date)
	if err == nil {
		mark.ID = existing.ID
		mark.ProfitLoss = existing.ProfitLoss.Add(dayProfitLoss)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	if err := repos.Marks().Upsert(ctx, mark); err != nil {
		return nil, nil, err
	}
	if err := repos.Summaries().AddToDate(ctx, input.UserID, date, dayProfitLoss); err != nil {
		return nil, nil, err
	}
	if err := repos.Positions().Update(ctx, &updated); err != nil {
		return nil, nil, err
	}

	return &updated, mark, nil
}
