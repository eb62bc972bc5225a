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

const markColumns = `id, fund_id, user_id, mark_date, current_net_value, profit_loss`

// markRepository implements domain.MarkRepository
type markRepository struct {
	q querier
}

// GetByID retrieves a mark by its ID
func (r *markRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.DailyMark, error) {
	query := `SELECT ` + markColumns + ` FROM fund_daily_marks WHERE id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// GetByFundAndDate retrieves the mark for one fund and date
func (r *markRepository) GetByFundAndDate(ctx context.Context, fundID uuid.UUID, date time.Time) (*domain.DailyMark, error) {
	query := `SELECT ` + markColumns + ` FROM fund_daily_marks WHERE fund_id = $1 AND mark_date = $2`
	return r.scanOne(r.q.QueryRowContext(ctx, query, fundID, date))
}

// GetLatestBefore retrieves the most recent mark strictly before date
func (r *markRepository) GetLatestBefore(ctx context.Context, fundID uuid.UUID, date time.Time) (*domain.DailyMark, error) {
	query := `
		SELECT ` + markColumns + `
		FROM fund_daily_marks
		WHERE fund_id = $1 AND mark_date < $2
		ORDER BY mark_date DESC
		LIMIT 1
	`
	return r.scanOne(r.q.QueryRowContext(ctx, query, fundID, date))
}

// Upsert inserts the mark or overwrites the existing (fund, date) row
func (r *markRepository) Upsert(ctx context.Context, m *domain.DailyMark) error {
	query := `
		INSERT INTO fund_daily_marks (id, fund_id, user_id, mark_date, current_net_value, profit_loss)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fund_id, mark_date)
		DO UPDATE SET current_net_value = EXCLUDED.current_net_value, profit_loss = EXCLUDED.profit_loss
	`

	_, err := r.q.ExecContext(ctx, query,
		m.ID,
		m.FundID,
		m.UserID,
		m.Date,
		m.CurrentNetValue.String(),
		m.ProfitLoss.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert mark: %w", storeError(err))
	}

	return nil
}

// Delete removes a mark row
func (r *markRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM fund_daily_marks WHERE id = $1`

	if _, err := r.q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete mark: %w", storeError(err))
	}

	return nil
}

// ListByFund retrieves all marks for a fund
func (r *markRepository) ListByFund(ctx context.Context, fundID uuid.UUID) ([]*domain.DailyMark, error) {
	query := `SELECT ` + markColumns + ` FROM fund_daily_marks WHERE fund_id = $1 ORDER BY mark_date`
	return r.list(ctx, query, fundID)
}

// ListByUserAndDate retrieves every mark a user holds for one date
func (r *markRepository) ListByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*domain.DailyMark, error) {
	query := `SELECT ` + markColumns + ` FROM fund_daily_marks WHERE user_id = $1 AND mark_date = $2`
	return r.list(ctx, query, userID, date)
}

// CountByUserAndDate returns how many marks a user holds for one date
func (r *markRepository) CountByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM fund_daily_marks WHERE user_id = $1 AND mark_date = $2`

	var count int
	if err := r.q.QueryRowContext(ctx, query, userID, date).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count marks: %w", storeError(err))
	}

	return count, nil
}

// DeleteByFund removes all of a fund's marks
func (r *markRepository) DeleteByFund(ctx context.Context, fundID uuid.UUID) error {
	query := `DELETE FROM fund_daily_marks WHERE fund_id = $1`

	if _, err := r.q.ExecContext(ctx, query, fundID); err != nil {
		return fmt.Errorf("failed to delete fund marks: %w", storeError(err))
	}

	return nil
}

func (r *markRepository) list(ctx context.Context, query string, args ...any) ([]*domain.DailyMark, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list marks: %w", storeError(err))
	}
	defer rows.Close()

	marks := make([]*domain.DailyMark, 0)
	for rows.Next() {
		mark, err := scanMark(rows)
		if err != nil {
			return nil, err
		}
		marks = append(marks, mark)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list marks: %w", storeError(err))
	}

	return marks, nil
}

func (r *markRepository) scanOne(row *sql.Row) (*domain.DailyMark, error) {
	mark, err := scanMark(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("mark: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return mark, nil
}

func scanMark(row rowScanner) (*domain.DailyMark, error) {
	var (
		m             domain.DailyMark
		netValueStr   string
		profitLossStr string
	)

	err := row.Scan(&m.ID, &m.FundID, &m.UserID, &m.Date, &netValueStr, &profitLossStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan mark: %w", storeError(err))
	}

	if m.CurrentNetValue, err = decimal.NewFromString(netValueStr); err != nil {
		return nil, fmt.Errorf("failed to parse current_net_value: %w", err)
	}
	if m.ProfitLoss, err = decimal.NewFromString(profitLossStr); err != nil {
		return nil, fmt.Errorf("failed to parse profit_loss: %w", err)
	}

	return &m, nil
}
