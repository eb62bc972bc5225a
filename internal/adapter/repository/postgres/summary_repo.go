package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orcatt/crayon-bs/internal/domain"
)

// summaryRepository implements domain.SummaryRepository
type summaryRepository struct {
	q querier
}

// AddToDate increments the user's summary for a date by delta, inserting
// the row if absent
func (r *summaryRepository) AddToDate(ctx context.Context, userID uuid.UUID, date time.Time, delta decimal.Decimal) error {
	query := `
		INSERT INTO fund_daily_summaries (user_id, summary_date, total_profit_loss)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, summary_date)
		DO UPDATE SET total_profit_loss = fund_daily_summaries.total_profit_loss + EXCLUDED.total_profit_loss
	`

	if _, err := r.q.ExecContext(ctx, query, userID, date, delta.String()); err != nil {
		return fmt.Errorf("failed to upsert summary: %w", storeError(err))
	}

	return nil
}

// Delete removes the summary row for a date
func (r *summaryRepository) Delete(ctx context.Context, userID uuid.UUID, date time.Time) error {
	query := `DELETE FROM fund_daily_summaries WHERE user_id = $1 AND summary_date = $2`

	if _, err := r.q.ExecContext(ctx, query, userID, date); err != nil {
		return fmt.Errorf("failed to delete summary: %w", storeError(err))
	}

	return nil
}

// ListByUser retrieves summaries in a date range, ordered by date
func (r *summaryRepository) ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*domain.DailySummary, error) {
	query := `
		SELECT user_id, summary_date, total_profit_loss
		FROM fund_daily_summaries
		WHERE user_id = $1
	`
	args := []any{userID}

	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND summary_date >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND summary_date <= $%d", len(args))
	}
	query += " ORDER BY summary_date"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", storeError(err))
	}
	defer rows.Close()

	summaries := make([]*domain.DailySummary, 0)
	for rows.Next() {
		var (
			s        domain.DailySummary
			totalStr string
		)
		if err := rows.Scan(&s.UserID, &s.Date, &totalStr); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", storeError(err))
		}
		if s.TotalProfitLoss, err = decimal.NewFromString(totalStr); err != nil {
			return nil, fmt.Errorf("failed to parse total_profit_loss: %w", err)
		}
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", storeError(err))
	}

	return summaries, nil
}
