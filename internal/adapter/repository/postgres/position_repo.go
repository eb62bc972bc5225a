package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orcatt/crayon-bs/internal/domain"
)

const positionColumns = `
	id, user_id, fund_name, code,
	holding_shares, holding_amount, holding_cost, total_cost,
	holding_profit, sell_profit, total_profit, holding_profit_rate,
	current_net_value
`

// positionRepository implements domain.PositionRepository
type positionRepository struct {
	q querier
}

// GetByID retrieves a position by its ID
func (r *positionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FundPosition, error) {
	query := `SELECT ` + positionColumns + ` FROM fund_positions WHERE id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a position and locks its row until the
// enclosing transaction ends
func (r *positionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.FundPosition, error) {
	query := `SELECT ` + positionColumns + ` FROM fund_positions WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

// Create inserts a new position
func (r *positionRepository) Create(ctx context.Context, p *domain.FundPosition) error {
	query := `
		INSERT INTO fund_positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.ExecContext(ctx, query,
		p.ID,
		p.UserID,
		p.FundName,
		p.Code,
		p.HoldingShares.String(),
		p.HoldingAmount.String(),
		p.HoldingCost.String(),
		p.TotalCost.String(),
		p.HoldingProfit.String(),
		p.SellProfit.String(),
		p.TotalProfit.String(),
		p.HoldingProfitRate.String(),
		p.CurrentNetValue.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to create position: %w", storeError(err))
	}

	return nil
}

// Update overwrites the position's aggregate fields
func (r *positionRepository) Update(ctx context.Context, p *domain.FundPosition) error {
	query := `
		UPDATE fund_positions
		SET holding_shares = $2, holding_amount = $3, holding_cost = $4,
		    total_cost = $5, holding_profit = $6, sell_profit = $7,
		    total_profit = $8, holding_profit_rate = $9, current_net_value = $10
		WHERE id = $1
	`

	_, err := r.q.ExecContext(ctx, query,
		p.ID,
		p.HoldingShares.String(),
		p.HoldingAmount.String(),
		p.HoldingCost.String(),
		p.TotalCost.String(),
		p.HoldingProfit.String(),
		p.SellProfit.String(),
		p.TotalProfit.String(),
		p.HoldingProfitRate.String(),
		p.CurrentNetValue.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", storeError(err))
	}

	return nil
}

// Rename updates only the descriptive fields. The column list is fixed so a
// request body can never reach other columns.
func (r *positionRepository) Rename(ctx context.Context, id uuid.UUID, fundName, code string) error {
	query := `UPDATE fund_positions SET fund_name = $2, code = $3 WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id, fundName, code)
	if err != nil {
		return fmt.Errorf("failed to rename position: %w", storeError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to rename position: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("position %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete removes the position row
func (r *positionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM fund_positions WHERE id = $1`

	if _, err := r.q.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete position: %w", storeError(err))
	}

	return nil
}

// ListByUser retrieves all positions owned by a user
func (r *positionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.FundPosition, error) {
	query := `SELECT ` + positionColumns + ` FROM fund_positions WHERE user_id = $1 ORDER BY fund_name`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", storeError(err))
	}
	defer rows.Close()

	positions := make([]*domain.FundPosition, 0)
	for rows.Next() {
		position, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, position)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", storeError(err))
	}

	return positions, nil
}

func (r *positionRepository) scanOne(row *sql.Row) (*domain.FundPosition, error) {
	position, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("position: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	return position, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*domain.FundPosition, error) {
	var (
		p        domain.FundPosition
		decimals [9]string
	)

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FundName,
		&p.Code,
		&decimals[0],
		&decimals[1],
		&decimals[2],
		&decimals[3],
		&decimals[4],
		&decimals[5],
		&decimals[6],
		&decimals[7],
		&decimals[8],
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan position: %w", storeError(err))
	}

	fields := []*decimal.Decimal{
		&p.HoldingShares, &p.HoldingAmount, &p.HoldingCost, &p.TotalCost,
		&p.HoldingProfit, &p.SellProfit, &p.TotalProfit, &p.HoldingProfitRate,
		&p.CurrentNetValue,
	}
	for i, raw := range decimals {
		value, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse position decimal column: %w", err)
		}
		*fields[i] = value
	}

	return &p, nil
}
