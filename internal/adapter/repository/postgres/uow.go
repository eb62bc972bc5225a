package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orcatt/crayon-bs/internal/domain"
)

// unitOfWork implements domain.UnitOfWork on one *sql.DB.
type unitOfWork struct {
	db *DB
}

// NewUnitOfWork creates a unit of work bound to the given database.
func NewUnitOfWork(db *DB) domain.UnitOfWork {
	return &unitOfWork{db: db}
}

// Execute runs fn inside one database transaction. A non-nil error from fn
// (or from commit) rolls everything back; no partial writes survive.
func (u *unitOfWork) Execute(ctx context.Context, fn func(repos domain.RepositorySet) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", storeError(err))
	}
	defer tx.Rollback()

	if err := fn(&repositorySet{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", storeError(err))
	}

	return nil
}

// repositorySet hands out repositories bound to one open transaction.
type repositorySet struct {
	tx *sql.Tx
}

func (r *repositorySet) Positions() domain.PositionRepository {
	return &positionRepository{q: r.tx}
}

func (r *repositorySet) Transactions() domain.TransactionRepository {
	return &transactionRepository{q: r.tx}
}

func (r *repositorySet) Marks() domain.MarkRepository {
	return &markRepository{q: r.tx}
}

func (r *repositorySet) Summaries() domain.SummaryRepository {
	return &summaryRepository{q: r.tx}
}
