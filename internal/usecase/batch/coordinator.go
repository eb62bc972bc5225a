package batch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orcatt/crayon-bs/internal/domain"
	"github.com/orcatt/crayon-bs/internal/usecase/ledger"
	"github.com/orcatt/crayon-bs/internal/usecase/valuation"
)

// OpKind discriminates the two operation types a batch may carry.
type OpKind string

const (
	OpKindTransaction OpKind = "transaction"
	OpKindMark        OpKind = "mark"
)

// Op is one item of a batch: exactly one of Transaction or Mark is set,
// according to Kind.
type Op struct {
	Kind        OpKind
	Transaction *ledger.ApplyTransactionInput
	Mark        *valuation.ApplyMarkInput
}

// Outcome reports the result of one applied batch item, in input order.
type Outcome struct {
	Index    int
	Kind     OpKind
	ID       uuid.UUID // created transaction or mark id
	Position *domain.FundPosition
}

// Coordinator applies an ordered list of transactions and marks inside one
// atomic unit. The first validation or business-rule failure rolls back the
// entire batch and the returned error names the offending item; there is no
// partial application.
type Coordinator struct {
	UoW domain.UnitOfWork
}

// NewCoordinator creates a new batch Coordinator instance.
func NewCoordinator(uow domain.UnitOfWork) *Coordinator {
	return &Coordinator{UoW: uow}
}

// Apply runs every op in order within a single unit of work, enforcing that
// each op belongs to userID. On success it returns one outcome per op.
func (c *Coordinator) Apply(ctx context.Context, userID uuid.UUID, ops []Op) ([]Outcome, error) {
	if len(ops) == 0 {
		return nil, domain.NewValidationError("ops", "must not be empty")
	}

	outcomes := make([]Outcome, 0, len(ops))
	err := c.UoW.Execute(ctx, func(repos domain.RepositorySet) error {
		for i, op := range ops {
			outcome, err := applyOp(ctx, repos, userID, op)
			if err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			outcome.Index = i
			outcomes = append(outcomes, outcome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcomes, nil
}

func applyOp(ctx context.Context, repos domain.RepositorySet, userID uuid.UUID, op Op) (Outcome, error) {
	switch op.Kind {
	case OpKindTransaction:
		if op.Transaction == nil {
			return Outcome{}, domain.NewValidationError("transaction", "is required")
		}
		input := *op.Transaction
		input.UserID = userID
		position, tx, err := ledger.Apply(ctx, repos, input)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OpKindTransaction, ID: tx.ID, Position: position}, nil

	case OpKindMark:
		if op.Mark == nil {
			return Outcome{}, domain.NewValidationError("mark", "is required")
		}
		input := *op.Mark
		input.UserID = userID
		position, mark, err := valuation.Apply(ctx, repos, input)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Kind: OpKindMark, ID: mark.ID, Position: position}, nil

	default:
		return Outcome{}, domain.NewValidationError("kind", "must be transaction or mark")
	}
}
